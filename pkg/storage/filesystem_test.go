package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempStorageSaveStreamAndRemove(t *testing.T) {
	store, err := NewTempStorage(t.TempDir(), 1024)
	require.NoError(t, err)

	path, err := store.SaveStream("../../etc/avatar.png", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "avatar.png"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(raw))

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Remove(path))
}

func TestTempStorageRejectsOversizedStream(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTempStorage(dir, 4)
	require.NoError(t, err)

	_, err = store.SaveStream("big.bin", strings.NewReader("123456789"))
	require.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTempStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTempStorage(dir, 0)
	require.NoError(t, err)

	stale, err := store.SaveStream("stale.png", strings.NewReader("a"))
	require.NoError(t, err)
	fresh, err := store.SaveStream("fresh.png", strings.NewReader("b"))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Base(stale)}, deleted)

	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
