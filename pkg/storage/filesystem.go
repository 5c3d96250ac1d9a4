package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file exceeds upload size limit")

// TempStorage stages multipart uploads on local disk until they are pushed
// to the asset host. Every staged file belongs to exactly one request.
type TempStorage struct {
	baseDir string
	maxSize int64
}

// NewTempStorage ensures the staging directory exists and returns a handle.
func NewTempStorage(baseDir string, maxSize int64) (*TempStorage, error) {
	if baseDir == "" {
		baseDir = "./public/temp"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &TempStorage{baseDir: baseDir, maxSize: maxSize}, nil
}

// SaveMultipart copies an uploaded part into a uniquely named staging file and
// returns its path.
func (s *TempStorage) SaveMultipart(header *multipart.FileHeader) (string, error) {
	if header == nil {
		return "", errors.New("missing file header")
	}
	if s.maxSize > 0 && header.Size > s.maxSize {
		return "", ErrFileTooLarge
	}
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close() //nolint:errcheck

	return s.SaveStream(header.Filename, src)
}

// SaveStream writes r into a new staging file named after filename.
func (s *TempStorage) SaveStream(filename string, r io.Reader) (string, error) {
	path := filepath.Join(s.baseDir, uuid.NewString()+"-"+sanitize(filename))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", closeErr)
	case s.maxSize > 0 && written > s.maxSize:
		_ = os.Remove(path)
		return "", ErrFileTooLarge
	}
	return path, nil
}

// Remove deletes a staged file if present.
func (s *TempStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes staged files older than ttl and returns their names.
// It catches files orphaned by crashes between staging and upload.
func (s *TempStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup uploads: %w", err)
	}
	return deleted, nil
}

// Dir exposes the staging directory.
func (s *TempStorage) Dir() string {
	return s.baseDir
}

func sanitize(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
