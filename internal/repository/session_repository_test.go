package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidtube-api/internal/models"
)

func TestSessionUpsertReplacesOnConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE SET refresh_token = EXCLUDED.refresh_token")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.Session{UserID: models.NewID(), RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Upsert(context.Background(), session))
	assert.False(t, session.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindByUserIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	userID := models.NewID()
	mock.ExpectQuery("FROM sessions WHERE user_id = \\$1").
		WithArgs(userID.String()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserID(context.Background(), userID)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionCompareAndSwap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	userID := models.NewID()
	next := &models.Session{UserID: userID, RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour)}

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND refresh_token = $2")).
		WithArgs(userID.String(), "r1", "r2", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND refresh_token = $2")).
		WithArgs(userID.String(), "r1", "r2", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	swapped, err := repo.CompareAndSwap(context.Background(), "r1", next)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = repo.CompareAndSwap(context.Background(), "r1", next)
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	userID := models.NewID()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = $1")).
		WithArgs(userID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
