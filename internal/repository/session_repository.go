package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vidtube-api/internal/models"
)

// SessionRepository persists the single active refresh token of each user.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert stores the session, replacing any previous one for the same user in
// a single statement.
func (r *SessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (user_id, refresh_token, expires_at, ip_address, user_agent, created_at, updated_at)
VALUES (:user_id, :refresh_token, :expires_at, :ip_address, :user_agent, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET refresh_token = EXCLUDED.refresh_token, expires_at = EXCLUDED.expires_at, ip_address = EXCLUDED.ip_address, user_agent = EXCLUDED.user_agent, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// FindByUserID returns the active session of a user.
func (r *SessionRepository) FindByUserID(ctx context.Context, userID models.ID) (*models.Session, error) {
	const query = `SELECT user_id, refresh_token, expires_at, ip_address, user_agent, created_at, updated_at FROM sessions WHERE user_id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// CompareAndSwap replaces the refresh token only if the stored one still
// equals expected. It reports false when another writer got there first.
func (r *SessionRepository) CompareAndSwap(ctx context.Context, expected string, next *models.Session) (bool, error) {
	next.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET refresh_token = $3, expires_at = $4, ip_address = $5, user_agent = $6, updated_at = $7 WHERE user_id = $1 AND refresh_token = $2`
	res, err := r.db.ExecContext(ctx, query, next.UserID, expected, next.RefreshToken, next.ExpiresAt, next.IPAddress, next.UserAgent, next.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("swap session token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap session token: %w", err)
	}
	return affected == 1, nil
}

// Delete removes the session of a user; deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, userID models.ID) error {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
