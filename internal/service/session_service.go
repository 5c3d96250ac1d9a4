package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/vidtube-api/internal/models"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
)

type sessionRepository interface {
	Upsert(ctx context.Context, session *models.Session) error
	FindByUserID(ctx context.Context, userID models.ID) (*models.Session, error)
	CompareAndSwap(ctx context.Context, expected string, next *models.Session) (bool, error)
	Delete(ctx context.Context, userID models.ID) error
}

type sessionUserRepository interface {
	FindByID(ctx context.Context, id models.ID) (*models.User, error)
}

// SessionService keeps exactly one valid refresh token per user.
type SessionService struct {
	sessions sessionRepository
	users    sessionUserRepository
	tokens   *TokenService
	logger   *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionRepository, users sessionUserRepository, tokens *TokenService, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, users: users, tokens: tokens, logger: logger}
}

// StartSession issues a token pair and replaces any previous session of the user.
func (s *SessionService) StartSession(ctx context.Context, user *models.User, meta models.SessionMeta) (*models.TokenPair, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue tokens")
	}
	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.RefreshTokenExpiresAt,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return nil, appErrors.Internal(err, "failed to persist session")
	}
	return pair, nil
}

// EndSession drops the stored refresh token. Ending a missing session succeeds.
func (s *SessionService) EndSession(ctx context.Context, userID models.ID) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return appErrors.Internal(err, "failed to end session")
	}
	return nil
}

// Rotate exchanges the presented refresh token for a new pair. The presented
// token must verify and equal the stored one; only one concurrent rotation
// of the same token can succeed.
func (s *SessionService) Rotate(ctx context.Context, presented string, meta models.SessionMeta) (*models.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		return nil, err
	}
	userID, err := models.ParseID(claims.Subject)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
	}

	session, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or used")
		}
		return nil, appErrors.Internal(err, "failed to load session")
	}
	if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(presented)) != 1 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or used")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue tokens")
	}

	swapped, err := s.sessions.CompareAndSwap(ctx, presented, &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.RefreshTokenExpiresAt,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to rotate session")
	}
	if !swapped {
		s.logger.Info("refresh token rotated concurrently", zap.String("user_id", user.ID.String()))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or used")
	}
	return pair, nil
}
