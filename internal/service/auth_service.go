package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/vidtube-api/internal/dto"
	"github.com/noah-isme/vidtube-api/internal/models"
	"github.com/noah-isme/vidtube-api/internal/repository"
	"github.com/noah-isme/vidtube-api/pkg/assets"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
)

// bcrypt ignores input past this many bytes.
const maxPasswordBytes = 72

type authUserRepository interface {
	FindByID(ctx context.Context, id models.ID) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type sessionManager interface {
	StartSession(ctx context.Context, user *models.User, meta models.SessionMeta) (*models.TokenPair, error)
	EndSession(ctx context.Context, userID models.ID) error
	Rotate(ctx context.Context, presented string, meta models.SessionMeta) (*models.TokenPair, error)
}

// AssetUploader pushes staged files to the asset host.
type AssetUploader interface {
	Upload(ctx context.Context, localPath string) (*assets.Asset, error)
	Destroy(ctx context.Context, asset *assets.Asset) error
}

// AuthService provides the register, login, logout and refresh use cases.
type AuthService struct {
	repo      authUserRepository
	sessions  sessionManager
	tokens    *TokenService
	uploader  AssetUploader
	hasher    *PasswordHasher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions sessionManager, tokens *TokenService, uploader AssetUploader, hasher *PasswordHasher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &AuthService{
		repo:      repo,
		sessions:  sessions,
		tokens:    tokens,
		uploader:  uploader,
		hasher:    hasher,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register creates an account after uploading the avatar and optional cover image.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (user *models.User, err error) {
	defer func() { s.metrics.RecordAuthEvent("register", outcomeOf(err)) }()

	req := input.RegisterRequest
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"fullname", req.FullName},
		{"email", req.Email},
		{"username", req.Username},
		{"password", strings.TrimSpace(req.Password)},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Validation("all fields are required", missing...)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid registration payload", err)
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, appErrors.Validation("password must be at most 72 bytes", "password")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing user")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user with email or username already exists")
	}

	if input.Avatar == nil || input.Avatar.Path == "" {
		return nil, appErrors.Validation("avatar file is required", "avatar")
	}

	avatar, err := s.upload(ctx, input.Avatar)
	if err != nil {
		s.logger.Warn("avatar upload failed", zap.Error(err))
		return nil, appErrors.Validation("avatar file is required", "avatar")
	}
	uploaded := []*assets.Asset{avatar}

	var cover *assets.Asset
	if input.CoverImage != nil && input.CoverImage.Path != "" {
		cover, err = s.upload(ctx, input.CoverImage)
		if err != nil {
			s.logger.Warn("cover image upload failed", zap.Error(err))
			cover = nil
		} else {
			uploaded = append(uploaded, cover)
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.rollbackAssets(ctx, uploaded)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, appErrors.Validation("password must be at most 72 bytes", "password")
		}
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user = &models.User{
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  hash,
		AvatarURL:     avatar.PreferredURL(),
		CoverImageURL: cover.PreferredURL(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		s.rollbackAssets(ctx, uploaded)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user with email or username already exists")
		}
		return nil, appErrors.Internal(err, "something went wrong while registering the user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates by username or email and starts a session.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, meta models.SessionMeta) (result *models.LoginResult, err error) {
	defer func() { s.metrics.RecordAuthEvent("login", outcomeOf(err)) }()

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" && email == "" {
		return nil, appErrors.Validation("username or email is required", "username", "email")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("password is required", err)
	}

	user, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user does not exist")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid user credentials")
	}

	pair, err := s.sessions.StartSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	return &models.LoginResult{User: user, TokenPair: *pair}, nil
}

// Logout ends the caller's session.
func (s *AuthService) Logout(ctx context.Context, userID models.ID) (err error) {
	defer func() { s.metrics.RecordAuthEvent("logout", outcomeOf(err)) }()
	return s.sessions.EndSession(ctx, userID)
}

// RefreshAccessToken rotates the presented refresh token.
func (s *AuthService) RefreshAccessToken(ctx context.Context, presented string, meta models.SessionMeta) (pair *models.TokenPair, err error) {
	defer func() { s.metrics.RecordAuthEvent("refresh", outcomeOf(err)) }()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized request")
	}
	return s.sessions.Rotate(ctx, presented, meta)
}

// CurrentUser returns the profile of an authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, userID models.ID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// ValidateAccessToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateAccessToken(token string) (*models.AccessClaims, error) {
	return s.tokens.ParseAccessToken(token)
}

func (s *AuthService) upload(ctx context.Context, file *dto.UploadedFile) (*assets.Asset, error) {
	if s.uploader == nil {
		return nil, errors.New("asset uploader is not configured")
	}
	asset, err := s.uploader.Upload(ctx, file.Path)
	s.metrics.RecordAssetUpload(outcomeOf(err))
	if err != nil {
		return nil, err
	}
	if asset.PreferredURL() == "" {
		return nil, errors.New("asset host returned no url")
	}
	return asset, nil
}

func (s *AuthService) rollbackAssets(ctx context.Context, uploaded []*assets.Asset) {
	for _, asset := range uploaded {
		if err := s.uploader.Destroy(ctx, asset); err != nil {
			s.logger.Warn("failed to roll back uploaded asset", zap.String("public_id", asset.PublicID), zap.Error(err))
		}
	}
}

func validationError(message string, err error) *appErrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	out := appErrors.Validation(message, fields...)
	out.Err = err
	return out
}
