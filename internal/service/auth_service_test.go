package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidtube-api/internal/dto"
	"github.com/noah-isme/vidtube-api/internal/models"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
)

type authFixture struct {
	svc      *AuthService
	users    *memoryUserRepo
	uploader *fakeUploader
	metrics  *MetricsService
}

func newAuthFixture() *authFixture {
	users := newMemoryUserRepo()
	tokens := newTestTokenService()
	sessions := NewSessionService(newMemorySessionRepo(), users, tokens, nil)
	uploader := &fakeUploader{failPaths: map[string]bool{}}
	metrics := NewMetricsService()
	svc := NewAuthService(users, sessions, tokens, uploader, NewPasswordHasher(4), nil, metrics, nil)
	return &authFixture{svc: svc, users: users, uploader: uploader, metrics: metrics}
}

func aliceInput() dto.RegisterInput {
	return dto.RegisterInput{
		RegisterRequest: dto.RegisterRequest{FullName: "Alice", Email: "Alice@Example.com", Username: "Alice", Password: "s3cret"},
		Avatar:          &dto.UploadedFile{Path: "avatar.png"},
	}
}

func TestRegisterCreatesUserWithoutSecrets(t *testing.T) {
	f := newAuthFixture()

	user, err := f.svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "https://res.cloudinary.com/demo/avatar.png", user.AvatarURL)
	assert.Empty(t, user.CoverImageURL)

	raw, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "refreshToken")
	assert.NotContains(t, string(raw), user.PasswordHash)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.authEvents.WithLabelValues("register", OutcomeSuccess)))
}

func TestRegisterListsMissingFields(t *testing.T) {
	f := newAuthFixture()
	input := aliceInput()
	input.FullName = "   "
	input.Password = ""

	_, err := f.svc.Register(context.Background(), input)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"fullname", "password"}, appErr.Details)
	assert.Empty(t, f.uploader.uploaded)
}

func TestRegisterRejectsInvalidEmail(t *testing.T) {
	f := newAuthFixture()
	input := aliceInput()
	input.Email = "not-an-email"

	_, err := f.svc.Register(context.Background(), input)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRegisterRejectsPasswordOverBcryptByteLimit(t *testing.T) {
	f := newAuthFixture()
	input := aliceInput()
	input.Password = strings.Repeat("é", 40)

	_, err := f.svc.Register(context.Background(), input)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"password"}, appErr.Details)
	assert.Empty(t, f.uploader.uploaded)
	assert.Empty(t, f.uploader.destroyed)

	input.Password = strings.Repeat("é", 36)
	user, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, NewPasswordHasher(4).Verify(user.PasswordHash, input.Password))
}

func TestRegisterConflict(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), aliceInput())
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestRegisterRequiresAvatar(t *testing.T) {
	f := newAuthFixture()
	input := aliceInput()
	input.Avatar = nil

	_, err := f.svc.Register(context.Background(), input)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "avatar file is required")
}

func TestRegisterAvatarUploadFailure(t *testing.T) {
	f := newAuthFixture()
	f.uploader.failPaths["avatar.png"] = true

	_, err := f.svc.Register(context.Background(), aliceInput())
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.assetUploads.WithLabelValues(OutcomeFailure)))
}

func TestRegisterCoverFailureIsTolerated(t *testing.T) {
	f := newAuthFixture()
	f.uploader.failPaths["cover.png"] = true
	input := aliceInput()
	input.CoverImage = &dto.UploadedFile{Path: "cover.png"}

	user, err := f.svc.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, user.CoverImageURL)
}

func TestRegisterRollsBackAssetsWhenPersistFails(t *testing.T) {
	f := newAuthFixture()
	f.users.createErr = errors.New("db down")
	input := aliceInput()
	input.CoverImage = &dto.UploadedFile{Path: "cover.png"}

	_, err := f.svc.Register(context.Background(), input)
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.ElementsMatch(t, []string{"vidtube/avatar.png", "vidtube/cover.png"}, f.uploader.destroyed)
}

func TestLoginSucceedsOnlyWithMatchingPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "wrong"}, models.SessionMeta{})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	result, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ALICE@example.com", Password: "s3cret"}, models.SessionMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "alice", result.User.Username)

	claims, err := f.svc.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), claims.UserID)
}

func TestLoginValidationAndUnknownUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.Login(ctx, dto.LoginRequest{Password: "x"}, models.SessionMeta{})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Username: "ghost", Password: "x"}, models.SessionMeta{})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRefreshAccessTokenRequiresToken(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.RefreshAccessToken(context.Background(), "  ", models.SessionMeta{})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "unauthorized request")
}

func TestLogoutThenRefreshFails(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	result, err := f.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"}, models.SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, result.User.ID))

	_, err = f.svc.RefreshAccessToken(ctx, result.RefreshToken, models.SessionMeta{})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCurrentUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user, err := f.svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	current, err := f.svc.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", current.Username)

	_, err = f.svc.CurrentUser(ctx, models.NewID())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
