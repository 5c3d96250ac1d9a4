package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/vidtube-api/internal/dto"
	"github.com/noah-isme/vidtube-api/internal/middleware"
	"github.com/noah-isme/vidtube-api/internal/models"
	"github.com/noah-isme/vidtube-api/pkg/config"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
	"github.com/noah-isme/vidtube-api/pkg/response"
	"github.com/noah-isme/vidtube-api/pkg/storage"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

type authService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*models.User, error)
	Login(ctx context.Context, req dto.LoginRequest, meta models.SessionMeta) (*models.LoginResult, error)
	Logout(ctx context.Context, userID models.ID) error
	RefreshAccessToken(ctx context.Context, presented string, meta models.SessionMeta) (*models.TokenPair, error)
	CurrentUser(ctx context.Context, userID models.ID) (*models.User, error)
}

type uploadStager interface {
	SaveMultipart(file *multipart.FileHeader) (string, error)
	Remove(path string) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	staging uploadStager
	cookies config.CookieConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, staging uploadStager, cookies config.CookieConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, staging: staging, cookies: cookies, logger: logger}
}

// Register godoc
// @Summary Register user
// @Description Create an account with an avatar and optional cover image
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param fullname formData string true "Full name"
// @Param email formData string true "Email"
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBind(&input.RegisterRequest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	var staged []string
	defer func() {
		for _, path := range staged {
			if err := h.staging.Remove(path); err != nil {
				h.logger.Warn("failed to remove staged upload", zap.String("path", path), zap.Error(err))
			}
		}
	}()

	for _, part := range []struct {
		field  string
		target **dto.UploadedFile
	}{
		{"avatar", &input.Avatar},
		{"coverImage", &input.CoverImage},
	} {
		file, err := h.stage(c, part.field)
		if err != nil {
			response.Error(c, err)
			return
		}
		if file != nil {
			staged = append(staged, file.Path)
			*part.target = file
		}
	}

	user, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user, "user registered successfully")
}

// Login godoc
// @Summary Log in
// @Description Authenticate by username or email and receive token cookies
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, &res.TokenPair)
	response.JSON(c, http.StatusOK, res, "user logged in successfully")
}

// Logout godoc
// @Summary Log out
// @Description End the current session and clear token cookies
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	h.clearTokenCookies(c)
	response.JSON(c, http.StatusOK, gin.H{}, "user logged out")
}

// RefreshToken godoc
// @Summary Refresh access token
// @Description Exchange the refresh token from the cookie or body for a new pair
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.RefreshTokenRequest false "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(RefreshTokenCookie)
	if presented == "" && c.Request.ContentLength != 0 {
		var req dto.RefreshTokenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.service.RefreshAccessToken(c.Request.Context(), presented, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, pair)
	response.JSON(c, http.StatusOK, pair, "access token refreshed")
}

// CurrentUser godoc
// @Summary Current user
// @Description Return the authenticated caller's profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/current-user [get]
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, "current user fetched successfully")
}

// stage copies an optional multipart part to local disk. A missing part
// yields nil without error.
func (h *AuthHandler) stage(c *gin.Context, field string) (*dto.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+field+" upload")
	}

	path, err := h.staging.SaveMultipart(header)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, appErrors.Validation(field+" file is too large", field)
		}
		return nil, appErrors.Internal(err, "failed to stage upload")
	}
	return &dto.UploadedFile{Path: path, Filename: header.Filename, Size: header.Size}, nil
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, pair *models.TokenPair) {
	h.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, maxAge(pair.AccessTokenExpiresAt))
	h.setCookie(c, RefreshTokenCookie, pair.RefreshToken, maxAge(pair.RefreshTokenExpiresAt))
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	h.setCookie(c, middleware.AccessTokenCookie, "", -1)
	h.setCookie(c, RefreshTokenCookie, "", -1)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, age int) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(name, value, age, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func maxAge(expiresAt time.Time) int {
	seconds := int(time.Until(expiresAt).Seconds())
	if seconds < 1 {
		return -1
	}
	return seconds
}

func sessionMeta(c *gin.Context) models.SessionMeta {
	return models.SessionMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
