package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vidtube-api/internal/dto"
	"github.com/noah-isme/vidtube-api/internal/models"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
	"github.com/noah-isme/vidtube-api/pkg/response"
)

type playlistService interface {
	Create(ctx context.Context, ownerID models.ID, req dto.CreatePlaylistRequest) (*models.Playlist, error)
	ListByUser(ctx context.Context, userID models.ID) ([]models.PlaylistSummary, error)
	Get(ctx context.Context, id models.ID) (*models.PlaylistDetail, error)
	AddVideo(ctx context.Context, callerID, playlistID, videoID models.ID) (*models.Playlist, error)
	RemoveVideo(ctx context.Context, callerID, playlistID, videoID models.ID) (*models.Playlist, error)
	Update(ctx context.Context, callerID, id models.ID, req dto.UpdatePlaylistRequest) (*models.Playlist, error)
	Delete(ctx context.Context, callerID, id models.ID) error
}

// PlaylistHandler exposes playlist endpoints.
type PlaylistHandler struct {
	service playlistService
}

// NewPlaylistHandler constructs a playlist handler.
func NewPlaylistHandler(svc playlistService) *PlaylistHandler {
	return &PlaylistHandler{service: svc}
}

// Create godoc
// @Summary Create playlist
// @Tags Playlists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreatePlaylistRequest true "Playlist payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /playlists [post]
func (h *PlaylistHandler) Create(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid playlist payload"))
		return
	}

	playlist, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, playlist, "playlist created successfully")
}

// ListByUser godoc
// @Summary List a user's playlists
// @Tags Playlists
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /playlists/user/{userId} [get]
func (h *PlaylistHandler) ListByUser(c *gin.Context) {
	userID, err := pathID(c, "userId", "invalid user id")
	if err != nil {
		response.Error(c, err)
		return
	}
	playlists, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, playlists, "playlists fetched successfully", map[string]interface{}{"count": len(playlists)})
}

// Get godoc
// @Summary Get playlist
// @Tags Playlists
// @Produce json
// @Param playlistId path string true "Playlist ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{playlistId} [get]
func (h *PlaylistHandler) Get(c *gin.Context) {
	id, err := pathID(c, "playlistId", "invalid playlist id")
	if err != nil {
		response.Error(c, err)
		return
	}
	playlist, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, playlist, "playlist fetched successfully")
}

// AddVideo godoc
// @Summary Add video to playlist
// @Tags Playlists
// @Produce json
// @Security BearerAuth
// @Param playlistId path string true "Playlist ID"
// @Param videoId path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{playlistId}/add/{videoId} [patch]
func (h *PlaylistHandler) AddVideo(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	playlistID, videoID, err := playlistAndVideoIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	playlist, err := h.service.AddVideo(c.Request.Context(), userID, playlistID, videoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, playlist, "video added to playlist")
}

// RemoveVideo godoc
// @Summary Remove video from playlist
// @Tags Playlists
// @Produce json
// @Security BearerAuth
// @Param playlistId path string true "Playlist ID"
// @Param videoId path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{playlistId}/remove/{videoId} [patch]
func (h *PlaylistHandler) RemoveVideo(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	playlistID, videoID, err := playlistAndVideoIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	playlist, err := h.service.RemoveVideo(c.Request.Context(), userID, playlistID, videoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, playlist, "video removed from playlist")
}

// Update godoc
// @Summary Update playlist
// @Tags Playlists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param playlistId path string true "Playlist ID"
// @Param payload body dto.UpdatePlaylistRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /playlists/{playlistId} [patch]
func (h *PlaylistHandler) Update(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "playlistId", "invalid playlist id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid playlist payload"))
		return
	}

	playlist, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, playlist, "playlist updated successfully")
}

// Delete godoc
// @Summary Delete playlist
// @Tags Playlists
// @Produce json
// @Security BearerAuth
// @Param playlistId path string true "Playlist ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{playlistId} [delete]
func (h *PlaylistHandler) Delete(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "playlistId", "invalid playlist id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "playlist deleted successfully")
}

func playlistAndVideoIDs(c *gin.Context) (models.ID, models.ID, error) {
	playlistID, err := pathID(c, "playlistId", "invalid playlist id")
	if err != nil {
		return models.NilID, models.NilID, err
	}
	videoID, err := pathID(c, "videoId", "invalid video id")
	if err != nil {
		return models.NilID, models.NilID, err
	}
	return playlistID, videoID, nil
}
