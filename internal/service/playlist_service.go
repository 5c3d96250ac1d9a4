package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/vidtube-api/internal/dto"
	"github.com/noah-isme/vidtube-api/internal/models"
	appErrors "github.com/noah-isme/vidtube-api/pkg/errors"
)

type playlistRepository interface {
	Create(ctx context.Context, playlist *models.Playlist) error
	FindByID(ctx context.Context, id models.ID) (*models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID models.ID) ([]models.PlaylistSummary, error)
	ListVideoInfo(ctx context.Context, playlistID models.ID) ([]models.VideoInfo, error)
	Update(ctx context.Context, id, ownerID models.ID, changes models.PlaylistChanges) (*models.Playlist, error)
	Delete(ctx context.Context, id, ownerID models.ID) error
	AddVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error
	RemoveVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error
}

type videoRepository interface {
	Exists(ctx context.Context, id models.ID) (bool, error)
}

type ownerRepository interface {
	FindOwnerInfo(ctx context.Context, id models.ID) (*models.OwnerInfo, error)
}

type playlistCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// PlaylistService implements playlist use cases. Mutations are owner-only.
type PlaylistService struct {
	repo      playlistRepository
	videos    videoRepository
	owners    ownerRepository
	cache     playlistCache
	validator *validator.Validate
	logger    *zap.Logger
	// reinvalidateAfter repeats each invalidation once this long after a
	// mutation, evicting entries written by reads that overlapped the commit.
	reinvalidateAfter time.Duration
}

// PlaylistServiceOption customises a PlaylistService.
type PlaylistServiceOption func(*PlaylistService)

// WithReinvalidateAfter sets the delay of the second invalidation. Zero
// disables it.
func WithReinvalidateAfter(d time.Duration) PlaylistServiceOption {
	return func(s *PlaylistService) {
		if d >= 0 {
			s.reinvalidateAfter = d
		}
	}
}

// NewPlaylistService constructs a PlaylistService. cache may be nil.
func NewPlaylistService(repo playlistRepository, videos videoRepository, owners ownerRepository, cache playlistCache, validate *validator.Validate, logger *zap.Logger, opts ...PlaylistServiceOption) *PlaylistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &PlaylistService{
		repo:              repo,
		videos:            videos,
		owners:            owners,
		cache:             cache,
		validator:         validate,
		logger:            logger,
		reinvalidateAfter: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func playlistKey(id models.ID) string { return fmt.Sprintf("playlist:%s", id) }

func userPlaylistsKey(ownerID models.ID) string { return fmt.Sprintf("playlists:user:%s", ownerID) }

// Create stores a new empty playlist owned by ownerID.
func (s *PlaylistService) Create(ctx context.Context, ownerID models.ID, req dto.CreatePlaylistRequest) (*models.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return nil, appErrors.Validation("playlist name is required", "name")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid playlist payload", err)
	}

	playlist := &models.Playlist{Name: req.Name, Description: req.Description, OwnerID: ownerID}
	if err := s.repo.Create(ctx, playlist); err != nil {
		return nil, appErrors.Internal(err, "failed to create playlist")
	}
	s.invalidate(ctx, playlist)
	return playlist, nil
}

// ListByUser returns the playlists owned by the user with owner info joined.
func (s *PlaylistService) ListByUser(ctx context.Context, userID models.ID) ([]models.PlaylistSummary, error) {
	var cached []models.PlaylistSummary
	if hit, _ := s.cacheGet(ctx, userPlaylistsKey(userID), &cached); hit {
		return cached, nil
	}

	summaries, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list playlists")
	}
	s.cacheSet(ctx, userPlaylistsKey(userID), summaries)
	return summaries, nil
}

// Get returns a playlist. Video and owner joins only run for non-empty playlists.
func (s *PlaylistService) Get(ctx context.Context, id models.ID) (*models.PlaylistDetail, error) {
	var cached models.PlaylistDetail
	if hit, _ := s.cacheGet(ctx, playlistKey(id), &cached); hit {
		return &cached, nil
	}

	playlist, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.PlaylistDetail{Playlist: *playlist}
	if len(playlist.Videos) > 0 {
		videos, err := s.repo.ListVideoInfo(ctx, id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load playlist videos")
		}
		detail.VideoInfo = videos

		owner, err := s.owners.FindOwnerInfo(ctx, playlist.OwnerID)
		switch {
		case err == nil:
			detail.OwnerInfo = owner
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("playlist owner missing", zap.String("playlist_id", id.String()))
		default:
			return nil, appErrors.Internal(err, "failed to load playlist owner")
		}
	}

	s.cacheSet(ctx, playlistKey(id), detail)
	return detail, nil
}

// AddVideo adds an existing video to the caller's playlist. Adding a member
// again leaves a single entry.
func (s *PlaylistService) AddVideo(ctx context.Context, callerID, playlistID, videoID models.ID) (*models.Playlist, error) {
	playlist, err := s.owned(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	exists, err := s.videos.Exists(ctx, videoID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check video")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}

	if err := s.repo.AddVideo(ctx, playlist.ID, callerID, videoID); err != nil {
		return nil, mutationError(err, "failed to add video to playlist")
	}
	return s.reload(ctx, playlist)
}

// RemoveVideo removes a video from the caller's playlist. Removing a
// non-member succeeds.
func (s *PlaylistService) RemoveVideo(ctx context.Context, callerID, playlistID, videoID models.ID) (*models.Playlist, error) {
	playlist, err := s.owned(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RemoveVideo(ctx, playlist.ID, callerID, videoID); err != nil {
		return nil, mutationError(err, "failed to remove video from playlist")
	}
	return s.reload(ctx, playlist)
}

// Update changes the name and/or description of the caller's playlist.
func (s *PlaylistService) Update(ctx context.Context, callerID, id models.ID, req dto.UpdatePlaylistRequest) (*models.Playlist, error) {
	changes := models.PlaylistChanges{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Validation("playlist name cannot be empty", "name")
		}
		changes.Name = &name
		req.Name = &name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		changes.Description = &description
		req.Description = &description
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid playlist payload", err)
	}

	playlist, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if changes.Empty() {
		return playlist, nil
	}

	updated, err := s.repo.Update(ctx, id, callerID, changes)
	if err != nil {
		return nil, mutationError(err, "failed to update playlist")
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

// Delete removes the caller's playlist.
func (s *PlaylistService) Delete(ctx context.Context, callerID, id models.ID) error {
	playlist, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, callerID); err != nil {
		return mutationError(err, "failed to delete playlist")
	}
	s.invalidate(ctx, playlist)
	return nil
}

// owned loads the playlist and checks the caller is its owner.
func (s *PlaylistService) owned(ctx context.Context, callerID, id models.ID) (*models.Playlist, error) {
	playlist, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if playlist.OwnerID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can modify this playlist")
	}
	return playlist, nil
}

func (s *PlaylistService) find(ctx context.Context, id models.ID) (*models.Playlist, error) {
	playlist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "playlist not found")
		}
		return nil, appErrors.Internal(err, "failed to load playlist")
	}
	return playlist, nil
}

func (s *PlaylistService) reload(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error) {
	s.invalidate(ctx, playlist)
	return s.find(ctx, playlist.ID)
}

func (s *PlaylistService) invalidate(ctx context.Context, playlist *models.Playlist) {
	if s.cache == nil {
		return
	}
	keys := []string{playlistKey(playlist.ID), userPlaylistsKey(playlist.OwnerID)}
	_ = s.cache.Invalidate(ctx, keys...)
	if s.reinvalidateAfter <= 0 {
		return
	}
	time.AfterFunc(s.reinvalidateAfter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Invalidate(ctx, keys...); err != nil {
			s.logger.Warn("delayed cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		}
	})
}

func (s *PlaylistService) cacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *PlaylistService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func mutationError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "playlist not found")
	}
	return appErrors.Internal(err, message)
}
