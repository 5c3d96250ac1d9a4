package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/vidtube-api/internal/models"
	"github.com/noah-isme/vidtube-api/internal/repository"
	"github.com/noah-isme/vidtube-api/pkg/assets"
)

type memoryUserRepo struct {
	mu        sync.Mutex
	users     map[models.ID]*models.User
	createErr error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[models.ID]*models.User{}}
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id models.ID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = models.NewID()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) FindOwnerInfo(ctx context.Context, id models.ID) (*models.OwnerInfo, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OwnerInfo{ID: user.ID, FullName: user.FullName, Username: user.Username, Avatar: user.AvatarURL}, nil
}

// memorySessionRepo mirrors the single-row-per-user table with a
// conditional update for rotation.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[models.ID]models.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: map[models.ID]models.Session{}}
}

func (r *memorySessionRepo) Upsert(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.UserID] = *session
	return nil
}

func (r *memorySessionRepo) FindByUserID(ctx context.Context, userID models.ID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (r *memorySessionRepo) CompareAndSwap(ctx context.Context, expected string, next *models.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[next.UserID]
	if !ok || current.RefreshToken != expected {
		return false, nil
	}
	r.sessions[next.UserID] = *next
	return true, nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, userID models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

type fakeUploader struct {
	mu        sync.Mutex
	failPaths map[string]bool
	uploaded  []string
	destroyed []string
}

func (u *fakeUploader) Upload(ctx context.Context, localPath string) (*assets.Asset, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failPaths[localPath] {
		return nil, errors.New("upload failed")
	}
	u.uploaded = append(u.uploaded, localPath)
	return &assets.Asset{
		PublicID:     "vidtube/" + localPath,
		SecureURL:    "https://res.cloudinary.com/demo/" + localPath,
		ResourceType: "image",
	}, nil
}

func (u *fakeUploader) Destroy(ctx context.Context, asset *assets.Asset) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.destroyed = append(u.destroyed, asset.PublicID)
	return nil
}

type memoryPlaylistRepo struct {
	mu           sync.Mutex
	playlists    map[models.ID]*models.Playlist
	users        *memoryUserRepo
	videos       map[models.ID]models.VideoInfo
	videoInfoHit int
}

func newMemoryPlaylistRepo(users *memoryUserRepo) *memoryPlaylistRepo {
	return &memoryPlaylistRepo{
		playlists: map[models.ID]*models.Playlist{},
		users:     users,
		videos:    map[models.ID]models.VideoInfo{},
	}
}

func (r *memoryPlaylistRepo) addVideoRow(title string) models.ID {
	id := models.NewID()
	r.videos[id] = models.VideoInfo{ID: id, Title: title, Duration: 42, CreatedAt: time.Now().UTC()}
	return id
}

func (r *memoryPlaylistRepo) Exists(ctx context.Context, id models.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.videos[id]
	return ok, nil
}

func (r *memoryPlaylistRepo) Create(ctx context.Context, playlist *models.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if playlist.ID.IsZero() {
		playlist.ID = models.NewID()
	}
	playlist.Videos = []models.ID{}
	playlist.CreatedAt = time.Now().UTC()
	playlist.UpdatedAt = playlist.CreatedAt
	copied := *playlist
	r.playlists[playlist.ID] = &copied
	return nil
}

func (r *memoryPlaylistRepo) FindByID(ctx context.Context, id models.ID) (*models.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *playlist
	copied.Videos = append([]models.ID{}, playlist.Videos...)
	return &copied, nil
}

func (r *memoryPlaylistRepo) ListByOwner(ctx context.Context, ownerID models.ID) ([]models.PlaylistSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PlaylistSummary{}
	for _, p := range r.playlists {
		if p.OwnerID != ownerID {
			continue
		}
		summary := models.PlaylistSummary{ID: p.ID, Name: p.Name, Description: p.Description, VideoCount: len(p.Videos), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
		if info, err := r.users.FindOwnerInfo(ctx, ownerID); err == nil {
			summary.OwnerInfo = *info
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryPlaylistRepo) ListVideoInfo(ctx context.Context, playlistID models.ID) ([]models.VideoInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videoInfoHit++
	out := []models.VideoInfo{}
	for _, id := range r.playlists[playlistID].Videos {
		out = append(out, r.videos[id])
	}
	return out, nil
}

func (r *memoryPlaylistRepo) Update(ctx context.Context, id, ownerID models.ID, changes models.PlaylistChanges) (*models.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	if changes.Name != nil {
		playlist.Name = *changes.Name
	}
	if changes.Description != nil {
		playlist.Description = *changes.Description
	}
	playlist.UpdatedAt = time.Now().UTC()
	copied := *playlist
	return &copied, nil
}

func (r *memoryPlaylistRepo) Delete(ctx context.Context, id, ownerID models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(r.playlists, id)
	return nil
}

func (r *memoryPlaylistRepo) AddVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	for _, existing := range playlist.Videos {
		if existing == videoID {
			return nil
		}
	}
	playlist.Videos = append(playlist.Videos, videoID)
	return nil
}

func (r *memoryPlaylistRepo) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	kept := playlist.Videos[:0]
	for _, existing := range playlist.Videos {
		if existing != videoID {
			kept = append(kept, existing)
		}
	}
	playlist.Videos = kept
	return nil
}

// recordingCache keeps JSON-encoded entries so hits go through the same
// decode step as Redis. When err is set every call fails.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
	hits        int
	err         error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]byte{}}
}

func (c *recordingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	c.hits++
	return true, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keys...)
	if c.err != nil {
		return c.err
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *recordingCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func newTestTokenService() *TokenService {
	return NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "vidtube-test",
	})
}
