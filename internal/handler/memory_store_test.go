package handler

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/noah-isme/vidtube-api/internal/models"
	"github.com/noah-isme/vidtube-api/internal/repository"
	"github.com/noah-isme/vidtube-api/pkg/assets"
)

// memoryStore backs the real services with maps so routes can be exercised
// end to end without Postgres.
type memoryStore struct {
	mu        sync.Mutex
	users     map[models.ID]models.User
	sessions  map[models.ID]models.Session
	playlists map[models.ID]models.Playlist
	videos    map[models.ID]models.VideoInfo
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[models.ID]models.User{},
		sessions:  map[models.ID]models.Session{},
		playlists: map[models.ID]models.Playlist{},
		videos:    map[models.ID]models.VideoInfo{},
	}
}

type memoryUsers struct{ *memoryStore }

func (s memoryUsers) FindByID(ctx context.Context, id models.ID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (s memoryUsers) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			found := user
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memoryUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := s.FindByUsernameOrEmail(ctx, username, email)
	return err == nil, nil
}

func (s memoryUsers) Create(ctx context.Context, user *models.User) error {
	if exists, _ := s.ExistsByUsernameOrEmail(ctx, user.Username, user.Email); exists {
		return repository.ErrDuplicate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = models.NewID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s memoryUsers) FindOwnerInfo(ctx context.Context, id models.ID) (*models.OwnerInfo, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OwnerInfo{ID: user.ID, FullName: user.FullName, Username: user.Username, Avatar: user.AvatarURL}, nil
}

type memorySessions struct{ *memoryStore }

func (s memorySessions) Upsert(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = *session
	return nil
}

func (s memorySessions) FindByUserID(ctx context.Context, userID models.ID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (s memorySessions) CompareAndSwap(ctx context.Context, expected string, next *models.Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[next.UserID]
	if !ok || current.RefreshToken != expected {
		return false, nil
	}
	s.sessions[next.UserID] = *next
	return true, nil
}

func (s memorySessions) Delete(ctx context.Context, userID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

type memoryPlaylists struct{ *memoryStore }

func (s memoryPlaylists) Create(ctx context.Context, playlist *models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist.ID = models.NewID()
	playlist.Videos = []models.ID{}
	playlist.CreatedAt = time.Now().UTC()
	playlist.UpdatedAt = playlist.CreatedAt
	s.playlists[playlist.ID] = *playlist
	return nil
}

func (s memoryPlaylists) FindByID(ctx context.Context, id models.ID) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	playlist.Videos = append([]models.ID{}, playlist.Videos...)
	return &playlist, nil
}

func (s memoryPlaylists) ListByOwner(ctx context.Context, ownerID models.ID) ([]models.PlaylistSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PlaylistSummary{}
	for _, p := range s.playlists {
		if p.OwnerID == ownerID {
			out = append(out, models.PlaylistSummary{ID: p.ID, Name: p.Name, Description: p.Description, VideoCount: len(p.Videos)})
		}
	}
	return out, nil
}

func (s memoryPlaylists) ListVideoInfo(ctx context.Context, playlistID models.ID) ([]models.VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.VideoInfo{}
	for _, id := range s.playlists[playlistID].Videos {
		out = append(out, s.videos[id])
	}
	return out, nil
}

func (s memoryPlaylists) mutate(id, ownerID models.ID, fn func(p *models.Playlist)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	fn(&playlist)
	s.playlists[id] = playlist
	return nil
}

func (s memoryPlaylists) Update(ctx context.Context, id, ownerID models.ID, changes models.PlaylistChanges) (*models.Playlist, error) {
	err := s.mutate(id, ownerID, func(p *models.Playlist) {
		if changes.Name != nil {
			p.Name = *changes.Name
		}
		if changes.Description != nil {
			p.Description = *changes.Description
		}
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s memoryPlaylists) Delete(ctx context.Context, id, ownerID models.ID) error {
	if err := s.mutate(id, ownerID, func(*models.Playlist) {}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playlists, id)
	return nil
}

func (s memoryPlaylists) AddVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	return s.mutate(playlistID, ownerID, func(p *models.Playlist) {
		for _, existing := range p.Videos {
			if existing == videoID {
				return
			}
		}
		p.Videos = append(p.Videos, videoID)
	})
}

func (s memoryPlaylists) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	return s.mutate(playlistID, ownerID, func(p *models.Playlist) {
		kept := []models.ID{}
		for _, existing := range p.Videos {
			if existing != videoID {
				kept = append(kept, existing)
			}
		}
		p.Videos = kept
	})
}

func (s memoryPlaylists) Exists(ctx context.Context, id models.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.videos[id]
	return ok, nil
}

// localUploader stands in for the asset host and removes the staged file
// like the real adapter does.
type localUploader struct{}

func (localUploader) Upload(ctx context.Context, localPath string) (*assets.Asset, error) {
	defer os.Remove(localPath)
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	name := filepath.Base(localPath)
	return &assets.Asset{PublicID: "vidtube/" + name, SecureURL: "https://res.cloudinary.com/demo/" + name, ResourceType: "image"}, nil
}

func (localUploader) Destroy(ctx context.Context, asset *assets.Asset) error { return nil }
