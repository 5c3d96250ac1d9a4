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

const playlistColumns = `id, name, description, owner_id, created_at, updated_at`

// PlaylistRepository handles persistence of playlists and their membership.
type PlaylistRepository struct {
	db *sqlx.DB
}

// NewPlaylistRepository constructs a playlist repository.
func NewPlaylistRepository(db *sqlx.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist with no videos.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if playlist.ID.IsZero() {
		playlist.ID = models.NewID()
	}
	now := time.Now().UTC()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now
	playlist.Videos = []models.ID{}

	const query = `INSERT INTO playlists (` + playlistColumns + `) VALUES (:id, :name, :description, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, playlist); err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return nil
}

// FindByID loads a playlist and its ordered video identifiers.
func (r *PlaylistRepository) FindByID(ctx context.Context, id models.ID) (*models.Playlist, error) {
	const query = `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1`
	var playlist models.Playlist
	if err := r.db.GetContext(ctx, &playlist, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find playlist: %w", err)
	}
	videos, err := r.videoIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Videos = videos
	return &playlist, nil
}

func (r *PlaylistRepository) videoIDs(ctx context.Context, playlistID models.ID) ([]models.ID, error) {
	const query = `SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position, added_at`
	ids := []models.ID{}
	if err := r.db.SelectContext(ctx, &ids, query, playlistID); err != nil {
		return nil, fmt.Errorf("list playlist videos: %w", err)
	}
	return ids, nil
}

type playlistSummaryRow struct {
	models.PlaylistSummary
	models.OwnerInfo
}

// ListByOwner returns every playlist of a user with the owner profile and
// video count joined.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, ownerID models.ID) ([]models.PlaylistSummary, error) {
	const query = `SELECT p.id, p.name, p.description, p.created_at, p.updated_at,
	COUNT(pv.video_id) AS video_count,
	u.id AS owner_id, u.full_name AS owner_full_name, u.username AS owner_username, u.avatar_url AS owner_avatar
FROM playlists p
JOIN users u ON u.id = p.owner_id
LEFT JOIN playlist_videos pv ON pv.playlist_id = p.id
WHERE p.owner_id = $1
GROUP BY p.id, u.id
ORDER BY p.created_at DESC`
	var rows []playlistSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("list playlists by owner: %w", err)
	}
	summaries := make([]models.PlaylistSummary, 0, len(rows))
	for _, row := range rows {
		summary := row.PlaylistSummary
		summary.OwnerInfo = row.OwnerInfo
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListVideoInfo returns the joined video projection in playlist order.
func (r *PlaylistRepository) ListVideoInfo(ctx context.Context, playlistID models.ID) ([]models.VideoInfo, error) {
	const query = `SELECT v.id, v.title, v.description, v.duration, v.created_at
FROM playlist_videos pv
JOIN videos v ON v.id = pv.video_id
WHERE pv.playlist_id = $1
ORDER BY pv.position, pv.added_at`
	infos := []models.VideoInfo{}
	if err := r.db.SelectContext(ctx, &infos, query, playlistID); err != nil {
		return nil, fmt.Errorf("list playlist video info: %w", err)
	}
	return infos, nil
}

// Update applies the provided fields when the playlist still belongs to
// ownerID. It returns sql.ErrNoRows when no row matched.
func (r *PlaylistRepository) Update(ctx context.Context, id, ownerID models.ID, changes models.PlaylistChanges) (*models.Playlist, error) {
	const query = `UPDATE playlists SET name = COALESCE($3, name), description = COALESCE($4, description), updated_at = $5
WHERE id = $1 AND owner_id = $2
RETURNING ` + playlistColumns
	var playlist models.Playlist
	err := r.db.GetContext(ctx, &playlist, query, id, ownerID, nullableString(changes.Name), nullableString(changes.Description), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update playlist: %w", err)
	}
	videos, err := r.videoIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Videos = videos
	return &playlist, nil
}

// Delete removes a playlist owned by ownerID. Membership rows cascade.
func (r *PlaylistRepository) Delete(ctx context.Context, id, ownerID models.ID) error {
	const query = `DELETE FROM playlists WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return requireAffected(res)
}

// AddVideo appends a video unless it is already a member. It returns
// sql.ErrNoRows when the playlist no longer belongs to ownerID.
func (r *PlaylistRepository) AddVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	const insert = `INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
SELECT p.id, $3::uuid, COALESCE((SELECT MAX(position) FROM playlist_videos WHERE playlist_id = p.id), 0) + 1, $4::timestamptz
FROM playlists p
WHERE p.id = $1 AND p.owner_id = $2
ON CONFLICT (playlist_id, video_id) DO NOTHING`
	return r.withTouch(ctx, playlistID, ownerID, func(tx *sqlx.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, insert, playlistID, ownerID, videoID, now); err != nil {
			return fmt.Errorf("add playlist video: %w", err)
		}
		return nil
	})
}

// RemoveVideo drops a video from the playlist. Removing a non-member succeeds.
func (r *PlaylistRepository) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID models.ID) error {
	const remove = `DELETE FROM playlist_videos pv
USING playlists p
WHERE pv.playlist_id = p.id AND p.id = $1 AND p.owner_id = $2 AND pv.video_id = $3`
	return r.withTouch(ctx, playlistID, ownerID, func(tx *sqlx.Tx, _ time.Time) error {
		if _, err := tx.ExecContext(ctx, remove, playlistID, ownerID, videoID); err != nil {
			return fmt.Errorf("remove playlist video: %w", err)
		}
		return nil
	})
}

// withTouch runs fn and bumps updated_at in one transaction. A missing or
// re-owned playlist rolls back with sql.ErrNoRows.
func (r *PlaylistRepository) withTouch(ctx context.Context, playlistID, ownerID models.ID, fn func(tx *sqlx.Tx, now time.Time) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if err := fn(tx, now); err != nil {
		return err
	}

	const touch = `UPDATE playlists SET updated_at = $3 WHERE id = $1 AND owner_id = $2`
	res, err := tx.ExecContext(ctx, touch, playlistID, ownerID, now)
	if err != nil {
		return fmt.Errorf("touch playlist: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
