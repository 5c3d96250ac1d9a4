package models

import "time"

// Video is a published media item. Only what playlists need is modelled here.
type Video struct {
	ID           ID        `db:"id" json:"id"`
	OwnerID      ID        `db:"owner_id" json:"owner"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Duration     float64   `db:"duration" json:"duration"`
	VideoURL     string    `db:"video_url" json:"videoFile"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail"`
	Views        int64     `db:"views" json:"views"`
	IsPublished  bool      `db:"is_published" json:"isPublished"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// VideoInfo is the projection of a video joined onto a playlist.
type VideoInfo struct {
	ID          ID        `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Duration    float64   `db:"duration" json:"duration"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
