package models

import "time"

// Playlist is an ordered, duplicate-free collection of video references
// owned by one user.
type Playlist struct {
	ID          ID        `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	OwnerID     ID        `db:"owner_id" json:"owner"`
	Videos      []ID      `db:"-" json:"videos"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// PlaylistSummary is a list row with the owner profile joined.
type PlaylistSummary struct {
	ID          ID        `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	VideoCount  int       `db:"video_count" json:"videoCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	OwnerInfo   OwnerInfo `db:"-" json:"ownerInfo"`
}

// PlaylistDetail is a playlist with its videos and owner joined. Both joins
// are left empty when the playlist has no videos.
type PlaylistDetail struct {
	Playlist
	VideoInfo []VideoInfo `json:"videoInfo,omitempty"`
	OwnerInfo *OwnerInfo  `json:"ownerInfo,omitempty"`
}

// PlaylistChanges carries the optional fields of an update.
type PlaylistChanges struct {
	Name        *string
	Description *string
}

// Empty reports whether no field was provided.
func (c PlaylistChanges) Empty() bool {
	return c.Name == nil && c.Description == nil
}
