package models

import "time"

// User represents an account stored in the users table. The password hash
// never leaves the server.
type User struct {
	ID            ID        `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"fullname"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	AvatarURL     string    `db:"avatar_url" json:"avatar"`
	CoverImageURL string    `db:"cover_image_url" json:"coverImage"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnerInfo is the public slice of a user joined onto owned resources.
type OwnerInfo struct {
	ID       ID     `db:"owner_id" json:"id"`
	FullName string `db:"owner_full_name" json:"fullname"`
	Username string `db:"owner_username" json:"username"`
	Avatar   string `db:"owner_avatar" json:"avatar"`
}
