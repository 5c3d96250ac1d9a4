package dto

// CreatePlaylistRequest is the body of POST /playlists.
type CreatePlaylistRequest struct {
	Name        string `json:"name" validate:"max=150"`
	Description string `json:"description" validate:"max=5000"`
}

// UpdatePlaylistRequest carries optional fields; nil means "leave unchanged".
type UpdatePlaylistRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=150"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}
