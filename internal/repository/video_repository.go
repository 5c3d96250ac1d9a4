package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vidtube-api/internal/models"
)

// VideoRepository reads the videos table.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs a video repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Exists reports whether a video with the identifier is stored.
func (r *VideoRepository) Exists(ctx context.Context, id models.ID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check video exists: %w", err)
	}
	return exists, nil
}
