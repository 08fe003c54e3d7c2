package repository

import (
	"context"
	"fmt"
)

type SavedRepository struct {
	db DBTX
}

func NewSavedRepository(db DBTX) *SavedRepository {
	return &SavedRepository{db: db}
}

// Toggle flips the saved state of a post for a user and reports the new state.
// Concurrent toggles from the unsaved state converge on one row.
func (r *SavedRepository) Toggle(ctx context.Context, userID int64, blogID int64) (bool, error) {
	const query = `
		WITH removed AS (
			DELETE FROM saved_blogs
			WHERE user_id = $1 AND blog_id = $2
			RETURNING 1
		), inserted AS (
			INSERT INTO saved_blogs (user_id, blog_id)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT (user_id, blog_id) DO NOTHING
			RETURNING 1
		)
		SELECT NOT EXISTS (SELECT 1 FROM removed)
	`
	var saved bool
	if err := r.db.QueryRow(ctx, query, userID, blogID).Scan(&saved); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, ErrBlogNotFound
		}
		return false, fmt.Errorf("toggle saved: %w", err)
	}
	return saved, nil
}

// Set applies an explicit saved state; repeating it is harmless.
func (r *SavedRepository) Set(ctx context.Context, userID int64, blogID int64, saved bool) error {
	query := `DELETE FROM saved_blogs WHERE user_id = $1 AND blog_id = $2`
	if saved {
		query = `
			INSERT INTO saved_blogs (user_id, blog_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, blog_id) DO NOTHING
		`
	}
	if _, err := r.db.Exec(ctx, query, userID, blogID); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return ErrBlogNotFound
		}
		return fmt.Errorf("set saved: %w", err)
	}
	return nil
}
