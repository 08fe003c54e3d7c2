package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bloogle/internal/models"
)

var (
	ErrBlogNotFound = errors.New("blog not found")
	ErrNotBlogOwner = errors.New("blog belongs to another user")
)

// $1 is always the viewer id; 0 means anonymous and never matches a saved row.
const blogSelect = `
	SELECT b.id, b.author_id, u.user_name, b.title, b.description, b.image_id, b.post_time,
	       EXISTS (SELECT 1 FROM saved_blogs s WHERE s.blog_id = b.id AND s.user_id = $1) AS saved
	FROM blogs b
	JOIN users u ON u.id = b.author_id
`

type BlogRepository struct {
	db DBTX
}

func NewBlogRepository(db DBTX) *BlogRepository {
	return &BlogRepository{db: db}
}

func scanBlog(row scanner) (models.Blog, error) {
	var blog models.Blog
	err := row.Scan(
		&blog.ID,
		&blog.AuthorID,
		&blog.Author,
		&blog.Title,
		&blog.Description,
		&blog.ImageID,
		&blog.PostTime,
		&blog.Saved,
	)
	return blog, err
}

func (r *BlogRepository) List(ctx context.Context, viewerID int64) ([]models.Blog, error) {
	return r.list(ctx, blogSelect+` ORDER BY b.post_time DESC, b.id DESC`, viewerID)
}

func (r *BlogRepository) ListByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error) {
	return r.list(ctx, blogSelect+` WHERE b.author_id = $1 ORDER BY b.post_time DESC, b.id DESC`, authorID)
}

func (r *BlogRepository) ListSaved(ctx context.Context, userID int64) ([]models.Blog, error) {
	const filter = `
		JOIN saved_blogs sb ON sb.blog_id = b.id AND sb.user_id = $1
		ORDER BY sb.created_at DESC, b.id DESC
	`
	return r.list(ctx, blogSelect+filter, userID)
}

func (r *BlogRepository) list(ctx context.Context, query string, args ...any) ([]models.Blog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := make([]models.Blog, 0)
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, blog)
	}
	return blogs, rows.Err()
}

func (r *BlogRepository) Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error) {
	blog, err := scanBlog(r.db.QueryRow(ctx, blogSelect+` WHERE b.id = $2`, viewerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Blog{}, ErrBlogNotFound
		}
		return models.Blog{}, err
	}
	return blog, nil
}

func (r *BlogRepository) Create(ctx context.Context, blog *models.Blog) error {
	const query = `
		INSERT INTO blogs (author_id, title, description, image_id, post_time)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, post_time
	`
	if err := r.db.QueryRow(ctx, query,
		blog.AuthorID,
		blog.Title,
		blog.Description,
		blog.ImageID,
	).Scan(&blog.ID, &blog.PostTime); err != nil {
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// Update rewrites a post owned by blog.AuthorID. A nil ImageID keeps the current image.
func (r *BlogRepository) Update(ctx context.Context, blog models.Blog) error {
	const query = `
		UPDATE blogs
		SET title = $3,
		    description = $4,
		    image_id = COALESCE($5, image_id),
		    post_time = NOW()
		WHERE id = $1 AND author_id = $2
	`
	cmd, err := r.db.Exec(ctx, query, blog.ID, blog.AuthorID, blog.Title, blog.Description, blog.ImageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrForbidden(ctx, blog.ID)
	}
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id int64, authorID int64) error {
	const query = `DELETE FROM blogs WHERE id = $1 AND author_id = $2`
	cmd, err := r.db.Exec(ctx, query, id, authorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrForbidden(ctx, id)
	}
	return nil
}

func (r *BlogRepository) AuthorOf(ctx context.Context, id int64) (int64, error) {
	var authorID int64
	if err := r.db.QueryRow(ctx, `SELECT author_id FROM blogs WHERE id = $1`, id).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBlogNotFound
		}
		return 0, err
	}
	return authorID, nil
}

// missOrForbidden explains why a guarded write touched no rows.
func (r *BlogRepository) missOrForbidden(ctx context.Context, id int64) error {
	if _, err := r.AuthorOf(ctx, id); err != nil {
		return err
	}
	return ErrNotBlogOwner
}
