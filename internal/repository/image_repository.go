package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bloogle/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

type ImageRepository struct {
	db DBTX
}

func NewImageRepository(db DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

// Upsert stores image metadata, reusing the existing row when the checksum is already known.
func (r *ImageRepository) Upsert(ctx context.Context, image models.Image) (int64, error) {
	const query = `
		INSERT INTO images (name, mimetype, object_key, size_bytes, checksum)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (checksum) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRow(ctx, query,
		image.Name,
		image.MimeType,
		image.ObjectKey,
		image.SizeBytes,
		image.Checksum,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert image: %w", err)
	}
	return id, nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id int64) (models.Image, error) {
	const query = `
		SELECT id, name, mimetype, object_key, size_bytes, checksum, created_at
		FROM images WHERE id = $1
	`
	var image models.Image
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&image.ID,
		&image.Name,
		&image.MimeType,
		&image.ObjectKey,
		&image.SizeBytes,
		&image.Checksum,
		&image.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}
