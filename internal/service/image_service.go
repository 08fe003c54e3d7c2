package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"bloogle/internal/media/sniffer"
	"bloogle/internal/models"
	"bloogle/internal/repository"
	"bloogle/internal/storage"
)

type ImageService struct {
	images   ImageMetaStore
	blobs    BlobStore
	maxBytes int64
	log      zerolog.Logger
}

func NewImageService(images ImageMetaStore, blobs BlobStore, maxBytes int64, log zerolog.Logger) *ImageService {
	return &ImageService{
		images:   images,
		blobs:    blobs,
		maxBytes: maxBytes,
		log:      log,
	}
}

// Save validates an upload by content, stores it once per checksum and returns its id.
func (s *ImageService) Save(ctx context.Context, upload Upload) (int64, error) {
	if upload.Data == nil {
		return 0, invalid("No image was uploaded.")
	}

	data, err := io.ReadAll(io.LimitReader(upload.Data, s.maxBytes+1))
	if err != nil {
		return 0, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return 0, invalid("The uploaded image is empty.")
	}
	if int64(len(data)) > s.maxBytes {
		return 0, invalid(fmt.Sprintf("Images must be %d KB or smaller.", s.maxBytes/1024))
	}

	kind, err := sniffer.DetectRaster(data)
	if err != nil {
		return 0, invalid("Only JPEG, PNG, GIF, WEBP or AVIF images are allowed.")
	}

	sum := sha256.Sum256(data)
	key := objectKey(sum[:], kind.Extension())

	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), kind.MIME); err != nil {
		return 0, fmt.Errorf("store image: %w", err)
	}

	id, err := s.images.Upsert(ctx, models.Image{
		Name:      cleanName(upload.Name, kind.Extension()),
		MimeType:  kind.MIME,
		ObjectKey: key,
		SizeBytes: int64(len(data)),
		Checksum:  sum[:],
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug().Int64("image_id", id).Str("mime", kind.MIME).Int("bytes", len(data)).Msg("image stored")
	return id, nil
}

// Open returns image metadata and a reader over its bytes; the caller closes the reader.
func (s *ImageService) Open(ctx context.Context, id int64) (models.Image, io.ReadCloser, error) {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return models.Image{}, nil, ErrNotFound
		}
		return models.Image{}, nil, err
	}

	body, err := s.blobs.Get(ctx, image.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return models.Image{}, nil, ErrNotFound
		}
		return models.Image{}, nil, err
	}
	return image, body, nil
}

func objectKey(sum []byte, ext string) string {
	digest := hex.EncodeToString(sum)
	return path.Join(digest[:2], digest+"."+ext)
}

func cleanName(name string, ext string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "upload." + ext
	}
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}
