package service

import (
	"context"
	"errors"
	"io"
	"time"

	"bloogle/internal/models"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUserExists     = errors.New("username or email already exists")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnverifiedUser = errors.New("account is not verified")
)

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(message string) error {
	return ValidationError{Message: message}
}

type Clock func() time.Time

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (models.User, error)
	UpdateImage(ctx context.Context, userID int64, imageID int64) error
	DeleteStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash []byte) (models.SessionUser, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Touch(ctx context.Context, id string, seenAt time.Time, ip string, userAgent string) error
}

type BlogStore interface {
	List(ctx context.Context, viewerID int64) ([]models.Blog, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error)
	ListSaved(ctx context.Context, userID int64) ([]models.Blog, error)
	Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error)
	Create(ctx context.Context, blog *models.Blog) error
	Update(ctx context.Context, blog models.Blog) error
	Delete(ctx context.Context, id int64, authorID int64) error
	AuthorOf(ctx context.Context, id int64) (int64, error)
}

type SavedStore interface {
	Toggle(ctx context.Context, userID int64, blogID int64) (bool, error)
	Set(ctx context.Context, userID int64, blogID int64, saved bool) error
}

type ImageMetaStore interface {
	Upsert(ctx context.Context, image models.Image) (int64, error)
	GetByID(ctx context.Context, id int64) (models.Image, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// VerificationMarks is optional bookkeeping used by the already-verified and resend policies.
type VerificationMarks interface {
	MarkConsumed(ctx context.Context, tokenHash []byte, ttl time.Duration) error
	WasConsumed(ctx context.Context, tokenHash []byte) (bool, error)
	AcquireResendSlot(ctx context.Context, userID int64, cooldown time.Duration) (bool, error)
}

// Upload is a file received from a form, not yet validated.
type Upload struct {
	Name string
	Data io.Reader
}
