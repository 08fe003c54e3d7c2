package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bloogle/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("username or email already exists")
	ErrTokenNotFound = errors.New("verification token not found or expired")
)

const userColumns = `id, user_name, email, password_hash, is_verified, verification_token, verification_expires, image_id, created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.VerificationToken,
		&user.VerificationExpires,
		&user.ImageID,
		&user.CreatedAt,
	)
	return user, err
}

// Create inserts an unverified user and fills in the generated id.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (
			user_name, email, password_hash, is_verified, verification_token, verification_expires, image_id
		) VALUES (
			$1, $2, $3, FALSE, $4, $5, $6
		)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.VerificationToken,
		user.VerificationExpires,
		user.ImageID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.IsVerified = false
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_name = $1`, username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// SetVerificationToken overwrites the pending token of an unverified user.
func (r *UserRepository) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	const query = `
		UPDATE users
		SET verification_token = $2, verification_expires = $3
		WHERE id = $1 AND NOT is_verified
	`
	cmd, err := r.db.Exec(ctx, query, userID, token, expires)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeVerificationToken marks the owner of token verified if the token is
// still valid at now. Check and write happen in one statement.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	const query = `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, verification_expires = NULL
		WHERE verification_token = $1
		  AND verification_expires > $2
		  AND NOT is_verified
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrTokenNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateImage(ctx context.Context, userID int64, imageID int64) error {
	const query = `UPDATE users SET image_id = $2 WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, userID, imageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteStaleUnverified removes accounts whose verification window closed before cutoff.
func (r *UserRepository) DeleteStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM users
		WHERE NOT is_verified
		  AND verification_expires IS NOT NULL
		  AND verification_expires < $1
	`
	cmd, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
