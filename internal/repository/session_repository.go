package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bloogle/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, token_hash, user_id, ip_address, user_agent, created_at, last_seen_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $6, $7
		)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.TokenHash,
		session.UserID,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return err
}

// GetByTokenHash returns the session and the user it is bound to, expired or not.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash []byte) (models.SessionUser, error) {
	const query = `
		SELECT s.id, s.token_hash, s.user_id, s.ip_address, s.user_agent, s.created_at, s.last_seen_at, s.expires_at,
		       u.user_name, u.is_verified, u.image_id
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`

	var su models.SessionUser
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&su.Session.ID,
		&su.Session.TokenHash,
		&su.Session.UserID,
		&su.Session.IPAddress,
		&su.Session.UserAgent,
		&su.Session.CreatedAt,
		&su.Session.LastSeenAt,
		&su.Session.ExpiresAt,
		&su.Username,
		&su.IsVerified,
		&su.ImageID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SessionUser{}, ErrSessionNotFound
		}
		return models.SessionUser{}, err
	}
	return su, nil
}

// DeleteByTokenHash is a no-op for unknown hashes.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash []byte) error {
	const query = `DELETE FROM user_sessions WHERE token_hash = $1`
	_, err := r.db.Exec(ctx, query, tokenHash)
	return err
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string, seenAt time.Time, ip string, userAgent string) error {
	const query = `
		UPDATE user_sessions
		SET last_seen_at = $2,
		    ip_address = COALESCE(NULLIF($3, ''), ip_address),
		    user_agent = COALESCE(NULLIF($4, ''), user_agent)
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, seenAt, ip, userAgent)
	return err
}
