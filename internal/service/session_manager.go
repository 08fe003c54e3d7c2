package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bloogle/internal/auth"
	"bloogle/internal/ids"
	"bloogle/internal/models"
	"bloogle/internal/repository"
	"bloogle/internal/security"
)

const touchInterval = 10 * time.Minute

type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type SessionManager struct {
	sessions SessionStore
	ttl      time.Duration
	log      zerolog.Logger
	now      Clock
}

func NewSessionManager(sessions SessionStore, ttl time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Establish binds a new session to a verified user and returns the cookie handle.
func (m *SessionManager) Establish(ctx context.Context, user models.User, meta ClientMeta) (string, models.Session, error) {
	if !user.IsVerified {
		return "", models.Session{}, ErrUnverifiedUser
	}

	handle, hash, err := security.GenerateSessionToken()
	if err != nil {
		return "", models.Session{}, err
	}

	now := m.now()
	session := models.Session{
		ID:         ids.New(),
		TokenHash:  hash,
		UserID:     user.ID,
		IPAddress:  meta.IPAddress,
		UserAgent:  truncate(meta.UserAgent, 512),
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return "", models.Session{}, fmt.Errorf("create session: %w", err)
	}

	m.log.Info().Int64("user_id", user.ID).Str("session_id", session.ID).Msg("session established")
	return handle, session, nil
}

// Destroy removes the session behind handle. Unknown handles are not an error.
func (m *SessionManager) Destroy(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := m.sessions.DeleteByTokenHash(ctx, security.HashToken(handle)); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Resolve maps a cookie handle to the bound identity. Expired sessions are deleted on sight.
func (m *SessionManager) Resolve(ctx context.Context, handle string, meta ClientMeta) (auth.Identity, bool, error) {
	if handle == "" {
		return auth.Identity{}, false, nil
	}

	su, err := m.sessions.GetByTokenHash(ctx, security.HashToken(handle))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return auth.Identity{}, false, nil
		}
		return auth.Identity{}, false, fmt.Errorf("resolve session: %w", err)
	}

	now := m.now()
	if !now.Before(su.Session.ExpiresAt) {
		if err := m.sessions.DeleteByID(ctx, su.Session.ID); err != nil {
			m.log.Warn().Err(err).Str("session_id", su.Session.ID).Msg("delete expired session failed")
		}
		return auth.Identity{}, false, nil
	}
	if !su.IsVerified {
		return auth.Identity{}, false, nil
	}

	if now.Sub(su.Session.LastSeenAt) >= touchInterval {
		if err := m.sessions.Touch(ctx, su.Session.ID, now, meta.IPAddress, truncate(meta.UserAgent, 512)); err != nil {
			m.log.Warn().Err(err).Str("session_id", su.Session.ID).Msg("touch session failed")
		}
	}

	return auth.Identity{
		UserID:    su.Session.UserID,
		Username:  su.Username,
		SessionID: su.Session.ID,
		ImageID:   su.ImageID,
	}, true, nil
}

func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
