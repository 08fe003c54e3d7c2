package service

import (
	"fmt"
	"time"

	"bloogle/internal/security"
)

// TokenIssuer mints verification tokens. It does not persist them.
type TokenIssuer struct {
	ttl      time.Duration
	now      Clock
	generate func() (string, error)
}

func NewTokenIssuer(ttl time.Duration, now Clock) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		ttl: ttl,
		now: now,
		generate: func() (string, error) {
			return security.GenerateToken(security.DefaultTokenBytes)
		},
	}
}

func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a fresh token that expires exactly ttl after the issuing instant.
func (i *TokenIssuer) Issue() (string, time.Time, error) {
	issuedAt := i.now()
	token, err := i.generate()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue verification token: %w", err)
	}
	return token, issuedAt.Add(i.ttl), nil
}
