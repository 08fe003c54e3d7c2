package models

import "time"

type User struct {
	ID                  int64
	Username            string
	Email               string
	PasswordHash        string
	IsVerified          bool
	VerificationToken   *string
	VerificationExpires *time.Time
	ImageID             *int64
	CreatedAt           time.Time
}

// PendingVerification reports whether the account still holds an unexpired token at now.
func (u User) PendingVerification(now time.Time) bool {
	return !u.IsVerified && u.VerificationToken != nil && u.VerificationExpires != nil && u.VerificationExpires.After(now)
}

type Session struct {
	ID         string
	TokenHash  []byte
	UserID     int64
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// SessionUser is a session joined with the identity it is bound to.
type SessionUser struct {
	Session    Session
	Username   string
	IsVerified bool
	ImageID    *int64
}
