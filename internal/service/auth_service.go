package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bloogle/internal/config"
	bmail "bloogle/internal/mail"
	"bloogle/internal/models"
	"bloogle/internal/repository"
	"bloogle/internal/security"
)

type VerifyOutcome int

const (
	VerifySuccess VerifyOutcome = iota + 1
	VerifyNotFoundOrExpired
	VerifyAlreadyUsed
)

type CredentialOutcome int

const (
	CredentialsSuccess CredentialOutcome = iota + 1
	CredentialsUserNotFound
	CredentialsUnverified
	CredentialsBadSecret
)

func (o CredentialOutcome) String() string {
	switch o {
	case CredentialsSuccess:
		return "success"
	case CredentialsUserNotFound:
		return "user_not_found"
	case CredentialsUnverified:
		return "unverified"
	case CredentialsBadSecret:
		return "bad_secret"
	default:
		return "unknown"
	}
}

// bcrypt only looks at the first 72 bytes.
const maxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// dummyHash keeps the not-found path about as slow as a real comparison.
var dummyHash, _ = security.HashPassword("bloogle-timing-equaliser", security.DefaultBcryptCost)

type ImageSaver interface {
	Save(ctx context.Context, upload Upload) (int64, error)
}

type AuthService struct {
	users  UserStore
	issuer *TokenIssuer
	marks  VerificationMarks
	mailer bmail.Dispatcher
	images ImageSaver
	cfg    *config.AppConfig
	log    zerolog.Logger
	now    Clock
}

func NewAuthService(
	users UserStore,
	issuer *TokenIssuer,
	marks VerificationMarks,
	mailer bmail.Dispatcher,
	images ImageSaver,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		issuer: issuer,
		marks:  marks,
		mailer: mailer,
		images: images,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Avatar   *Upload
}

type RegisterResult struct {
	User      models.User
	EmailSent bool
}

func NormalizeRegistration(input RegisterInput) RegisterInput {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	return input
}

func validateRegistration(input RegisterInput) error {
	if !usernamePattern.MatchString(input.Username) {
		return invalid("Usernames are 3 to 32 letters, digits, dots, dashes or underscores.")
	}
	if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		return invalid("Please enter a valid email address.")
	}
	if len(input.Password) < 8 {
		return invalid("Passwords must be at least 8 characters.")
	}
	if len(input.Password) > maxPasswordBytes {
		return invalid("Passwords must be at most 72 bytes.")
	}
	return nil
}

// Register creates an unverified account and sends its verification link.
// A failed send is logged and does not undo the account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	input = NormalizeRegistration(input)
	if err := validateRegistration(input); err != nil {
		return RegisterResult{}, err
	}

	// Checked up front so a duplicate signup never stores its avatar.
	// The unique constraints on users still settle races.
	if err := s.ensureAvailable(ctx, input.Username, input.Email); err != nil {
		return RegisterResult{}, err
	}

	hash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return RegisterResult{}, err
	}

	token, expires, err := s.issuer.Issue()
	if err != nil {
		return RegisterResult{}, err
	}

	user := models.User{
		Username:            input.Username,
		Email:               input.Email,
		PasswordHash:        hash,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	}

	if input.Avatar != nil {
		imageID, err := s.images.Save(ctx, *input.Avatar)
		if err != nil {
			return RegisterResult{}, err
		}
		user.ImageID = &imageID
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return RegisterResult{}, ErrUserExists
		}
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	sent := s.sendVerification(ctx, user, token)
	return RegisterResult{User: user, EmailSent: sent}, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username string, email string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("find user: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("find user: %w", err)
	}
	return nil
}

// VerifyToken consumes a verification token in one conditional write.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (VerifyOutcome, error) {
	if token == "" || len(token) > 256 {
		return VerifyNotFoundOrExpired, nil
	}

	user, err := s.users.ConsumeVerificationToken(ctx, token, s.now())
	if err != nil {
		if !errors.Is(err, repository.ErrTokenNotFound) {
			return 0, fmt.Errorf("consume verification token: %w", err)
		}
		if s.reportAlreadyVerified() {
			used, err := s.marks.WasConsumed(ctx, security.HashToken(token))
			if err != nil {
				s.log.Warn().Err(err).Msg("verification marker lookup failed")
			} else if used {
				return VerifyAlreadyUsed, nil
			}
		}
		return VerifyNotFoundOrExpired, nil
	}

	if s.reportAlreadyVerified() {
		if err := s.marks.MarkConsumed(ctx, security.HashToken(token), s.issuer.TTL()); err != nil {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("record verification marker failed")
		}
	}

	s.log.Info().Int64("user_id", user.ID).Msg("email verified")
	return VerifySuccess, nil
}

// VerifyCredentials checks, in order, existence, verification state and secret.
// The returned user is only meaningful for CredentialsSuccess.
func (s *AuthService) VerifyCredentials(ctx context.Context, username string, password string) (CredentialOutcome, models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = security.VerifyPassword(password, dummyHash)
			return CredentialsUserNotFound, models.User{}, nil
		}
		return 0, models.User{}, fmt.Errorf("find user: %w", err)
	}

	matches, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return 0, models.User{}, err
	}

	if !user.IsVerified {
		if matches && s.cfg.Auth.ResendOnLogin {
			s.resend(ctx, user)
		}
		return CredentialsUnverified, models.User{}, nil
	}

	if !matches {
		return CredentialsBadSecret, models.User{}, nil
	}
	return CredentialsSuccess, user, nil
}

// Resend re-issues a link for an unverified account. Unknown or verified addresses are ignored.
func (s *AuthService) Resend(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsVerified {
		return nil
	}
	s.resend(ctx, user)
	return nil
}

func (s *AuthService) resend(ctx context.Context, user models.User) {
	if s.marks != nil {
		ok, err := s.marks.AcquireResendSlot(ctx, user.ID, s.cfg.Auth.ResendCooldown)
		if err != nil {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("resend cooldown check failed")
			return
		}
		if !ok {
			s.log.Debug().Int64("user_id", user.ID).Msg("verification resend throttled")
			return
		}
	}

	token, expires, err := s.issuer.Issue()
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("reissue verification token failed")
		return
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, token, expires); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("store reissued verification token failed")
		return
	}
	s.sendVerification(ctx, user, token)
}

func (s *AuthService) sendVerification(ctx context.Context, user models.User, token string) bool {
	link := bmail.VerificationLink(s.cfg.Mail.BaseURL, token)
	msg, err := bmail.VerificationEmail(user.Email, user.Username, link, s.issuer.TTL())
	if err == nil {
		err = s.mailer.Dispatch(ctx, msg)
	}
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("verification email dispatch failed")
		return false
	}
	return true
}

func (s *AuthService) reportAlreadyVerified() bool {
	return s.cfg.Auth.ReportAlreadyVerified && s.marks != nil
}

// PurgeStaleRegistrations deletes accounts that never verified within olderThan past their expiry.
func (s *AuthService) PurgeStaleRegistrations(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.users.DeleteStaleUnverified(ctx, s.now().Add(-olderThan))
}
