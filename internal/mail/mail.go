package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"
)

var ErrInvalidMessage = errors.New("invalid mail message")

type Message struct {
	ID        string
	Recipient string
	Subject   string
	HTMLBody  string
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.Recipient); err != nil {
		return fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
	}
	if strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.HTMLBody) == "" {
		return fmt.Errorf("%w: subject and body are required", ErrInvalidMessage)
	}
	return nil
}

// Dispatcher hands a message to some delivery channel. Callers do not retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

const VerificationSubject = "Verify your Bloogle account"

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Welcome to Bloogle, {{.Username}}!</h2>
  <p>Thanks for signing up. Please confirm your email address to activate your account.</p>
  <p>
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 18px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 4px;">Verify Email</a>
  </p>
  <p>Or paste this link into your browser:<br><a href="{{.Link}}">{{.Link}}</a></p>
  <p>This link is valid for {{.Validity}}.</p>
  <p>If you did not create an account, you can ignore this email.</p>
  <p>Team Bloogle</p>
</body>
</html>
`))

// VerificationLink joins baseURL and the token path.
func VerificationLink(baseURL string, token string) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + token
}

func VerificationEmail(recipient string, username string, link string, ttl time.Duration) (Message, error) {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, struct {
		Username string
		Link     string
		Validity string
	}{
		Username: username,
		Link:     link,
		Validity: humanDuration(ttl),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}

	return Message{
		Recipient: recipient,
		Subject:   VerificationSubject,
		HTMLBody:  body.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
