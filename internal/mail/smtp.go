package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"bloogle/internal/config"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPDispatcher delivers synchronously over SMTP.
type SMTPDispatcher struct {
	from   string
	dialer dialer
}

func NewSMTPDispatcher(cfg config.SMTPConfig, from string) *SMTPDispatcher {
	return &SMTPDispatcher{
		from:   from,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (d *SMTPDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.dialer.DialAndSend(d.build(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (d *SMTPDispatcher) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	if msg.ID != "" {
		m.SetHeader("X-Bloogle-Message-Id", msg.ID)
	}
	m.SetBody("text/html", msg.HTMLBody)
	return m
}
