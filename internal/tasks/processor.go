package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bloogle/internal/mail"
)

// Processor turns stream entries into outbound mail.
type Processor struct {
	logger     zerolog.Logger
	dispatcher mail.Dispatcher
}

func NewProcessor(logger zerolog.Logger, dispatcher mail.Dispatcher) *Processor {
	return &Processor{
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// Handle returns an error only for failures worth retrying. Malformed entries are logged and acked.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case mail.TaskTypeEmail:
		return p.handleEmail(ctx, msg)
	default:
		p.logger.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleEmail(ctx context.Context, msg redis.XMessage) error {
	email, err := mail.DecodeStreamValues(msg.Values)
	if err != nil {
		if errors.Is(err, mail.ErrInvalidMessage) {
			p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("discarding malformed email task")
			return nil
		}
		return fmt.Errorf("decode email task: %w", err)
	}

	if err := p.dispatcher.Dispatch(ctx, email); err != nil {
		return err
	}

	p.logger.Info().
		Str("message_id", msg.ID).
		Str("mail_id", email.ID).
		Msg("verification email delivered")
	return nil
}
