package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher records messages instead of sending them. Local development only.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	d.log.Info().
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.HTMLBody)).
		Msg("mail dispatch skipped (log transport)")
	return nil
}
