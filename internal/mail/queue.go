package mail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bloogle/internal/ids"
)

const TaskTypeEmail = "email"

// QueueDispatcher appends messages to a Redis stream drained by the mail worker.
type QueueDispatcher struct {
	client *redis.Client
	stream string
}

func NewQueueDispatcher(client *redis.Client, stream string) *QueueDispatcher {
	return &QueueDispatcher{client: client, stream: stream}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = ids.New()
	}

	_, err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: EncodeStreamValues(msg),
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

func EncodeStreamValues(msg Message) map[string]any {
	return map[string]any{
		"type":      TaskTypeEmail,
		"id":        msg.ID,
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
		"html":      msg.HTMLBody,
	}
}

func DecodeStreamValues(values map[string]any) (Message, error) {
	field := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	if t := field("type"); t != TaskTypeEmail {
		return Message{}, fmt.Errorf("%w: unexpected task type %q", ErrInvalidMessage, t)
	}

	msg := Message{
		ID:        field("id"),
		Recipient: field("recipient"),
		Subject:   field("subject"),
		HTMLBody:  field("html"),
	}
	return msg, msg.Validate()
}
