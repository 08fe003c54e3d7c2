package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	consumedPrefix = "verify:consumed:"
	resendPrefix   = "verify:resend:"
)

// VerificationMarks keeps short-lived verification bookkeeping in Redis.
type VerificationMarks struct {
	client *redis.Client
}

func NewVerificationMarks(client *redis.Client) *VerificationMarks {
	return &VerificationMarks{client: client}
}

// MarkConsumed remembers a spent token by hash so a repeat click can be recognised.
func (m *VerificationMarks) MarkConsumed(ctx context.Context, tokenHash []byte, ttl time.Duration) error {
	if err := m.client.Set(ctx, consumedPrefix+hex.EncodeToString(tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

func (m *VerificationMarks) WasConsumed(ctx context.Context, tokenHash []byte) (bool, error) {
	n, err := m.client.Exists(ctx, consumedPrefix+hex.EncodeToString(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("check consumed: %w", err)
	}
	return n > 0, nil
}

// AcquireResendSlot returns false while a previous resend for the user is still cooling down.
func (m *VerificationMarks) AcquireResendSlot(ctx context.Context, userID int64, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}
	ok, err := m.client.SetNX(ctx, resendPrefix+strconv.FormatInt(userID, 10), "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("acquire resend slot: %w", err)
	}
	return ok, nil
}
