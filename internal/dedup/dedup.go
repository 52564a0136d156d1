// Package dedup short-circuits duplicate deliveries. The bus is
// at-least-once; every inbound message carries a stable id, and each
// consumer records processed ids with a retention window before mutating
// state again.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
)

// RetentionWindow bounds how long processed ids are remembered. Redeliveries
// older than this are treated as new; the window comfortably exceeds the
// 24h message TTL.
const RetentionWindow = 48 * time.Hour

// Marker records processed message ids.
type Marker interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Mark(ctx context.Context, messageID string) error
}

// RedisMarker keys processed ids per consuming service:
// dedup:{service}:{message_id}.
type RedisMarker struct {
	RDB     *redis.Client
	Service string
	TTL     time.Duration
}

func (m *RedisMarker) key(id string) string {
	return fmt.Sprintf("dedup:%s:%s", m.Service, id)
}

func (m *RedisMarker) ttl() time.Duration {
	if m.TTL <= 0 {
		return RetentionWindow
	}
	return m.TTL
}

func (m *RedisMarker) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := m.RDB.Exists(ctx, m.key(messageID)).Result()
	return n > 0, err
}

func (m *RedisMarker) Mark(ctx context.Context, messageID string) error {
	return m.RDB.Set(ctx, m.key(messageID), "1", m.ttl()).Err()
}

// Wrap makes a handler idempotent against redelivery: seen ids are
// acknowledged without reprocessing, and an id is marked only after the
// handler succeeds so a failed attempt stays eligible for redelivery.
// A nil marker returns the handler unchanged — the documented
// non-idempotent behavior.
func Wrap(m Marker, log *zap.Logger, h bus.Handler) bus.Handler {
	if m == nil {
		return h
	}
	return func(ctx context.Context, msg bus.Message) error {
		if msg.ID != "" {
			seen, err := m.Seen(ctx, msg.ID)
			if err != nil {
				return err
			}
			if seen {
				log.Info("duplicate delivery skipped",
					zap.String("topic", msg.Topic), zap.String("message_id", msg.ID))
				return nil
			}
		}
		if err := h(ctx, msg); err != nil {
			return err
		}
		if msg.ID != "" {
			if err := m.Mark(ctx, msg.ID); err != nil {
				// Marking is best effort: failing here would retry a handler
				// that already committed.
				log.Warn("failed to record processed message id",
					zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
		return nil
	}
}
