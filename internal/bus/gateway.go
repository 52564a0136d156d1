// Package bus is the gateway contract both services program against.
// Delivery is at-least-once; handlers must tolerate duplicate invocations
// for the same message id.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ContentTypeJSON = "application/json"

	// DefaultTTL matches the deployment-wide 24h message time-to-live.
	DefaultTTL = 24 * time.Hour
)

// Message is one durable bus message. ID is unique per publish and stable
// across redeliveries, so consumers can use it as an idempotency key.
type Message struct {
	ID          string
	Topic       string
	Key         string
	ContentType string
	TTL         time.Duration
	Payload     []byte
}

// NewMessage fills in the metadata every published message carries.
func NewMessage(topic, key string, payload []byte) Message {
	return Message{
		ID:          uuid.NewString(),
		Topic:       topic,
		Key:         key,
		ContentType: ContentTypeJSON,
		TTL:         DefaultTTL,
		Payload:     payload,
	}
}

// Publisher sends a message to its topic. Implementations must not retain
// the payload slice after returning.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler processes one inbound message. Returning nil acknowledges the
// message; returning an error makes it eligible for bus-level redelivery
// or dead-lettering.
type Handler func(ctx context.Context, msg Message) error
