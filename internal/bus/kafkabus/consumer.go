package kafkabus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
)

// reader is the slice of kafka.Reader the dispatch loop uses. Fetch and
// commit stay separate calls: ReadMessage would auto-commit on fetch under
// a consumer group, losing failed messages.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic for one subscription (consumer group). Distinct
// group ids keep independent cursors, so several services can consume the
// same topic without interfering.
type Consumer struct {
	r       reader
	topic   string
	workers int
	log     *zap.Logger
}

func NewConsumer(brokers []string, subscription, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        subscription,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, workers: workers, log: log}
}

// Start fetches messages and fans them out to the worker pool. Offsets are
// committed only after the handler returns nil; a failed handler leaves the
// offset uncommitted and the message is redelivered per broker policy.
func (c *Consumer) Start(ctx context.Context, h bus.Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errsCh := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		go func() {
			for m := range jobs {
				if err := h(ctx, toBusMessage(m)); err != nil {
					errsCh <- err
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					errsCh <- err
				}
			}
		}()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// drain worker errors without blocking the fetch loop
		select {
		case e := <-errsCh:
			c.log.Warn("handler failed, message will be redelivered",
				zap.String("topic", c.topic), zap.Error(e))
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}

func toBusMessage(m kafka.Message) bus.Message {
	out := bus.Message{
		Topic:       m.Topic,
		Key:         string(m.Key),
		Payload:     m.Value,
		ContentType: bus.ContentTypeJSON,
		TTL:         bus.DefaultTTL,
	}
	for _, h := range m.Headers {
		switch h.Key {
		case headerMessageID:
			out.ID = string(h.Value)
		case headerContentType:
			out.ContentType = string(h.Value)
		}
	}
	return out
}
