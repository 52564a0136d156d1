package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
)

// Dispatcher polls the outbox and relays pending entries to the bus. An
// entry is marked sent only after the bus acknowledges the publish, so a
// crash mid-cycle re-sends rather than drops (at-least-once).
type Dispatcher struct {
	Store     Store
	Bus       bus.Publisher
	Log       *zap.Logger
	Interval  time.Duration
	BatchSize int
}

func (d *Dispatcher) interval() time.Duration {
	if d.Interval <= 0 {
		return time.Second
	}
	return d.Interval
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize <= 0 {
		return 100
	}
	return d.BatchSize
}

// Run loops until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := d.Dispatch(ctx); err != nil {
				d.Log.Error("outbox dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// Dispatch runs one cycle. A publish failure stops the cycle early; the
// remaining entries stay pending for the next tick.
func (d *Dispatcher) Dispatch(ctx context.Context) error {
	batch, err := d.Store.NextBatch(ctx, d.batchSize())
	if err != nil {
		return err
	}
	for _, e := range batch {
		msg := bus.Message{
			ID:          e.ID,
			Topic:       e.Topic,
			Key:         e.Key,
			ContentType: bus.ContentTypeJSON,
			TTL:         bus.DefaultTTL,
			Payload:     e.Payload,
		}
		if err := d.Bus.Publish(ctx, msg); err != nil {
			return err
		}
		if err := d.Store.MarkSent(ctx, e.ID); err != nil {
			return err
		}
		d.Log.Info("outbox entry published",
			zap.String("topic", e.Topic), zap.String("message_id", e.ID))
	}
	return nil
}
