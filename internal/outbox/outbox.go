// Package outbox converts the commit-then-publish dual write into loss-free
// at-least-once delivery: rows are inserted in the same transaction as the
// state change they describe and relayed to the bus by a dispatcher.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one pending outbound message. ID doubles as the bus message id,
// so redelivered entries keep a stable idempotency key.
type Entry struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

func NewEntry(topic, key string, payload []byte) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Topic:     topic,
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Store reads and settles pending entries.
type Store interface {
	// NextBatch returns unsent entries, oldest first.
	NextBatch(ctx context.Context, limit int) ([]Entry, error)
	// MarkSent settles an entry after bus acknowledgment.
	MarkSent(ctx context.Context, id string) error
}

type Repo struct{ DB *pgxpool.Pool }

// InsertTx writes an entry inside the caller's transaction.
func InsertTx(ctx context.Context, tx pgx.Tx, e Entry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox(id, topic, key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Topic, e.Key, e.Payload, e.CreatedAt,
	)
	return err
}

func (r *Repo) NextBatch(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, topic, key, payload, created_at FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) MarkSent(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id)
	return err
}
