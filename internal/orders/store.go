package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/outbox"
)

// Repo is the order ledger store backed by Postgres.
type Repo struct{ DB *pgxpool.Pool }

// CreateOrder persists the order, its items and the outbox entry in one
// transaction: either everything commits or nothing does.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, evt outbox.Entry) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, o.Status, o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := outbox.InsertTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	return r.listWhere(ctx, ``)
}

// ListPendingWithItems is the read side of catalog change propagation: a
// non-transactional scan that may race with concurrent creation or
// cancellation, acceptable for an advisory alerting path.
func (r *Repo) ListPendingWithItems(ctx context.Context) ([]Order, error) {
	return r.listWhere(ctx, `WHERE status = 'PENDING'`)
}

func (r *Repo) listWhere(ctx context.Context, where string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders `+where+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, rows.Err()
}

// UpdateStatus moves an order along the status lifecycle. Rows are never
// hard-deleted; CANCELLED is a terminal status, not a removal.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	var from Status
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(from, to) {
		return nil, errs.Validationf("invalid status transition %s -> %s", from, to)
	}
	// Compare-and-set on the status read above: a concurrent transition
	// leaves the row untouched instead of being silently overwritten.
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, errs.Validationf("order %s status changed concurrently, retry", id)
	}
	return r.GetOrder(ctx, id)
}
