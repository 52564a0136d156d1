package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/events"
)

// ShortfallError reports which lines would drive stock negative when the
// reject policy is in force. The enclosing transaction is rolled back.
type ShortfallError struct {
	Shortfalls []StockLevel
}

func (e *ShortfallError) Error() string {
	ids := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		ids = append(ids, s.ProductID)
	}
	return "insufficient stock for products: " + strings.Join(ids, ", ")
}

// Repo is the catalog store backed by Postgres.
type Repo struct{ DB *pgxpool.Pool }

// AdjustForOrder applies every line's decrement in one transaction. Each
// decrement is a single conditionless UPDATE, never a read-then-write, so
// concurrent deliveries for different orders cannot lose updates. A missing
// product fails the whole transaction: no line of the order is applied.
// With allowNegative false, any resulting negative level also aborts.
func (r *Repo) AdjustForOrder(ctx context.Context, lines []events.OrderLine, allowNegative bool) ([]StockLevel, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	levels := make([]StockLevel, 0, len(lines))
	var shortfalls []StockLevel
	for _, ln := range lines {
		var stock int
		err := tx.QueryRow(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1
			RETURNING stock`, ln.ProductID, ln.Quantity).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("product", ln.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", ln.ProductID, err)
		}
		levels = append(levels, StockLevel{ProductID: ln.ProductID, Stock: stock})
		if stock < 0 {
			shortfalls = append(shortfalls, StockLevel{ProductID: ln.ProductID, Stock: stock})
		}
	}

	if len(shortfalls) > 0 && !allowNegative {
		return nil, &ShortfallError{Shortfalls: shortfalls}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return levels, nil
}

// AdjustStock applies a manual correction delta (may be negative) as a
// single atomic update, independent of the order flow.
func (r *Repo) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	var stock int
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING stock`, productID, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.NotFound("product", productID)
	}
	return stock, err
}

const productColumns = `id, name, description, price, stock, category, image_url, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("product", id)
	}
	return p, err
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price, stock, category, image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Update applies the non-nil fields of upd and returns the updated row.
func (r *Repo) Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			stock       = COALESCE($5, stock),
			category    = COALESCE($6, category),
			image_url   = COALESCE($7, image_url),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, upd.Name, upd.Description, upd.Price, upd.Stock, upd.Category, upd.ImageURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("product", id)
	}
	return p, err
}

// SoftDelete deactivates the product; the row is never physically removed
// while historical order items reference it.
func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}
