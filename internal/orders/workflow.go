package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/events"
	"github.com/sudarma/go-commerce-bus/internal/outbox"
)

// Ledger is the slice of the store the creation workflow needs.
type Ledger interface {
	CreateOrder(ctx context.Context, o *Order, evt outbox.Entry) error
}

// NewOrderItem is one requested line of a new order. Price is the unit
// price quoted to the user, snapshotted onto the item.
type NewOrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Workflow validates an order request, persists it atomically together
// with its order-created outbox entry, and returns the created order.
// The event reaches the bus through the outbox dispatcher after commit.
type Workflow struct {
	Ledger Ledger
	Log    *zap.Logger
}

func (w *Workflow) Create(ctx context.Context, userID string, items []NewOrderItem) (*Order, error) {
	if err := validateRequest(userID, items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lines := make([]events.OrderLine, 0, len(items))
	for _, in := range items {
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     in.Price,
		})
		o.TotalAmount = o.TotalAmount.Add(in.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
		lines = append(lines, events.OrderLine{ProductID: in.ProductID, Quantity: in.Quantity})
	}

	payload := events.MustMarshal(events.OrderCreated{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Items:       lines,
		TotalAmount: o.TotalAmount,
	})
	evt := outbox.NewEntry(bus.TopicOrderCreated, o.ID, payload)

	if err := w.Ledger.CreateOrder(ctx, o, evt); err != nil {
		return nil, err
	}
	w.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.TotalAmount.StringFixed(2)))
	return o, nil
}

func validateRequest(userID string, items []NewOrderItem) error {
	if userID == "" {
		return errs.Validationf("userId is required")
	}
	if len(items) == 0 {
		return errs.Validationf("order must contain at least one item")
	}
	for _, it := range items {
		if it.ProductID == "" {
			return errs.Validationf("item productId is required")
		}
		if it.Quantity <= 0 {
			return errs.Validationf("item quantity must be positive")
		}
		if !it.Price.IsPositive() {
			return errs.Validationf("item price must be positive")
		}
		if !it.Price.Equal(it.Price.Round(2)) {
			return errs.Validationf("item price must have at most 2 decimal places")
		}
	}
	return nil
}
