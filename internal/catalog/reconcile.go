package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/events"
)

// Policy decides what happens when reconciling an order would drive a
// product's stock below zero.
type Policy string

const (
	// PolicyAllowBackorder commits the negative level and logs a warning;
	// the value is data for downstream back-order logic, not a defect.
	PolicyAllowBackorder Policy = "allow-backorder"
	// PolicyRejectShortfall fails the whole per-order transaction, leaving
	// every line un-applied, and lets the bus redeliver or dead-letter.
	PolicyRejectShortfall Policy = "reject-shortfall"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAllowBackorder, PolicyRejectShortfall:
		return Policy(s), nil
	case "":
		return PolicyAllowBackorder, nil
	}
	return "", fmt.Errorf("unknown stock policy %q", s)
}

// Store is the slice of the catalog store the engine needs.
type Store interface {
	AdjustForOrder(ctx context.Context, lines []events.OrderLine, allowNegative bool) ([]StockLevel, error)
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
}

// Engine consumes order-created and stock-adjustment events and keeps the
// catalog's stock counts in step with the order ledger.
type Engine struct {
	Store  Store
	Log    *zap.Logger
	Policy Policy
}

// HandleOrderCreated decrements stock for every line of the order in one
// transaction: all lines commit together or none do. A missing product
// fails the message; redelivery will not help if the product is genuinely
// gone, so dead-lettering is the expected terminal state.
func (e *Engine) HandleOrderCreated(ctx context.Context, msg bus.Message) error {
	ev, err := events.DecodeOrderCreated(msg.Payload)
	if err != nil {
		return err
	}

	levels, err := e.Store.AdjustForOrder(ctx, ev.Items, e.Policy == PolicyAllowBackorder)
	if err != nil {
		return fmt.Errorf("reconcile order %s: %w", ev.OrderID, err)
	}

	for _, lv := range levels {
		if lv.Stock < 0 {
			e.Log.Warn("stock went negative, continuing per backorder policy",
				zap.String("product_id", lv.ProductID),
				zap.Int("stock", lv.Stock),
				zap.String("order_id", ev.OrderID))
		}
	}
	e.Log.Info("stock reconciled for order",
		zap.String("order_id", ev.OrderID), zap.Int("lines", len(levels)))
	return nil
}

// HandleStockAdjustment applies a manual correction independent of the
// order flow.
func (e *Engine) HandleStockAdjustment(ctx context.Context, msg bus.Message) error {
	ev, err := events.DecodeStockAdjustment(msg.Payload)
	if err != nil {
		return err
	}

	stock, err := e.Store.AdjustStock(ctx, ev.ProductID, ev.Adjustment)
	if err != nil {
		return fmt.Errorf("adjust stock for %s: %w", ev.ProductID, err)
	}
	e.Log.Info("stock adjusted",
		zap.String("product_id", ev.ProductID),
		zap.Int("adjustment", ev.Adjustment),
		zap.Int("stock", stock),
		zap.String("reason", ev.Reason))
	return nil
}
