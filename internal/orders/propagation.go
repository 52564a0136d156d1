package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/events"
)

// DefaultLowStockThreshold triggers a low-stock-alert when a reported stock
// level falls below it while pending orders reference the product.
const DefaultLowStockThreshold = 10

// PendingScanner is the read-only view of the ledger the propagator needs.
type PendingScanner interface {
	ListPendingWithItems(ctx context.Context) ([]Order, error)
}

// Propagator cross-references catalog change events against PENDING orders
// and emits secondary alert events. All three handlers share one shape:
// scan pending orders with items, filter by product membership, then
// conditionally publish. The scan is advisory and may race with concurrent
// order creation; it enforces nothing.
type Propagator struct {
	Ledger            PendingScanner
	Bus               bus.Publisher
	Log               *zap.Logger
	LowStockThreshold int
}

func (p *Propagator) threshold() int {
	if p.LowStockThreshold <= 0 {
		return DefaultLowStockThreshold
	}
	return p.LowStockThreshold
}

func (p *Propagator) HandleProductUpdated(ctx context.Context, msg bus.Message) error {
	ev, err := events.DecodeProductUpdated(msg.Payload)
	if err != nil {
		return err
	}

	affected, err := p.affectedPending(ctx, ev.ProductID)
	if err != nil {
		return err
	}

	if ev.Price != nil && len(affected) > 0 {
		p.Log.Info("price changed with pending orders",
			zap.String("product_id", ev.ProductID),
			zap.Int("affected_orders", len(affected)))
		payload := events.MustMarshal(events.ProductPriceChanged{
			ProductID:          ev.ProductID,
			NewPrice:           *ev.Price,
			AffectedOrderCount: len(affected),
		})
		if err := p.Bus.Publish(ctx, bus.NewMessage(bus.TopicProductPriceChanged, ev.ProductID, payload)); err != nil {
			return err
		}
	}

	if ev.Stock != nil && *ev.Stock < p.threshold() && len(affected) > 0 {
		p.Log.Warn("low stock with pending orders",
			zap.String("product_id", ev.ProductID),
			zap.Int("stock", *ev.Stock),
			zap.Int("pending_orders", len(affected)))
		payload := events.MustMarshal(events.LowStockAlert{
			ProductID:         ev.ProductID,
			CurrentStock:      *ev.Stock,
			PendingOrderCount: len(affected),
		})
		if err := p.Bus.Publish(ctx, bus.NewMessage(bus.TopicLowStockAlert, ev.ProductID, payload)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Propagator) HandleProductDeleted(ctx context.Context, msg bus.Message) error {
	ev, err := events.DecodeProductDeleted(msg.Payload)
	if err != nil {
		return err
	}

	affected, err := p.affectedPending(ctx, ev.ProductID)
	if err != nil {
		return err
	}
	if len(affected) == 0 {
		return nil
	}

	p.Log.Warn("product deleted with pending orders",
		zap.String("product_id", ev.ProductID),
		zap.Int("affected_orders", len(affected)))

	refs := make([]events.AffectedOrder, 0, len(affected))
	for _, o := range affected {
		refs = append(refs, events.AffectedOrder{OrderID: o.ID, UserID: o.UserID})
	}
	payload := events.MustMarshal(events.ProductDeletedWithPendingOrders{
		ProductID:      ev.ProductID,
		AffectedOrders: refs,
	})
	return p.Bus.Publish(ctx, bus.NewMessage(bus.TopicProductDeletedWithPendingOrders, ev.ProductID, payload))
}

func (p *Propagator) HandleInventoryReconciliation(ctx context.Context, msg bus.Message) error {
	ev, err := events.DecodeInventoryReconciliation(msg.Payload)
	if err != nil {
		return err
	}
	// Surplus is not alert-worthy; only a shortage can strand pending orders.
	if ev.ActualStock >= ev.SystemStock {
		return nil
	}

	affected, err := p.affectedPending(ctx, ev.ProductID)
	if err != nil {
		return err
	}
	if len(affected) == 0 {
		return nil
	}

	p.Log.Warn("inventory shortage with pending orders",
		zap.String("product_id", ev.ProductID),
		zap.Int("actual_stock", ev.ActualStock),
		zap.Int("system_stock", ev.SystemStock),
		zap.Int("affected_orders", len(affected)))

	payload := events.MustMarshal(events.InventoryDiscrepancyAlert{
		ProductID:          ev.ProductID,
		ActualStock:        ev.ActualStock,
		SystemStock:        ev.SystemStock,
		AffectedOrderCount: len(affected),
	})
	return p.Bus.Publish(ctx, bus.NewMessage(bus.TopicInventoryDiscrepancyAlert, ev.ProductID, payload))
}

func (p *Propagator) affectedPending(ctx context.Context, productID string) ([]Order, error) {
	pending, err := p.Ledger.ListPendingWithItems(ctx)
	if err != nil {
		return nil, err
	}
	var affected []Order
	for _, o := range pending {
		if o.ContainsProduct(productID) {
			affected = append(affected, o)
		}
	}
	return affected, nil
}
