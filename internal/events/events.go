// Package events defines the wire payloads exchanged on the bus.
// All payloads are JSON; decoding is strict, unknown or missing fields
// reject the message with a validation error so it is never retried into
// the same failure.
package events

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/sudarma/go-commerce-bus/internal/errs"
)

// OrderLine is one line item as carried on the wire.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderCreated struct {
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	Items       []OrderLine     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (e *OrderCreated) validate() error {
	if e.OrderID == "" {
		return errs.Validationf("order-created: missing orderId")
	}
	if len(e.Items) == 0 {
		return errs.Validationf("order-created: empty items")
	}
	for _, it := range e.Items {
		if it.ProductID == "" {
			return errs.Validationf("order-created: item missing productId")
		}
		if it.Quantity <= 0 {
			return errs.Validationf("order-created: item quantity must be positive")
		}
	}
	return nil
}

// ProductUpdated carries only the fields that actually changed.
type ProductUpdated struct {
	ProductID string           `json:"productId"`
	Name      *string          `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Stock     *int             `json:"stock,omitempty"`
}

func (e *ProductUpdated) validate() error {
	if e.ProductID == "" {
		return errs.Validationf("product-updated: missing productId")
	}
	return nil
}

type ProductDeleted struct {
	ProductID string `json:"productId"`
}

func (e *ProductDeleted) validate() error {
	if e.ProductID == "" {
		return errs.Validationf("product-deleted: missing productId")
	}
	return nil
}

type StockAdjustment struct {
	ProductID  string `json:"productId"`
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason,omitempty"`
}

func (e *StockAdjustment) validate() error {
	if e.ProductID == "" {
		return errs.Validationf("stock-adjustment: missing productId")
	}
	return nil
}

type InventoryReconciliation struct {
	ProductID   string `json:"productId"`
	ActualStock int    `json:"actualStock"`
	SystemStock int    `json:"systemStock"`
}

func (e *InventoryReconciliation) validate() error {
	if e.ProductID == "" {
		return errs.Validationf("inventory-reconciliation: missing productId")
	}
	if e.ActualStock < 0 || e.SystemStock < 0 {
		return errs.Validationf("inventory-reconciliation: stock counts must be non-negative")
	}
	return nil
}

// ---- outbound alert payloads ----

type ProductPriceChanged struct {
	ProductID          string          `json:"productId"`
	NewPrice           decimal.Decimal `json:"newPrice"`
	AffectedOrderCount int             `json:"affectedOrderCount"`
}

type LowStockAlert struct {
	ProductID         string `json:"productId"`
	CurrentStock      int    `json:"currentStock"`
	PendingOrderCount int    `json:"pendingOrderCount"`
}

type AffectedOrder struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

type ProductDeletedWithPendingOrders struct {
	ProductID      string          `json:"productId"`
	AffectedOrders []AffectedOrder `json:"affectedOrders"`
}

type InventoryDiscrepancyAlert struct {
	ProductID          string `json:"productId"`
	ActualStock        int    `json:"actualStock"`
	SystemStock        int    `json:"systemStock"`
	AffectedOrderCount int    `json:"affectedOrderCount"`
}

type validator interface {
	validate() error
}

func decodeStrict(data []byte, v validator) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validationf("malformed payload: %v", err)
	}
	return v.validate()
}

func DecodeOrderCreated(data []byte) (OrderCreated, error) {
	var e OrderCreated
	err := decodeStrict(data, &e)
	return e, err
}

func DecodeProductUpdated(data []byte) (ProductUpdated, error) {
	var e ProductUpdated
	err := decodeStrict(data, &e)
	return e, err
}

func DecodeProductDeleted(data []byte) (ProductDeleted, error) {
	var e ProductDeleted
	err := decodeStrict(data, &e)
	return e, err
}

func DecodeStockAdjustment(data []byte) (StockAdjustment, error) {
	var e StockAdjustment
	err := decodeStrict(data, &e)
	return e, err
}

func DecodeInventoryReconciliation(data []byte) (InventoryReconciliation, error) {
	var e InventoryReconciliation
	err := decodeStrict(data, &e)
	return e, err
}

// MustMarshal panics on marshal failure; payload types marshal
// unconditionally, so a failure here is a programming error.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
