package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is owned exclusively by the orders service. TotalAmount is computed
// once at creation from the item snapshot and never recomputed.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem snapshots the unit price at order time; it does not track later
// catalog price changes. ProductID is a reference only, there is no foreign
// key across the service boundary.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ContainsProduct reports whether any line of the order references productID.
func (o *Order) ContainsProduct(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}
