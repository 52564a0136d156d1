package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned exclusively by the products service. Stock may go
// negative transiently under the backorder policy. Products are
// soft-deleted via IsActive so historical order items keep a valid
// reference.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	ImageURL    *string
}

// StockLevel is the stock remaining for a product after an adjustment.
type StockLevel struct {
	ProductID string
	Stock     int
}
