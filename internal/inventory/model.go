package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the slice of the catalog entry the order flow depends on.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
	BrandName    string          `json:"brand,omitempty"`
}
