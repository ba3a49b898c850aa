package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

var validStatuses = map[OrderStatus]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

func (s OrderStatus) IsValid() bool {
	return validStatuses[s]
}

// StockPolicy decides what placement does with unknown products and short stock.
type StockPolicy string

const (
	// PolicyLenient persists the order first and adjusts stock in the
	// fulfillment tail, skipping and logging items that cannot be adjusted.
	PolicyLenient StockPolicy = "lenient"
	// PolicyStrict resolves every product and decrements stock inside the
	// order transaction; any failure aborts the placement.
	PolicyStrict StockPolicy = "strict"
)

type Order struct {
	ID               uuid.UUID
	Items            []OrderItem
	ShippingAddress1 string
	ShippingAddress2 string
	City             string
	Zip              string
	Country          string
	Phone            string
	Status           OrderStatus
	UserID           uuid.UUID
	UserName         string
	TotalPrice       decimal.Decimal
	DateOrdered      time.Time
}

// OrderItem is a line item. UnitPrice is the product price captured at
// placement; ProductName and BrandName are filled on reads that expand the product.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
	ProductName string
	BrandName   string
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type SortField string

const (
	SortFieldDateOrdered SortField = "dateOrdered"
	SortFieldTotalPrice  SortField = "totalPrice"
)

type SortDirection string

const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

type ListFilter struct {
	Status   *OrderStatus
	UserID   *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
}

// ListSort defaults to newest first.
type ListSort struct {
	Field     SortField
	Direction SortDirection
}
