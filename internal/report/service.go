package report

import (
	"context"

	"eshop-be/internal/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader is the read-only slice of the order store that reports need.
type Reader interface {
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*order.Order, error)
}

type Service interface {
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	OrderCount(ctx context.Context) (int64, error)
	UserOrders(ctx context.Context, userID uuid.UUID) ([]*order.Order, error)
}

type service struct {
	reader Reader
}

func NewService(reader Reader) Service {
	return &service{reader: reader}
}

func (s *service) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	return s.reader.TotalSales(ctx)
}

func (s *service) OrderCount(ctx context.Context) (int64, error) {
	return s.reader.Count(ctx)
}

func (s *service) UserOrders(ctx context.Context, userID uuid.UUID) ([]*order.Order, error) {
	return s.reader.ListByUser(ctx, userID)
}
