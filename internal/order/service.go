package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"eshop-be/internal/inventory"
	"eshop-be/internal/logger"
	"eshop-be/internal/metrics"
	"eshop-be/internal/notification"
	"eshop-be/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter, sort ListSort) ([]*Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	// Wait blocks until every scheduled fulfillment tail has finished.
	Wait()
}

type Options struct {
	Policy            StockPolicy
	NotifyTimeout     time.Duration
	FallbackRecipient string
	Metrics           *metrics.Metrics
}

type service struct {
	repo       Repository
	ledger     inventory.Ledger
	users      user.Repository
	dispatcher notification.Dispatcher
	opts       Options
	metrics    *metrics.Metrics

	tails sync.WaitGroup
}

func NewService(
	repo Repository,
	ledger inventory.Ledger,
	users user.Repository,
	dispatcher notification.Dispatcher,
	opts Options,
) Service {
	if opts.Policy == "" {
		opts.Policy = PolicyLenient
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.NotifyTimeout > 0 {
		dispatcher = notification.WithTimeout(dispatcher, opts.NotifyTimeout)
	}

	return &service{
		repo:       repo,
		ledger:     ledger,
		users:      users,
		dispatcher: dispatcher,
		opts:       opts,
		metrics:    opts.Metrics,
	}
}

// PlaceOrder validates the input, snapshots product prices, persists the order
// and returns as soon as it is stored. Stock adjustment (lenient policy) and
// the confirmation run afterwards in a detached fulfillment tail.
func (s *service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.String("policy", string(s.opts.Policy)),
		zap.Int("item_count", len(in.Items)),
	)

	if err := in.Validate(); err != nil {
		log.Warn("rejected malformed order", zap.Error(err))
		return nil, err
	}

	log.Info("place order started")

	// 1. Resolve products for the price snapshot
	products, err := s.ledger.GetMany(ctx, distinctProductIDs(in.Items))
	if err != nil {
		log.Error("failed to resolve products", zap.Error(err))
		return nil, fmt.Errorf("%w: resolve products: %w", ErrPersistenceFailure, err)
	}

	if s.opts.Policy == PolicyStrict {
		if err := checkAvailability(in.Items, products); err != nil {
			log.Warn("order rejected by stock check", zap.Error(err))
			return nil, err
		}
	}

	// 2. Build the order
	o := &Order{
		ShippingAddress1: in.ShippingAddress1,
		ShippingAddress2: in.ShippingAddress2,
		City:             in.City,
		Zip:              in.Zip,
		Country:          in.Country,
		Phone:            in.Phone,
		Status:           in.Status,
		UserID:           in.UserID,
		Items:            make([]OrderItem, 0, len(in.Items)),
	}

	total := decimal.Zero
	for i, item := range in.Items {
		line := OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}

		if p, ok := products[item.ProductID]; ok {
			line.UnitPrice = p.Price
			line.ProductName = p.Name
			line.BrandName = p.BrandName
		} else {
			log.Warn("unknown product, price snapshot is zero",
				zap.Int("item_index", i),
				zap.String("product_id", item.ProductID.String()),
			)
		}

		total = total.Add(line.Subtotal())
		o.Items = append(o.Items, line)
	}
	o.TotalPrice = total

	// 3. Persist
	var hooks []TxHook
	if s.opts.Policy == PolicyStrict {
		hooks = append(hooks, s.reserveStockHook(o))
	}

	if err := s.repo.Create(ctx, o, hooks...); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		if errors.Is(err, inventory.ErrInsufficientStock) ||
			errors.Is(err, inventory.ErrProductNotFound) ||
			errors.Is(err, ErrPersistenceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	if s.opts.Policy == PolicyStrict {
		// reserved stock only counts once the transaction has committed
		s.metrics.StockAdjustments.WithLabelValues("ok").Add(float64(len(o.Items)))
	}
	s.metrics.OrdersPlaced.WithLabelValues(string(s.opts.Policy)).Inc()
	log.Info("order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("total_price", o.TotalPrice.String()),
	)

	// 4. Fulfillment tail, detached from the caller
	s.startTail(ctx, o)

	return o, nil
}

// reserveStockHook decrements stock for every item, in submission order,
// inside the order transaction.
func (s *service) reserveStockHook(o *Order) TxHook {
	return func(ctx context.Context, tx *sql.Tx) error {
		ledger := s.ledger.WithTx(tx)
		for i, item := range o.Items {
			if _, err := ledger.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.metrics.StockAdjustments.WithLabelValues(adjustmentResult(err)).Inc()
				return fmt.Errorf("item %d (product %s): %w", i, item.ProductID, err)
			}
		}
		return nil
	}
}

func distinctProductIDs(items []LineItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// checkAvailability rejects unknown products and quantities above the stock
// snapshot. Items for the same product are summed.
func checkAvailability(items []LineItemInput, products map[uuid.UUID]inventory.Product) error {
	wanted := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return fmt.Errorf("product %s: %w", item.ProductID, inventory.ErrProductNotFound)
		}
		wanted[item.ProductID] += item.Quantity
		if wanted[item.ProductID] > p.CountInStock {
			return fmt.Errorf("product %s: want %d, have %d: %w",
				item.ProductID, wanted[item.ProductID], p.CountInStock, inventory.ErrInsufficientStock)
		}
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter, sort ListSort) ([]*Order, error) {
	return s.repo.List(ctx, filter, sort)
}

// UpdateOrderStatus is the only mutation allowed after placement.
func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Fields: []string{"status"}}
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
	)
	return o, nil
}

func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("order deleted", zap.String("order_id", id.String()))
	return nil
}

func (s *service) Wait() {
	s.tails.Wait()
}
