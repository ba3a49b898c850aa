package order

import (
	"context"
	"errors"
	"fmt"

	"eshop-be/internal/inventory"
	"eshop-be/internal/logger"
	"eshop-be/internal/metrics"
	"eshop-be/internal/notification"

	"go.uber.org/zap"
)

// startTail runs the post-acknowledgement work in its own goroutine. The
// context keeps the request values (request id) but not its cancellation, so
// the tail survives the response being written.
func (s *service) startTail(ctx context.Context, o *Order) {
	tailCtx := logger.WithOrderID(context.WithoutCancel(ctx), o.ID.String())
	log := logger.FromCtx(tailCtx).With(zap.String("layer", "fulfillment"))

	s.tails.Add(1)
	go func() {
		defer s.tails.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("fulfillment tail panicked", zap.Any("panic", r))
			}
		}()

		timer := metrics.StartTimer()

		if s.opts.Policy == PolicyLenient {
			if err := s.adjustInventory(tailCtx, o); err != nil {
				log.Warn("stock adjustment incomplete", zap.Error(err))
			}
		}

		if err := s.sendConfirmation(tailCtx, o); err != nil {
			log.Error("order confirmation not delivered", zap.Error(err))
		}

		s.metrics.FulfillmentTailMS.Observe(timer.Milliseconds())
	}()
}

// adjustInventory decrements stock for each item in submission order. A
// failing item never stops the loop; all failures come back joined.
func (s *service) adjustInventory(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "fulfillment"),
		zap.String("method", "adjustInventory"),
	)

	var errs []error
	for i, item := range o.Items {
		remaining, err := s.ledger.DecrementStock(ctx, item.ProductID, item.Quantity)
		s.metrics.StockAdjustments.WithLabelValues(adjustmentResult(err)).Inc()

		itemLog := log.With(
			zap.Int("item_index", i),
			zap.String("product_id", item.ProductID.String()),
			zap.Int("quantity", item.Quantity),
		)

		if err != nil {
			if errors.Is(err, inventory.ErrProductNotFound) {
				itemLog.Warn("skipping stock adjustment for unknown product")
			} else {
				itemLog.Error("stock adjustment failed", zap.Error(err))
			}
			errs = append(errs, fmt.Errorf("item %d (product %s): %w", i, item.ProductID, err))
			continue
		}

		itemLog.Debug("stock adjusted", zap.Int("remaining", remaining))
	}

	return errors.Join(errs...)
}

func adjustmentResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, inventory.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient"
	default:
		return "error"
	}
}

// sendConfirmation makes a single dispatch attempt. Lines for products that
// could not be resolved at placement are left out of the message.
func (s *service) sendConfirmation(ctx context.Context, o *Order) error {
	lines := make([]notification.ConfirmationLine, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ProductName == "" {
			continue
		}
		lines = append(lines, notification.ConfirmationLine{
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}

	msg := notification.NewOrderConfirmation(s.recipient(ctx, o), o.ID.String(), lines)

	if err := s.dispatcher.Send(ctx, msg); err != nil {
		s.metrics.Notifications.WithLabelValues("failed").Inc()
		if !errors.Is(err, notification.ErrDispatchFailure) {
			err = fmt.Errorf("%w: %w", notification.ErrDispatchFailure, err)
		}
		return err
	}

	s.metrics.Notifications.WithLabelValues("sent").Inc()
	logger.FromCtx(ctx).Info("order confirmation sent", zap.Int("line_count", len(lines)))
	return nil
}

func (s *service) recipient(ctx context.Context, o *Order) string {
	if s.users == nil {
		return s.opts.FallbackRecipient
	}

	u, err := s.users.FindByID(ctx, o.UserID)
	if err != nil || u.Email == "" {
		logger.FromCtx(ctx).Debug("using fallback recipient",
			zap.String("user_id", o.UserID.String()),
			zap.Error(err),
		)
		return s.opts.FallbackRecipient
	}
	return u.Email
}
