package notification

import (
	"context"

	"eshop-be/internal/logger"

	"go.uber.org/zap"
)

// LogDispatcher writes the message to the log instead of delivering it.
// Used when no SMTP server or broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(ctx context.Context, msg Message) error {
	logger.FromCtx(ctx).Info("notification (log only)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
