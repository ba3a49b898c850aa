package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eshop-be/internal/config"
	"eshop-be/internal/db"
	"eshop-be/internal/inventory"
	"eshop-be/internal/logger"
	"eshop-be/internal/metrics"
	"eshop-be/internal/middleware"
	"eshop-be/internal/notification"
	"eshop-be/internal/order"
	"eshop-be/internal/report"
	"eshop-be/internal/user"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	dispatcher, closeDispatcher := buildDispatcher(cfg)
	defer func() {
		if err := closeDispatcher(); err != nil {
			log.Warn("failed to close notification dispatcher", zap.Error(err))
		}
	}()

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(
		orderRepo,
		inventory.NewRepository(database),
		user.NewRepository(database),
		dispatcher,
		order.Options{
			Policy:            order.StockPolicy(cfg.StockPolicy),
			NotifyTimeout:     cfg.NotifyTimeout,
			FallbackRecipient: cfg.NotifyFallbackRecipient,
			Metrics:           m,
		},
	)

	router := newRouter(routerDeps{
		cfg:     cfg,
		orders:  orderSvc,
		reports: report.NewService(orderRepo),
		metrics: m,
		limiter: middleware.NewRateLimiter(ctx, cfg.InternalSecretKey),
		ping:    database.PingContext,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("api_url", cfg.APIURL),
			zap.String("stock_policy", cfg.StockPolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	// let acknowledged orders finish their stock adjustment and confirmation
	orderSvc.Wait()
	log.Info("server stopped")
}

// buildDispatcher picks the confirmation channel from config: SMTP, Kafka,
// both, or the log when neither is configured. The returned func releases
// broker connections.
func buildDispatcher(cfg *config.Config) (notification.Dispatcher, func() error) {
	var dispatchers []notification.Dispatcher
	closeFn := func() error { return nil }

	if cfg.SMTPEnabled() {
		dispatchers = append(dispatchers, notification.NewSMTPDispatcher(notification.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPEmail,
			Password:  cfg.SMTPPassword,
			FromName:  cfg.SMTPFromName,
			FromEmail: cfg.SMTPFromEmail,
		}))
	}

	if cfg.KafkaEnabled() {
		kd := notification.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaNotifyTopic)
		dispatchers = append(dispatchers, kd)
		closeFn = kd.Close
	}

	switch len(dispatchers) {
	case 0:
		return notification.LogDispatcher{}, closeFn
	case 1:
		return dispatchers[0], closeFn
	default:
		return notification.Fanout(dispatchers...), closeFn
	}
}
