package main

import (
	"context"
	"net/http"

	"eshop-be/internal/config"
	"eshop-be/internal/logger"
	"eshop-be/internal/metrics"
	"eshop-be/internal/middleware"
	"eshop-be/internal/order"
	"eshop-be/internal/report"
	"eshop-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type routerDeps struct {
	cfg     *config.Config
	orders  order.Service
	reports report.Service
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
	// ping checks the database for /healthz.
	ping func(ctx context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(d.metrics.Instrument)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Server is running"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.ping != nil {
			if err := d.ping(r.Context()); err != nil {
				logger.FromCtx(r.Context()).Warn("health check failed", zap.Error(err))
				utils.WriteJSONError(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	api := func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.cfg.JWTSecret))
		if d.limiter != nil {
			r.Use(d.limiter.Middleware)
		}

		r.Route("/orders", func(r chi.Router) {
			r.Mount("/get", report.NewHandler(d.reports).Routes())
			order.NewHandler(d.orders).Register(r, middleware.RequireAdmin)
		})
	}

	// API_URL=/ serves the API from the root
	if d.cfg.APIURL == "" {
		r.Group(api)
	} else {
		r.Route(d.cfg.APIURL, api)
	}

	return r
}
