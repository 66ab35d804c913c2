package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mailsub/mailsub/internal/config"
	"github.com/mailsub/mailsub/internal/handler"
	"github.com/mailsub/mailsub/internal/middleware"
)

// routerDeps carries everything newRouter mounts.
type routerDeps struct {
	root          *handler.Handler
	health        *handler.HealthHandler
	subscriptions *handler.SubscriptionHandler
	tokens        *handler.TokenHandler
	metrics       http.Handler
	cfg           *config.Config
	logger        *slog.Logger
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger, d.cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))

	if origins := d.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	// Operational endpoints
	r.Get("/", d.root.Hello)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Method(http.MethodGet, "/metrics", d.metrics)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))
		r.Mount("/users", d.subscriptions.Routes())
		r.Mount("/tokens", d.tokens.Routes())
	})

	// 404 and 405 handlers
	r.NotFound(d.root.NotFound)
	r.MethodNotAllowed(d.root.MethodNotAllowed)

	return r
}
