// Package api wires the HTTP surface: checkout, the processor webhook,
// catalog and content administration, and the sitemap/indexing jobs.
package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/midnightspa/platform/internal/checkout"
	"github.com/midnightspa/platform/internal/indexing"
	"github.com/midnightspa/platform/internal/ratelimit"
	"github.com/midnightspa/platform/internal/sitemap"
)

type Handler struct {
	db               *sql.DB
	checkout         *checkout.Service
	limiter          *ratelimit.Limiter
	sitemap          *sitemap.Generator
	indexing         *indexing.Client
	webhookSecret    string
	revalidateSecret string
}

type Config struct {
	DB               *sql.DB
	Checkout         *checkout.Service
	Limiter          *ratelimit.Limiter
	Sitemap          *sitemap.Generator
	Indexing         *indexing.Client // nil when no credentials are configured
	WebhookSecret    string
	RevalidateSecret string
}

func NewHandler(cfg Config) *Handler {
	return &Handler{
		db:               cfg.DB,
		checkout:         cfg.Checkout,
		limiter:          cfg.Limiter,
		sitemap:          cfg.Sitemap,
		indexing:         cfg.Indexing,
		webhookSecret:    cfg.WebhookSecret,
		revalidateSecret: cfg.RevalidateSecret,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/sitemap.xml", h.ServeSitemap)

	// The processor calls back here; it must stay outside the rate-limited
	// group so bursty redeliveries are never rejected.
	r.Post("/api/webhooks/stripe", h.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Post("/checkout", h.Checkout)

			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Post("/products", h.CreateProduct)
			r.Get("/products", h.ListProducts)
			r.Get("/products/{id}", h.GetProduct)

			r.Post("/posts", h.CreatePost)
			r.Post("/posts/{id}/publish", h.PublishPost)
			r.Post("/videos", h.CreateVideo)
			r.Post("/categories", h.CreateCategory)
			r.Post("/subcategories", h.CreateSubcategory)

			r.Post("/sitemap/generate", h.GenerateSitemap)
			r.Post("/revalidate", h.Revalidate)
			r.Post("/indexing/submit", h.SubmitIndexing)
		})
	})

	return r
}
