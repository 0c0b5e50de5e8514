package main

import (
	"context"
	"log"
	"net/http"

	"github.com/midnightspa/platform/internal/api"
	"github.com/midnightspa/platform/internal/checkout"
	"github.com/midnightspa/platform/internal/config"
	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/indexing"
	"github.com/midnightspa/platform/internal/payments"
	"github.com/midnightspa/platform/internal/ratelimit"
	"github.com/midnightspa/platform/internal/sitemap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	counterStore, err := ratelimit.NewRedisStore(cfg.RateLimit.RedisURL)
	if err != nil {
		log.Fatalf("Connect to rate limit store: %v", err)
	}
	defer counterStore.Close()

	limiter := ratelimit.New(counterStore, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)

	checkoutSvc := checkout.NewService(db, payments.NewStripeClient(cfg.Stripe.SecretKey))
	sitemapGen := sitemap.NewGenerator(db, cfg.Site.BaseURL, cfg.Site.SitemapPath)

	var indexingClient *indexing.Client
	if cfg.Indexing.CredentialsFile != "" {
		indexingClient, err = indexing.NewClient(context.Background(), cfg.Indexing.CredentialsFile)
		if err != nil {
			log.Fatalf("Load indexing credentials: %v", err)
		}
	} else {
		log.Printf("Indexing credentials not configured, /api/indexing/submit disabled")
	}

	handler := api.NewHandler(api.Config{
		DB:               db,
		Checkout:         checkoutSvc,
		Limiter:          limiter,
		Sitemap:          sitemapGen,
		Indexing:         indexingClient,
		WebhookSecret:    cfg.Stripe.WebhookSecret,
		RevalidateSecret: cfg.Site.RevalidateSecret,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
