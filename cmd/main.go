/**
 * @description
 * This file is the main entrypoint for the affiliate-service. It wires the
 * configuration, database pool, payment gateway, registrar, Redis rate
 * limiter and RabbitMQ producer into the HTTP server, starts the outbox
 * dispatcher, and runs until a shutdown signal arrives.
 */
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rizzosai/affiliate-service/internal/api"
	"github.com/rizzosai/affiliate-service/internal/app"
	"github.com/rizzosai/affiliate-service/internal/config"
	"github.com/rizzosai/affiliate-service/internal/observability/metrics"
	"github.com/rizzosai/affiliate-service/internal/store"
	"github.com/rizzosai/affiliate-service/pkg/namecheapclient"
	"github.com/rizzosai/affiliate-service/pkg/rabbitmq"
	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

func maskURLForLog(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "<unparseable>"
	}
	if u.User != nil {
		u.User = url.UserPassword("****", "****")
	}
	return u.String()
}

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// If a platform-provided PORT is set (e.g., Railway/Render), prefer it
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerPort = port
	}

	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	if err := store.Migrate(ctx, dbpool); err != nil {
		log.Fatalf("Unable to run schema migration: %v", err)
	}
	repo := store.NewPostgresRepository(dbpool)

	gateway := stripeclient.NewClient(cfg.StripeSecretKey)

	registrar, err := namecheapclient.NewClient(namecheapclient.Config{
		APIUser:  cfg.NamecheapAPIUser,
		APIKey:   cfg.NamecheapAPIKey,
		Username: cfg.NamecheapUsername,
		ClientIP: cfg.NamecheapClientIP,
		Sandbox:  cfg.NamecheapSandbox,
	})
	if err != nil {
		log.Fatalf("Unable to configure registrar client: %v", err)
	}

	// Set up RabbitMQ producer; fall back to the no-op publisher so outbox
	// rows stay pending until the broker is reachable.
	var publisher rabbitmq.Publisher
	log.Printf("RABBITMQ_URL (masked)=%s", maskURLForLog(cfg.RabbitMQURL))
	if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("WARNING: Failed to connect to RabbitMQ at startup: %v. Continuing without MQ.", err)
		publisher = rabbitmq.NopPublisher{}
	} else {
		publisher = p
		defer p.Close()
		log.Println("RabbitMQ producer connected")
	}

	var limiter app.RateLimiter = app.NopRateLimiter{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Unable to parse Redis URL: %v", err)
		}
		limiter = app.NewRedisRateLimiter(redis.NewClient(opts), cfg.CheckoutRateLimit,
			time.Duration(cfg.CheckoutRateWindowSeconds)*time.Second, "checkout")
		log.Println("Redis rate limiter enabled")
	}

	var promotionEnd *time.Time
	if cfg.PromotionEndDate != "" {
		parsed, err := time.Parse(time.RFC3339, cfg.PromotionEndDate)
		if err != nil {
			log.Fatalf("Unable to parse PROMOTION_END_DATE: %v", err)
		}
		promotionEnd = &parsed
	}

	service := app.NewService(repo, gateway, registrar, app.Settings{
		BaseURL:            cfg.BaseURL,
		SiteOwnerUsername:  cfg.SiteOwnerUsername,
		PromoActive:        cfg.PromoActive,
		PromoPriceCents:    cfg.PromoPriceCents,
		PromotionEndDate:   promotionEnd,
		VerificationSecret: cfg.SessionSecret,
	})
	reconciler := app.NewReconciler(repo, registrar)

	dispatcher := app.NewOutboxDispatcher(repo, publisher)
	go dispatcher.Run(ctx)

	handler := api.NewHandler(service, reconciler, limiter, api.AdminConfig{
		Username:      cfg.AdminUsername,
		PasswordHash:  cfg.AdminPasswordHash,
		SessionSecret: cfg.SessionSecret,
	}, cfg.StripeWebhookSecret)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Printf("Affiliate service listening on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Affiliate service stopped")
}
