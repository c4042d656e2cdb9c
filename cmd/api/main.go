package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/oficinaflow/oficinaflow-backend/api/routes"
	"github.com/oficinaflow/oficinaflow-backend/internal/notifications"
	"github.com/oficinaflow/oficinaflow-backend/internal/onboarding"
	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	"github.com/oficinaflow/oficinaflow-backend/internal/resolver"
	"github.com/oficinaflow/oficinaflow-backend/internal/subscriptions"
	"github.com/oficinaflow/oficinaflow-backend/internal/tenants"
	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	stripewebhook "github.com/oficinaflow/oficinaflow-backend/internal/webhooks/stripe"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db"
	"github.com/oficinaflow/oficinaflow-backend/pkg/email"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
	"github.com/oficinaflow/oficinaflow-backend/pkg/metrics"
	"github.com/oficinaflow/oficinaflow-backend/pkg/migrate"
	"github.com/oficinaflow/oficinaflow-backend/pkg/redis"
	pkgstripe "github.com/oficinaflow/oficinaflow-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		redisPinger redis.Pinger
		guard       *stripewebhook.IdempotencyGuard
	)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		redisPinger = redisClient

		guard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, stripewebhook.DefaultGuardScope)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis not configured; stripe event-id guard disabled")
	}

	gateway := payments.Gateway(payments.Unconfigured{})
	if cfg.Stripe.Configured() {
		stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		gateway = payments.NewGateway(stripeClient, cfg.Stripe)
	} else {
		logg.Warn(ctx, "stripe not configured; checkout and webhooks disabled")
	}

	sender, err := email.NewSender(ctx, cfg.Email, logg)
	if err != nil {
		return err
	}
	notifier, err := notifications.NewEmailDispatcher(sender, *cfg, logg)
	if err != nil {
		return err
	}

	tenantRepo := tenants.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())

	tenantService, err := tenants.NewService(tenantRepo, logg)
	if err != nil {
		return err
	}
	subscriptionService, err := subscriptions.NewService(subscriptionRepo, logg)
	if err != nil {
		return err
	}

	tenantResolver, err := resolver.New(resolver.Params{
		Tenants:           tenantRepo,
		Subscriptions:     subscriptionRepo,
		Users:             userRepo,
		Gateway:           gateway,
		PlaceholderDomain: cfg.Onboarding.PlaceholderEmailDomain,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	onboardingService, err := onboarding.NewService(onboarding.ServiceParams{
		Tenants:           tenantRepo,
		Users:             userRepo,
		Gateway:           gateway,
		PasswordConfig:    cfg.Password,
		PlaceholderDomain: cfg.Onboarding.PlaceholderEmailDomain,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Tenants:           tenantService,
		Subscriptions:     subscriptionService,
		Users:             userRepo,
		Resolver:          tenantResolver,
		Notifier:          notifier,
		TransactionRunner: dbClient,
		PasswordConfig:    cfg.Password,
		PlaceholderDomain: cfg.Onboarding.PlaceholderEmailDomain,
		Metrics:           webhookMetrics,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"stripe":      gateway.Configured(),
		"event_guard": guard != nil,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			registry,
			onboardingService,
			gateway,
			webhookService,
			guard,
			webhookMetrics,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
