package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/griga-events/ticketing/internal/api/http"
	"github.com/griga-events/ticketing/internal/api/http/handlers"
	"github.com/griga-events/ticketing/internal/auth"
	"github.com/griga-events/ticketing/internal/clock"
	"github.com/griga-events/ticketing/internal/config"
	"github.com/griga-events/ticketing/internal/events"
	"github.com/griga-events/ticketing/internal/notify"
	"github.com/griga-events/ticketing/internal/observability"
	"github.com/griga-events/ticketing/internal/payments"
	"github.com/griga-events/ticketing/internal/persistence"
	"github.com/griga-events/ticketing/internal/repository"
	"github.com/griga-events/ticketing/internal/service"
	"github.com/griga-events/ticketing/internal/store"
)

const (
	webhookBodyLimit = 1 << 20
	shutdownTimeout  = 10 * time.Second
)

func main() {
	envFiles := pflag.StringSlice("env-file", nil, "dotenv files to load before reading the environment")
	pflag.Parse()

	cfg, err := config.Load(*envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	for component, keys := range cfg.Missing() {
		logger.Warn("component not configured; requests will fail closed",
			zap.String("component", component), zap.Strings("missing", keys))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clk := clock.NewSystem()
	metrics := observability.NewMetrics()

	ticketStore := store.NewTicketStore(cfg.Store.Limit, ticketMirror(cfg, pg, logger), logger)
	if err := ticketStore.Load(ctx); err != nil {
		logger.Fatal("failed to load ticket store", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	issueService := service.NewIssueService(service.IssueDependencies{
		Verifier:   payments.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		Notifier:   notify.NewMailer(cfg.SMTP, cfg.Event, logger),
		Tickets:    ticketStore,
		Ledger:     webhookLedger(cfg, redis, clk, logger),
		Clock:      clk,
		Dispatcher: dispatcher,
		EventName:  cfg.Event.Name,
		Logger:     logger,
	})
	adminAuth := service.NewAdminAuthService(cfg.Admin, clk)
	if cfg.Admin.Configured() && !adminAuth.Configured() {
		logger.Warn("ADMIN_PASSWORD_HASH is not a bcrypt hash; admin routes will fail closed")
	}
	checkoutService := service.NewCheckoutService(payments.NewCheckoutClient(cfg.Stripe, cfg.Event), logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             webhookBodyLimit,
		ErrorHandler:          httptransport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, ticketStore, metrics),
		Webhook:         handlers.NewWebhookHandler(issueService),
		Checkout:        handlers.NewCheckoutHandler(checkoutService),
		Admin:           handlers.NewAdminHandler(adminAuth, service.NewAdminTicketService(ticketStore, cfg.Admin.TicketsLimit)),
		AdminMiddleware: auth.NewAdminMiddleware(adminAuth, adminAuth, cfg.Admin.Realm),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func ticketMirror(cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) store.Mirror {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		return repository.NewTicketSnapshotRepository(pg.PoolHandle())
	case config.StoreBackendMemory:
		logger.Warn("ticket store is memory only; records are lost on restart")
		return nil
	default:
		return store.NewFileMirror(cfg.Store.File)
	}
}

func webhookLedger(cfg *config.Config, redis *persistence.Redis, clk clock.Clock, logger *zap.Logger) service.WebhookEventLedger {
	if !cfg.Webhook.Dedupe {
		return nil
	}
	if redis.Enabled() {
		return repository.NewRedisWebhookEventLedger(redis.Client, cfg.Webhook.DedupeTTL())
	}
	logger.Debug("webhook dedupe kept in process memory")
	return repository.NewMemoryWebhookEventLedger(cfg.Webhook.DedupeTTL(), clk)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
