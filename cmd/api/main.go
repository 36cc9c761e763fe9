package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/cmoscoso25/flujosdigitales-api/api/routes"
	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/internal/dispatch"
	"github.com/cmoscoso25/flujosdigitales-api/internal/fulfillment"
	"github.com/cmoscoso25/flujosdigitales-api/internal/orders"
	"github.com/cmoscoso25/flujosdigitales-api/internal/pendingtokens"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/instance"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/mailer"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/metrics"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/migrate"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/redis"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/retry"
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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	gateway, err := flow.NewClient(context.Background(), flow.ClientParams{
		Config:  cfg.Flow,
		Logger:  logg,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create flow client", err)
		os.Exit(1)
	}

	mail, err := mailer.FromConfig(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), gateway, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliverer, err := fulfillment.NewDeliverer(
		mail,
		retry.Policy{
			MaxAttempts: cfg.Retry.MailMaxAttempts,
			BaseDelay:   cfg.Retry.MailBaseDelay,
			MaxDelay:    cfg.Retry.MailMaxDelay,
		},
		paymentMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliverer", err)
		os.Exit(1)
	}

	tracker, err := pendingtokens.NewTracker(redisClient, cfg.Fulfillment.PendingTokenTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pending token tracker", err)
		os.Exit(1)
	}

	locker, err := confirmation.NewRedisLocker(redisClient, cfg.Fulfillment.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment locker", err)
		os.Exit(1)
	}

	confirmService, err := confirmation.NewService(confirmation.ServiceParams{
		Gateway:   gateway,
		Orders:    ordersService,
		Markers:   fulfillment.NewStore(dbClient.DB()),
		Deliverer: deliverer,
		Locker:    locker,
		Pending:   tracker,
		Config:    cfg,
		Logger:    logg,
		Metrics:   paymentMetrics,
		StatusRetry: retry.Policy{
			MaxAttempts: cfg.Retry.StatusMaxAttempts,
			BaseDelay:   cfg.Retry.StatusBaseDelay,
			MaxDelay:    cfg.Retry.StatusMaxDelay,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation service", err)
		os.Exit(1)
	}

	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherParams{
		Confirmer:  confirmService,
		Logger:     logg,
		QueueSize:  cfg.Fulfillment.WebhookQueueSize,
		Workers:    cfg.Fulfillment.WebhookWorkers,
		JobTimeout: cfg.Fulfillment.WebhookJobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, redisClient, ordersService, confirmService, gateway, tracker, dispatcher),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then drain the webhook queue so
	// in-flight confirmations finish before the process exits.
	shutdownErr := multierr.Append(
		server.Shutdown(shutdownCtx),
		dispatcher.Close(shutdownCtx),
	)
	if shutdownErr != nil {
		logg.Error(ctx, "shutdown did not complete cleanly", shutdownErr)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
