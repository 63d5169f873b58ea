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

	"github.com/angelmondragon/regpay-backend/api/controllers"
	"github.com/angelmondragon/regpay-backend/api/routes"
	"github.com/angelmondragon/regpay-backend/internal/bootstrap"
	cashfreewebhook "github.com/angelmondragon/regpay-backend/internal/webhooks/cashfree"
	"github.com/angelmondragon/regpay-backend/pkg/config"
	"github.com/angelmondragon/regpay-backend/pkg/instance"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
	"github.com/angelmondragon/regpay-backend/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	var resources bootstrap.Closers
	defer func() {
		if err := resources.CloseAll(); err != nil {
			logg.Error(context.Background(), "error releasing resources", err)
		}
	}()

	store, err := bootstrap.OpenStorage(ctx, cfg, logg)
	if err != nil {
		return err
	}
	resources.Add(store.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	resources.Add(redisClient.Close)

	var registry *prometheus.Registry
	paymentMetrics := metrics.NewPaymentMetrics(nil)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		paymentMetrics = metrics.NewPaymentMetrics(registry)
	}

	events, pubsubClient, err := bootstrap.OpenEvents(ctx, cfg, logg)
	if err != nil {
		return err
	}
	readiness := map[string]controllers.Pinger{
		store.Name: store.Pinger,
		"redis":    redisClient,
	}
	if pubsubClient != nil {
		resources.Add(pubsubClient.Close)
		readiness["pubsub"] = pubsubClient
	}

	service, gateway, err := bootstrap.NewPayments(ctx, bootstrap.PaymentsParams{
		Config:  cfg,
		Logger:  logg,
		Storage: store,
		Events:  events,
		Metrics: paymentMetrics,
	})
	if err != nil {
		return err
	}

	guard, err := cashfreewebhook.NewReplayGuard(redisClient, cfg.Cashfree.WebhookReplayTTL)
	if err != nil {
		return err
	}

	params := routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		Payments:      service,
		Webhooks:      service,
		WebhookSecret: gateway,
		WebhookGuard:  guard,
		Redis:         redisClient,
		Metrics:       paymentMetrics,
		Readiness:     readiness,
	}
	if registry != nil {
		params.MetricsGatherer = registry
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"store":    cfg.Store.Kind(),
		"gateway":  gateway.Environment(),
		"notify":   cfg.App.NotifyURL(),
		"events":   events != nil,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(runCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
