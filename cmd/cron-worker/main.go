package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/regpay-backend/internal/bootstrap"
	"github.com/angelmondragon/regpay-backend/internal/cron"
	"github.com/angelmondragon/regpay-backend/pkg/config"
	"github.com/angelmondragon/regpay-backend/pkg/instance"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
	"github.com/angelmondragon/regpay-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single reconcile cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"store":    cfg.Store.Kind(),
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
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

	events, pubsubClient, err := bootstrap.OpenEvents(ctx, cfg, logg)
	if err != nil {
		return err
	}
	if pubsubClient != nil {
		resources.Add(pubsubClient.Close)
	}

	service, _, err := bootstrap.NewPayments(ctx, bootstrap.PaymentsParams{
		Config:  cfg,
		Logger:  logg,
		Storage: store,
		Events:  events,
		Metrics: metrics.NewPaymentMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	sweep, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger:  logg,
		Orders:  store.Transactions,
		Poller:  service,
		Config:  cfg.Reconcile,
		Metrics: cronMetrics,
	})
	if err != nil {
		return err
	}

	// The lease outlives one interval so a slow cycle is not joined by a second worker.
	lock, err := cron.NewRedisLock(redisClient, cron.LockKey(cfg.App.Env), 2*cfg.Reconcile.Interval)
	if err != nil {
		return err
	}

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{sweep},
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		logg.Info(ctx, "running single reconcile cycle")
		return scheduler.RunOnce(ctx)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.WorkerAddr != "" {
		stopMetrics := serveMetrics(ctx, cfg.Metrics.WorkerAddr, logg)
		defer stopMetrics()
	}
	logg.Info(ctx, "starting cron worker")
	return scheduler.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, logg *logger.Logger) func() {
	srv := metrics.NewServer(addr, prometheus.DefaultGatherer)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "serving worker metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "worker metrics listener failed", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "worker metrics shutdown failed", err)
		}
	}
}
