package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/regpay-backend/internal/payments"
	"github.com/angelmondragon/regpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
)

// ReconcileJobName identifies the sweep in logs and metrics.
const ReconcileJobName = "payment-reconcile"

type unsettledLister interface {
	ListUnsettled(ctx context.Context, q payments.UnsettledQuery) ([]string, error)
}

type statusPoller interface {
	GetStatus(ctx context.Context, in payments.StatusInput) (*payments.StatusResult, error)
}

// ReconcileJobParams configure the pending order sweep.
type ReconcileJobParams struct {
	Logger  *logger.Logger
	Orders  unsettledLister
	Poller  statusPoller
	Config  config.ReconcileConfig
	Metrics *metrics.CronJobMetrics
	Clock   func() time.Time
}

// NewReconcileJob builds the job that polls the gateway for orders whose webhook
// never arrived. Each order goes through the regular status poll, so a paid
// order is propagated to its registration exactly as a client poll would.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Orders == nil {
		return nil, errors.New("unsettled order lister required")
	}
	if params.Poller == nil {
		return nil, errors.New("status poller required")
	}
	cfg := params.Config
	if cfg.MinAge <= 0 || cfg.MaxAge <= cfg.MinAge {
		return nil, fmt.Errorf("reconcile window invalid: min %s max %s", cfg.MinAge, cfg.MaxAge)
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("reconcile batch size must be positive")
	}
	if cfg.RecheckAfter <= 0 {
		cfg.RecheckAfter = cfg.MinAge
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &reconcileJob{
		logg:    params.Logger,
		orders:  params.Orders,
		poller:  params.Poller,
		cfg:     cfg,
		metrics: params.Metrics,
		now:     clock,
	}, nil
}

type reconcileJob struct {
	logg    *logger.Logger
	orders  unsettledLister
	poller  statusPoller
	cfg     config.ReconcileConfig
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *reconcileJob) Name() string { return ReconcileJobName }

func (j *reconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	ids, err := j.orders.ListUnsettled(ctx, payments.UnsettledQuery{
		CreatedAfter:  now.Add(-j.cfg.MaxAge),
		CreatedBefore: now.Add(-j.cfg.MinAge),
		CheckedBefore: now.Add(-j.cfg.RecheckAfter),
		Limit:         j.cfg.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("list unsettled orders: %w", err)
	}

	var (
		errs    error
		settled int
		pending int
	)
	for _, orderID := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		res, err := j.poller.GetStatus(ctx, payments.StatusInput{OrderID: orderID})
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			// Removed between listing and polling.
			j.metrics.IncReconciled("missing")
		case err != nil:
			j.metrics.IncReconciled("failed")
			errs = multierr.Append(errs, fmt.Errorf("poll %s: %w", orderID, err))
		case res.Status.IsUnsettled():
			pending++
			j.metrics.IncReconciled("still_pending")
		default:
			settled++
			j.metrics.IncReconciled("settled")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(ids),
		"settled":    settled,
		"pending":    pending,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment reconcile sweep complete")
	return errs
}
