package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.ObserveDuration("payment-reconcile", 2*time.Second)
	metrics.IncSuccess("payment-reconcile")
	metrics.IncSuccess("payment-reconcile")
	metrics.IncFailure("payment-reconcile")
	metrics.IncReconciled("settled")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "result", "success"); err != nil || got != 2 {
		t.Fatalf("expected 2 successes, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "result", "failure"); err != nil || got != 1 {
		t.Fatalf("expected 1 failure, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payment_reconciled_orders_total", "outcome", "settled"); err != nil || got != 1 {
		t.Fatalf("expected 1 settled, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "payment-reconcile"); err != nil || got != 2 {
		t.Fatalf("expected duration sum 2, got %f (%v)", got, err)
	}
	lastSuccess := findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds")
	if lastSuccess == nil || lastSuccess.GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatal("expected last success timestamp")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("job")
	nilMetrics.IncFailure("job")
	nilMetrics.ObserveDuration("job", time.Second)
	nilMetrics.IncReconciled("failed")

	NewCronJobMetrics(nil).IncSuccess("job")
}
