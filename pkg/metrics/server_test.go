package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerServesWorkerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cron := NewCronJobMetrics(reg)
	cron.IncReconciled("settled")

	srv := NewServer(":9102", reg)
	assert.Equal(t, ":9102", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `payment_reconciled_orders_total{outcome="settled"} 1`)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
