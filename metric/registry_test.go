package metric

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r)
	require.NotNil(t, r.CoreMetrics())
	require.NotNil(t, r.PrometheusRegistry())
}

func TestRegisterAndUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_component_ops_total",
		Help: "test counter",
	})
	require.NoError(t, r.RegisterCounter("test_component", "ops", counter))

	// Duplicate key is rejected
	err := r.RegisterCounter("test_component", "ops", counter)
	require.Error(t, err)

	assert.True(t, r.Unregister("test_component", "ops"))
	assert.False(t, r.Unregister("test_component", "ops"))

	// Re-registration succeeds after unregister
	require.NoError(t, r.RegisterCounter("test_component", "ops", counter))
}

func TestRegisterConflictingCollector(t *testing.T) {
	r := NewMetricsRegistry()

	a := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "a"})
	b := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "a"})

	require.NoError(t, r.RegisterGauge("comp_a", "g", a))
	// Same fully-qualified prometheus name under a different key
	err := r.RegisterGauge("comp_b", "g", b)
	require.Error(t, err)
}

func TestHandlerServesCoreMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	r.CoreMetrics().TransactionsReceived.WithLabelValues("feed").Inc()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
