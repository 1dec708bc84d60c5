package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/fetchkit/pkg/resource"
)

func TestCallMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	m.CallStarted("users")
	m.CallStarted("users")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.callsInFlight.WithLabelValues("users")))

	m.CallSettled("users", resource.OutcomeSuccess, 20*time.Millisecond)
	m.CallSettled("users", resource.OutcomeError, 10*time.Millisecond)

	assert.Zero(t, testutil.ToFloat64(m.callsInFlight.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("users", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("users", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.callDuration))
}

func TestStaleAndSkipped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.StaleDiscarded("stats")
	m.TickSkipped("stats")
	m.TickSkipped("stats")

	expected := `
# HELP test_poll_ticks_skipped_total Total number of poll ticks skipped while a call was in flight
# TYPE test_poll_ticks_skipped_total counter
test_poll_ticks_skipped_total{resource="stats"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_poll_ticks_skipped_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleDiscarded.WithLabelValues("stats")))
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithConstLabels(prometheus.Labels{"service": "admin"}))

	m.ObserveRequest("/api/users", 200, time.Millisecond)
	m.ObserveRequest("", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/users", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("unmatched", "404")))
}

func TestHubClients(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.SetHubClients(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.hubClients))
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(WithRegistry(prometheus.NewRegistry()))
		New(WithRegistry(prometheus.NewRegistry()))
	})

	reg := prometheus.NewRegistry()
	New(WithRegistry(reg))
	assert.Panics(t, func() { New(WithRegistry(reg)) })
}
