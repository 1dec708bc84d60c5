// Package metrics exports resource lifecycle events and admin API traffic
// as Prometheus metrics.
//
// Collectors are registered on the Registerer given with WithRegistry, so
// several independent sets can live in one process:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("myapp"))
//	users := resource.New(fetchUsers, resource.WithMetrics(m))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/fetchkit/pkg/resource"
)

// Config configures the Prometheus collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "fetchkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for call and request durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "fetchkit",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus implements resource.Metrics.
type Prometheus struct {
	callsTotal      *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	callsInFlight   *prometheus.GaugeVec
	staleDiscarded  *prometheus.CounterVec
	ticksSkipped    *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	hubClients      prometheus.Gauge
}

var _ resource.Metrics = (*Prometheus)(nil)

// New registers the collectors and returns them. Registering twice on the
// same registry panics, as with promauto.
//
// Metrics collected:
//   - fetchkit_calls_total: Counter of settled calls by resource and outcome
//   - fetchkit_call_duration_seconds: Histogram of call duration by resource
//   - fetchkit_calls_in_flight: Gauge of running calls by resource
//   - fetchkit_stale_results_total: Counter of discarded superseded results
//   - fetchkit_poll_ticks_skipped_total: Counter of poll ticks skipped
//   - fetchkit_http_requests_total: Counter of admin API requests by route and code
//   - fetchkit_http_request_duration_seconds: Histogram of admin API latency
//   - fetchkit_statehub_clients: Gauge of connected state stream clients
func New(opts ...Option) *Prometheus {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Prometheus{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "calls_total",
			Help:        "Total number of settled resource calls",
			ConstLabels: config.ConstLabels,
		}, []string{"resource", "outcome"}),

		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "call_duration_seconds",
			Help:        "Resource call duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"resource"}),

		callsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "calls_in_flight",
			Help:        "Number of resource calls currently running",
			ConstLabels: config.ConstLabels,
		}, []string{"resource"}),

		staleDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_results_total",
			Help:        "Total number of results discarded because a newer call was issued",
			ConstLabels: config.ConstLabels,
		}, []string{"resource"}),

		ticksSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "poll_ticks_skipped_total",
			Help:        "Total number of poll ticks skipped while a call was in flight",
			ConstLabels: config.ConstLabels,
		}, []string{"resource"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of admin API requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "Admin API request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		hubClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "statehub_clients",
			Help:        "Number of connected state stream clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (p *Prometheus) CallStarted(name string) {
	p.callsInFlight.WithLabelValues(name).Inc()
}

func (p *Prometheus) CallSettled(name string, outcome resource.Outcome, d time.Duration) {
	p.callsInFlight.WithLabelValues(name).Dec()
	p.callsTotal.WithLabelValues(name, string(outcome)).Inc()
	p.callDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (p *Prometheus) StaleDiscarded(name string) {
	p.staleDiscarded.WithLabelValues(name).Inc()
}

func (p *Prometheus) TickSkipped(name string) {
	p.ticksSkipped.WithLabelValues(name).Inc()
}

// ObserveRequest records one admin API request. route should be the route
// pattern, not the raw path, to keep label cardinality bounded.
func (p *Prometheus) ObserveRequest(route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	p.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetHubClients records the number of connected state stream clients.
func (p *Prometheus) SetHubClients(n int) {
	p.hubClients.Set(float64(n))
}
