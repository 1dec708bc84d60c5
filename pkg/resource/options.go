package resource

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/fetchkit/pkg/clock"
)

const (
	// DefaultInitialPage is the first page a Paginated resource requests.
	DefaultInitialPage = 1

	// DefaultInitialLimit is the page size a Paginated resource starts with.
	DefaultInitialLimit = 10

	// DefaultInterval is the period of a Polling resource.
	DefaultInterval = 5 * time.Second

	tracerName = "github.com/vango-dev/fetchkit/pkg/resource"
)

// StaleDataPolicy decides what happens to previously fetched data when a
// new call starts.
type StaleDataPolicy int

const (
	// KeepStaleData leaves the previous data visible while loading.
	KeepStaleData StaleDataPolicy = iota

	// ClearStaleData drops the previous data when a call starts.
	ClearStaleData
)

// Option configures a resource. Options that only apply to Paginated or
// Polling resources are ignored by the others.
type Option func(*config)

type config struct {
	name         string
	immediate    bool
	deps         []any
	onSuccess    any
	onError      func(string)
	staleData    StaleDataPolicy
	fallback     string
	ctx          context.Context
	logger       *slog.Logger
	metrics      Metrics
	tracer       trace.Tracer
	initialPage  int
	initialLimit int
	interval     time.Duration
	enabled      bool
	clock        clock.Clock
}

func defaultConfig() config {
	return config{
		name:         "resource",
		immediate:    true,
		staleData:    KeepStaleData,
		fallback:     DefaultErrorMessage,
		ctx:          context.Background(),
		initialPage:  DefaultInitialPage,
		initialLimit: DefaultInitialLimit,
		interval:     DefaultInterval,
		enabled:      true,
	}
}

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = noopMetrics{}
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	if cfg.clock == nil {
		cfg.clock = clock.Real()
	}
	return cfg
}

// WithName names the resource in logs, metrics and traces.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithImmediate controls whether the resource executes on creation and on
// every dependency change. Defaults to true.
func WithImmediate(immediate bool) Option {
	return func(c *config) {
		c.immediate = immediate
	}
}

// WithDependencies sets the initial dependency list.
// See Resource.SetDependencies.
func WithDependencies(deps ...any) Option {
	return func(c *config) {
		c.deps = append([]any(nil), deps...)
	}
}

// OnSuccess registers a callback run with the payload of every applied
// successful call. fn's type must match the resource's data type.
func OnSuccess[T any](fn func(T)) Option {
	return func(c *config) {
		c.onSuccess = fn
	}
}

// OnError registers a callback run with the message of every applied failure.
func OnError(fn func(string)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// WithStaleData sets the StaleDataPolicy. Defaults to KeepStaleData.
func WithStaleData(policy StaleDataPolicy) Option {
	return func(c *config) {
		c.staleData = policy
	}
}

// WithFallbackMessage replaces DefaultErrorMessage for failures without a
// message.
func WithFallbackMessage(msg string) Option {
	return func(c *config) {
		if msg != "" {
			c.fallback = msg
		}
	}
}

// WithContext sets the context automatic executions run with.
// The resource never cancels it.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for call spans.
// Defaults to the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithInitialPage sets the first page of a Paginated resource.
func WithInitialPage(page int) Option {
	return func(c *config) {
		if page >= 1 {
			c.initialPage = page
		}
	}
}

// WithInitialLimit sets the initial page size of a Paginated resource.
func WithInitialLimit(limit int) Option {
	return func(c *config) {
		if limit >= 1 {
			c.initialLimit = limit
		}
	}
}

// WithInterval sets the period of a Polling resource.
// Non-positive values keep DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithEnabled controls whether a Polling resource starts its timer.
func WithEnabled(enabled bool) Option {
	return func(c *config) {
		c.enabled = enabled
	}
}

// WithClock sets the clock a Polling resource schedules ticks on.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}
