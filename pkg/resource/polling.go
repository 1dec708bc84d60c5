package resource

import (
	"sync"
	"time"

	"github.com/vango-dev/fetchkit/pkg/clock"
	"github.com/vango-dev/fetchkit/pkg/reactive"
)

// Polling is a Resource that refreshes itself on a repeating timer.
// A tick that finds a call in flight is skipped, so at most one
// poll-initiated call runs at a time.
type Polling[T any] struct {
	*Resource[T]

	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	enabled  bool
	closed   bool

	// stop releases the active timer. nil when no timer is held.
	stop reactive.Cleanup
}

// NewPolling creates a Polling resource. The timer starts immediately when
// enabled; the first tick comes one interval after creation.
func NewPolling[T any](call CallFunc[T], opts ...Option) *Polling[T] {
	cfg := buildConfig(opts)
	p := &Polling[T]{
		Resource: newResource(call, cfg),
		clock:    cfg.clock,
		interval: cfg.interval,
		enabled:  cfg.enabled,
	}
	p.Resource.start()

	p.mu.Lock()
	p.rescheduleLocked()
	p.mu.Unlock()

	return p
}

// Interval returns the polling period.
func (p *Polling[T]) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Enabled reports whether polling is enabled.
func (p *Polling[T]) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetInterval changes the polling period, replacing the active timer.
func (p *Polling[T]) SetInterval(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configureLocked(d, p.enabled)
}

// SetEnabled starts or stops polling.
func (p *Polling[T]) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled == p.enabled {
		return
	}
	p.enabled = enabled
	p.rescheduleLocked()
}

// Configure changes period and enablement together.
func (p *Polling[T]) Configure(d time.Duration, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configureLocked(d, enabled)
}

// SetCall replaces the call function and restarts the timer.
func (p *Polling[T]) SetCall(call CallFunc[T]) {
	if call == nil {
		panic("resource: nil call function")
	}
	p.Resource.setCall(call)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rescheduleLocked()
}

// Close releases the timer and closes the resource.
func (p *Polling[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.releaseLocked()
	p.mu.Unlock()

	p.Resource.Close()
}

func (p *Polling[T]) configureLocked(d time.Duration, enabled bool) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	if d == p.interval && enabled == p.enabled {
		return nil
	}
	p.interval = d
	p.enabled = enabled
	p.rescheduleLocked()
	return nil
}

// rescheduleLocked releases the active timer and acquires a new one when
// polling is enabled. p.mu must be held.
func (p *Polling[T]) rescheduleLocked() {
	p.releaseLocked()
	if p.closed || !p.enabled {
		return
	}

	p.stop = reactive.Interval(p.clock, p.interval, p.tick)
	p.Resource.log.Debug("polling timer acquired", "interval", p.interval)
}

func (p *Polling[T]) releaseLocked() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

func (p *Polling[T]) tick() {
	if p.Resource.tryRefresh() {
		return
	}
	p.Resource.cfg.metrics.TickSkipped(p.Resource.cfg.name)
	p.Resource.log.Debug("poll tick skipped, call in flight")
}
