package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/fetchkit/pkg/reactive"
)

// Resource drives one call function through a loading/settled cycle and
// publishes the resulting RequestState.
type Resource[T any] struct {
	cfg       config
	log       *slog.Logger
	onSuccess func(T)

	// state mirrors cur for listeners. Publications are ordered by version.
	state *reactive.Signal[RequestState[T]]

	mu       sync.Mutex
	call     CallFunc[T]
	cur      RequestState[T]
	gen      uint64
	version  uint64
	inflight int
	deps     []any
	closed   bool
	idle     chan struct{} // closed when cur stops loading

	// afterSettle runs, outside mu, after an applied settlement.
	afterSettle func(res CallResult[T], err error)
}

// New creates a Resource around call. Unless WithImmediate(false) is given,
// the first execution starts in the background before New returns.
func New[T any](call CallFunc[T], opts ...Option) *Resource[T] {
	r := newResource(call, buildConfig(opts))
	r.start()
	return r
}

func newResource[T any](call CallFunc[T], cfg config) *Resource[T] {
	if call == nil {
		panic("resource: nil call function")
	}

	r := &Resource[T]{
		cfg:  cfg,
		log:  cfg.logger.With("resource", cfg.name),
		call: call,
		deps: cfg.deps,
		cur:  RequestState[T]{Status: Idle},
	}

	if cfg.onSuccess != nil {
		fn, ok := cfg.onSuccess.(func(T))
		if !ok {
			panic(fmt.Sprintf("resource: OnSuccess callback is %T, want func(%T)", cfg.onSuccess, *new(T)))
		}
		r.onSuccess = fn
	}

	r.state = reactive.NewSignal(r.cur).WithEquals(func(a, b RequestState[T]) bool {
		return a.version == b.version
	})

	return r
}

// start runs the initial automatic execution.
func (r *Resource[T]) start() {
	if r.cfg.immediate {
		r.trigger(nil)
	}
}

// Name returns the name the resource reports under.
func (r *Resource[T]) Name() string {
	return r.cfg.name
}

// State returns the current snapshot.
func (r *Resource[T]) State() RequestState[T] {
	return r.state.Get()
}

// Data returns the latest successfully fetched payload and whether there is one.
func (r *Resource[T]) Data() (T, bool) {
	s := r.state.Get()
	return s.Data, s.HasData
}

// Loading reports whether the current generation's call is in flight.
func (r *Resource[T]) Loading() bool {
	return r.state.Get().Loading
}

// Err returns the latest failure message, or "".
func (r *Resource[T]) Err() string {
	return r.state.Get().Error
}

// Subscribe calls fn after every state change. fn should read State().
func (r *Resource[T]) Subscribe(fn func()) (unsubscribe func()) {
	return r.state.Subscribe(fn)
}

// Execute starts a new generation with params and blocks until its call
// settles. It returns the state visible after settlement, which belongs to
// a newer generation if this call was superseded meanwhile.
// Execute on a closed resource returns the current state without calling.
func (r *Resource[T]) Execute(ctx context.Context, params Params) RequestState[T] {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.State()
	}
	gen, call, next := r.beginLocked()
	r.mu.Unlock()

	r.publish(next)
	r.run(ctx, gen, call, params)
	return r.State()
}

// Refresh is Execute with no parameters. Previously used parameters are not
// remembered.
func (r *Resource[T]) Refresh(ctx context.Context) RequestState[T] {
	return r.Execute(ctx, nil)
}

// Reset clears data and error and stops loading. Calls in flight when Reset
// runs are discarded when they settle.
func (r *Resource[T]) Reset() {
	r.mu.Lock()
	r.gen++
	next := r.commitLocked(RequestState[T]{Status: Idle, Generation: r.gen})
	r.mu.Unlock()

	r.publish(next)
	r.log.Debug("resource reset", "generation", next.Generation)
}

// Mutate replaces the data locally with fn applied to the current data.
// A call in flight still overwrites it when it settles.
func (r *Resource[T]) Mutate(fn func(T) T) {
	r.mu.Lock()
	next := r.cur
	next.Data = fn(next.Data)
	next.HasData = true
	next = r.commitLocked(next)
	r.mu.Unlock()

	r.publish(next)
}

// SetDependencies replaces the dependency list. When the list differs from
// the previous one (shallow, per entry) and the resource is immediate, a new
// execution starts in the background. It reports whether one was started.
func (r *Resource[T]) SetDependencies(deps ...any) bool {
	r.mu.Lock()
	if r.closed || depsEqual(r.deps, deps) {
		r.mu.Unlock()
		return false
	}
	r.deps = append([]any(nil), deps...)
	r.mu.Unlock()

	if !r.cfg.immediate {
		return false
	}
	return r.trigger(nil)
}

// Wait blocks until no call of the current generation is in flight, the
// resource is closed, or ctx is done.
func (r *Resource[T]) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.closed || !r.cur.Loading {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the resource. Later Execute calls are no-ops and calls still
// in flight are discarded when they settle. Close does not cancel them.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.gen++
	r.releaseIdleLocked()
	r.mu.Unlock()

	r.log.Debug("resource closed")
}

// setCall swaps the call function used by future executions.
func (r *Resource[T]) setCall(call CallFunc[T]) {
	r.mu.Lock()
	r.call = call
	r.mu.Unlock()
}

// trigger starts a background execution. It reports false when closed.
func (r *Resource[T]) trigger(params Params) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	gen, call, next := r.beginLocked()
	r.mu.Unlock()

	r.publish(next)
	go r.run(r.cfg.ctx, gen, call, params)
	return true
}

// tryRefresh starts a background refresh unless any call is in flight.
func (r *Resource[T]) tryRefresh() bool {
	r.mu.Lock()
	if r.closed || r.cur.Loading || r.inflight > 0 {
		r.mu.Unlock()
		return false
	}
	gen, call, next := r.beginLocked()
	r.mu.Unlock()

	r.publish(next)
	go r.run(r.cfg.ctx, gen, call, nil)
	return true
}

// beginLocked opens a new generation. r.mu must be held.
func (r *Resource[T]) beginLocked() (uint64, CallFunc[T], RequestState[T]) {
	r.gen++
	r.inflight++

	next := r.cur
	next.Loading = true
	next.Error = ""
	next.Status = Loading
	next.Generation = r.gen
	if r.cfg.staleData == ClearStaleData {
		var zero T
		next.Data = zero
		next.HasData = false
	}
	if !r.cur.Loading {
		r.idle = make(chan struct{})
	}

	return r.gen, r.call, r.commitLocked(next)
}

// commitLocked stamps next with a new version and makes it current.
func (r *Resource[T]) commitLocked(next RequestState[T]) RequestState[T] {
	r.version++
	next.version = r.version
	r.cur = next
	if !next.Loading {
		r.releaseIdleLocked()
	}
	return next
}

func (r *Resource[T]) releaseIdleLocked() {
	if r.idle != nil {
		close(r.idle)
		r.idle = nil
	}
}

// publish hands next to listeners unless a newer state was published first.
func (r *Resource[T]) publish(next RequestState[T]) {
	r.state.Update(func(old RequestState[T]) RequestState[T] {
		if next.version <= old.version {
			return old
		}
		return next
	})
}

// run invokes call and applies its settlement if gen is still current.
func (r *Resource[T]) run(ctx context.Context, gen uint64, call CallFunc[T], params Params) {
	ctx, span := r.cfg.tracer.Start(ctx, "resource.execute",
		trace.WithAttributes(
			attribute.String("resource.name", r.cfg.name),
			attribute.Int64("resource.generation", int64(gen)),
		),
	)
	defer span.End()

	r.cfg.metrics.CallStarted(r.cfg.name)
	started := time.Now()

	res, err := invoke(ctx, call, params)

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !res.Success:
		outcome = OutcomeFailure
		span.SetStatus(codes.Error, failureMessage(res, r.cfg.fallback))
	}
	span.SetAttributes(attribute.String("resource.outcome", string(outcome)))
	r.cfg.metrics.CallSettled(r.cfg.name, outcome, time.Since(started))

	applied := r.settle(gen, res, err)
	if !applied {
		span.SetAttributes(attribute.Bool("resource.stale", true))
	}
}

// invoke calls call, converting a panic into a *PanicError.
func invoke[T any](ctx context.Context, call CallFunc[T], params Params) (res CallResult[T], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return call(ctx, params)
}

// settle applies a settlement of generation gen. It reports whether the
// settlement was current.
func (r *Resource[T]) settle(gen uint64, res CallResult[T], err error) bool {
	r.mu.Lock()
	r.inflight--
	if r.closed || gen != r.gen {
		current := r.gen
		r.mu.Unlock()

		r.cfg.metrics.StaleDiscarded(r.cfg.name)
		r.log.Debug("discarding stale result", "generation", gen, "current", current)
		return false
	}

	next := r.cur
	next.Loading = false

	var msg string
	switch {
	case err != nil:
		msg = errorMessage(err, r.cfg.fallback)
	case !res.Success:
		msg = failureMessage(res, r.cfg.fallback)
	default:
		next.Data = res.Data
		next.HasData = true
		next.Status = Success
	}
	if msg != "" {
		next.Error = msg
		next.Status = Error
	}
	next = r.commitLocked(next)
	hook := r.afterSettle
	r.mu.Unlock()

	if hook != nil {
		hook(res, err)
	}
	r.publish(next)

	if msg != "" {
		r.log.Warn("call failed", "generation", gen, "error", msg)
		if r.cfg.onError != nil {
			r.cfg.onError(msg)
		}
		return true
	}

	r.log.Debug("call succeeded", "generation", gen)
	if r.onSuccess != nil {
		r.onSuccess(res.Data)
	}
	return true
}
