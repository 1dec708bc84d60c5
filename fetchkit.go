// Package fetchkit manages asynchronous remote data.
//
// A resource wraps a call function and exposes its loading, error and data
// state. Newer calls always win: a result that settles after a newer call
// has started, or after Reset, is discarded. Paginated resources add page
// bookkeeping; polling resources refresh on an interval and never overlap
// their own calls.
//
//	users := fetchkit.NewPaginated(httpsource.List[User](client, "/users"),
//	    fetchkit.WithInitialLimit(20),
//	)
//	defer users.Close()
//
//	users.NextPage()
//
// This package re-exports pkg/resource so that most programs need a single
// import.
package fetchkit

import (
	"github.com/vango-dev/fetchkit/pkg/resource"
)

// =============================================================================
// State
// =============================================================================

// Status is the lifecycle position of a resource.
type Status = resource.Status

const (
	Idle    Status = resource.Idle    // Nothing fetched yet, or Reset
	Loading Status = resource.Loading // Call in flight
	Success Status = resource.Success // Latest call succeeded
	Error   Status = resource.Error   // Latest call failed
)

// RequestState is the snapshot of a resource.
type RequestState[T any] = resource.RequestState[T]

// PageState is RequestState plus page bookkeeping.
type PageState[T any] = resource.PageState[T]

// PageInfo describes one page of a listing.
type PageInfo = resource.PageInfo

// =============================================================================
// Calls
// =============================================================================

// Params are handed to a call function.
type Params = resource.Params

// CallResult is the envelope a call function resolves with.
type CallResult[T any] = resource.CallResult[T]

// CallFunc performs one remote call.
type CallFunc[T any] = resource.CallFunc[T]

// OK returns a successful CallResult.
func OK[T any](data T) CallResult[T] {
	return resource.OK(data)
}

// Fail returns a failed CallResult with the given message.
func Fail[T any](message string) CallResult[T] {
	return resource.Fail[T](message)
}

// =============================================================================
// Resources
// =============================================================================

type (
	Resource[T any]  = resource.Resource[T]
	Paginated[T any] = resource.Paginated[T]
	Polling[T any]   = resource.Polling[T]
)

// New creates a resource. It executes once immediately unless
// WithImmediate(false) is given.
func New[T any](call CallFunc[T], opts ...Option) *Resource[T] {
	return resource.New(call, opts...)
}

// NewPaginated creates a paginated resource.
func NewPaginated[T any](call CallFunc[T], opts ...Option) *Paginated[T] {
	return resource.NewPaginated(call, opts...)
}

// NewPolling creates a polling resource. Call Close to release its timer.
func NewPolling[T any](call CallFunc[T], opts ...Option) *Polling[T] {
	return resource.NewPolling(call, opts...)
}

// =============================================================================
// Options
// =============================================================================

// Option configures a resource.
type Option = resource.Option

// StaleDataPolicy decides whether old data stays visible during a call.
type StaleDataPolicy = resource.StaleDataPolicy

const (
	KeepStaleData  = resource.KeepStaleData
	ClearStaleData = resource.ClearStaleData
)

var (
	WithName            = resource.WithName
	WithImmediate       = resource.WithImmediate
	WithDependencies    = resource.WithDependencies
	OnError             = resource.OnError
	WithStaleData       = resource.WithStaleData
	WithFallbackMessage = resource.WithFallbackMessage
	WithContext         = resource.WithContext
	WithLogger          = resource.WithLogger
	WithMetrics         = resource.WithMetrics
	WithTracer          = resource.WithTracer
	WithInitialPage     = resource.WithInitialPage
	WithInitialLimit    = resource.WithInitialLimit
	WithInterval        = resource.WithInterval
	WithEnabled         = resource.WithEnabled
	WithClock           = resource.WithClock
)

// OnSuccess registers a callback for successful results.
func OnSuccess[T any](fn func(T)) Option {
	return resource.OnSuccess(fn)
}

// =============================================================================
// Matching
// =============================================================================

// Handler handles one shape of state in Match.
type Handler[T, R any] = resource.Handler[T, R]

// Match returns the value of the first handler that accepts s.
func Match[T, R any](s RequestState[T], handlers ...Handler[T, R]) R {
	return resource.Match(s, handlers...)
}

func WhenIdle[T, R any](fn func() R) Handler[T, R] { return resource.WhenIdle[T](fn) }
func WhenLoading[T, R any](fn func() R) Handler[T, R] { return resource.WhenLoading[T](fn) }
func WhenError[T, R any](fn func(string) R) Handler[T, R] { return resource.WhenError[T](fn) }
func WhenReady[T, R any](fn func(T) R) Handler[T, R] { return resource.WhenReady(fn) }
func WhenLoadingOrIdle[T, R any](fn func() R) Handler[T, R] { return resource.WhenLoadingOrIdle[T](fn) }
