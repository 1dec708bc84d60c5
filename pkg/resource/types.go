package resource

import "context"

// Status is the lifecycle position of a resource.
type Status int

const (
	Idle    Status = iota // Nothing fetched yet, or Reset
	Loading               // The current generation's call is in flight
	Success               // The latest settled call succeeded
	Error                 // The latest settled call failed
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Params are the parameters handed to a call function.
type Params map[string]any

// PageInfo describes one page of a listing.
type PageInfo struct {
	Page       int `json:"page" yaml:"page"`
	Limit      int `json:"limit" yaml:"limit"`
	Total      int `json:"total" yaml:"total"`
	TotalPages int `json:"totalPages" yaml:"totalPages"`
}

// CallResult is the envelope a call function resolves with.
type CallResult[T any] struct {
	Success    bool      `json:"success"`
	Data       T         `json:"data,omitempty"`
	Message    string    `json:"message,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

// OK returns a successful CallResult carrying data.
func OK[T any](data T) CallResult[T] {
	return CallResult[T]{Success: true, Data: data}
}

// Fail returns a failed CallResult with the given message.
func Fail[T any](message string) CallResult[T] {
	return CallResult[T]{Message: message}
}

// CallFunc performs the remote call. Expected failures resolve with
// Success=false; transport failures return an error.
type CallFunc[T any] func(ctx context.Context, params Params) (CallResult[T], error)

// RequestState is the consumer-facing snapshot of a resource.
type RequestState[T any] struct {
	// Data is the payload of the latest successful call.
	// Only meaningful when HasData is true.
	Data    T
	HasData bool

	// Loading is true while the current generation's call is in flight.
	Loading bool

	// Error is the message of the latest failed call, or "".
	Error string

	Status Status

	// Generation identifies the Execute this state belongs to.
	Generation uint64

	// version orders publications of the same resource.
	version uint64
}
