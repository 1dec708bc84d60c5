package resource

import "time"

// Outcome classifies how a call settled.
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // Resolved with Success=true
	OutcomeFailure Outcome = "failure" // Resolved with Success=false
	OutcomeError   Outcome = "error"   // Returned an error or panicked
)

// Metrics receives lifecycle events from resources.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// CallStarted is called when a call function is invoked.
	CallStarted(resource string)

	// CallSettled is called when a call function returns, whether or not its
	// result is applied.
	CallSettled(resource string, outcome Outcome, duration time.Duration)

	// StaleDiscarded is called when a settled result belongs to a superseded
	// generation.
	StaleDiscarded(resource string)

	// TickSkipped is called when a poll tick finds a call still in flight.
	TickSkipped(resource string)
}

type noopMetrics struct{}

func (noopMetrics) CallStarted(string)                         {}
func (noopMetrics) CallSettled(string, Outcome, time.Duration) {}
func (noopMetrics) StaleDiscarded(string)                      {}
func (noopMetrics) TickSkipped(string)                         {}
