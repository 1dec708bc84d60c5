// Package clock abstracts wall time and repeating timers so that periodic
// work can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Stop releases a repeating timer. It is safe to call more than once.
type Stop func()

// Clock provides the current time and repeating timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Every calls fn every d until the returned Stop is called.
	// The first call happens after d, not immediately.
	Every(d time.Duration, fn func()) Stop
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Every(d time.Duration, fn func()) Stop {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// A tick racing with Stop must not run fn.
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
