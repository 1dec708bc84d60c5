package reactive

import (
	"sync"
	"time"

	"github.com/vango-dev/fetchkit/pkg/clock"
)

// Interval schedules fn every d on clk and returns the timer as an owned
// handle. Calling the returned Cleanup stops future ticks; it is idempotent
// and may be called from inside fn.
//
//	stop := reactive.Interval(clock.Real(), time.Second, func() {
//	    counter.Update(func(n int) int { return n + 1 })
//	})
//	defer stop()
func Interval(clk clock.Clock, d time.Duration, fn func()) Cleanup {
	var (
		mu      sync.Mutex
		stopped bool
	)

	stop := clk.Every(d, func() {
		mu.Lock()
		done := stopped
		mu.Unlock()
		if done {
			return
		}
		fn()
	})

	return func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		stop()
	}
}
