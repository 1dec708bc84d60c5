package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called.
// Timer callbacks run synchronously on the goroutine calling Advance,
// in due-time order.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	nextID  uint64
	tickers map[uint64]*manualTicker
}

type manualTicker struct {
	next   time.Time
	period time.Duration
	fn     func()
}

// NewManual creates a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		tickers: make(map[uint64]*manualTicker),
	}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers a repeating timer.
func (m *Manual) Every(d time.Duration, fn func()) Stop {
	if d <= 0 {
		panic("clock: non-positive interval")
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.tickers[id] = &manualTicker{
		next:   m.now.Add(d),
		period: d,
		fn:     fn,
	}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tickers, id)
		m.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every timer that comes due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var (
			dueID uint64
			due   *manualTicker
		)
		for id, t := range m.tickers {
			if t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && id < dueID) {
				dueID, due = id, t
			}
		}
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.next
		due.next = due.next.Add(due.period)
		fn := due.fn
		m.mu.Unlock()

		fn()
	}
}

// Active reports the number of timers that have not been stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}
