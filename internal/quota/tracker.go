package quota

import (
	"fmt"
	"sync"
	"time"
)

// Tracker enforces the daily send ceiling. It is a process-wide singleton
// injected into the dispatch engine; nothing else mutates its counters.
//
// Reservations are not reversible: the external provider meters attempts,
// not successes, so a reservation stays consumed even when the downstream
// send fails.
type Tracker struct {
	mu          sync.Mutex
	now         func() time.Time
	windowStart time.Time
	used        int
	ceiling     int
}

// ExhaustedError is returned by TryReserve when granting the reservation
// would push the window count past the ceiling. Remaining may be zero.
type ExhaustedError struct {
	Remaining int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("daily send quota exhausted (%d remaining)", e.Remaining)
}

// Snapshot is a point-in-time view of the quota window, used for
// reporting and for persisting the counter across restarts.
type Snapshot struct {
	WindowStart time.Time `json:"window_start"`
	Used        int       `json:"used"`
	Ceiling     int       `json:"ceiling"`
	Remaining   int       `json:"remaining"`
}

// New returns a Tracker with an empty window starting today (UTC).
func New(ceiling int) *Tracker {
	return NewWithClock(ceiling, time.Now)
}

// NewWithClock lets tests drive window rollover with a fake clock.
func NewWithClock(ceiling int, now func() time.Time) *Tracker {
	t := &Tracker{now: now, ceiling: ceiling}
	t.windowStart = windowStart(now())
	return t
}

// TryReserve atomically checks used+n against the ceiling for the current
// window and consumes n units on success. It never blocks: when the window
// cannot fit n more sends it fails fast with an ExhaustedError carrying the
// remaining capacity. Window rollover happens inside the same critical
// section, so concurrent callers can never evaluate a reservation against
// a stale window.
func (t *Tracker) TryReserve(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	if t.used+n > t.ceiling {
		return &ExhaustedError{Remaining: t.ceiling - t.used}
	}
	t.used += n
	return nil
}

// Snapshot returns the current window state, rolling the window over first
// so a caller never sees yesterday's counter.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	return Snapshot{
		WindowStart: t.windowStart,
		Used:        t.used,
		Ceiling:     t.ceiling,
		Remaining:   t.ceiling - t.used,
	}
}

// Restore seeds the tracker from a persisted counter. The count is adopted
// only when the persisted window is still the current one; a counter from
// a past window is stale and ignored.
func (t *Tracker) Restore(persistedWindow time.Time, used int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	if !windowStart(persistedWindow).Equal(t.windowStart) {
		return
	}
	if used > t.ceiling {
		used = t.ceiling
	}
	t.used = used
}

// rollover resets the counter when the wall clock has crossed into a new
// window since windowStart. Callers must hold mu.
func (t *Tracker) rollover() {
	current := windowStart(t.now())
	if current.After(t.windowStart) {
		t.windowStart = current
		t.used = 0
	}
}

// windowStart truncates a timestamp to the start of its UTC calendar day,
// the fixed period over which the provider meters the quota.
func windowStart(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
