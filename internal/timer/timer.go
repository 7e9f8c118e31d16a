// Package timer provides the scalable, wall-clock-driven callback
// scheduler both the server's tick loop and the client's tick loop run
// on.
package timer

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the injected time source the run loop schedules against.
// Production code uses RealClock; tests inject MockClock so the loop's
// actual wait is driven by virtual time instead of a real sleep.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock delegates to the time package.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MockClock wraps a benbjohnson/clock.Mock so tests can step the Timer's
// schedule deterministically rather than sleeping for real.
type MockClock struct {
	m *clock.Mock
}

// NewMockClock returns a MockClock set to its zero time.
func NewMockClock() *MockClock {
	return &MockClock{m: clock.NewMock()}
}

func (c *MockClock) Now() time.Time                         { return c.m.Now() }
func (c *MockClock) After(d time.Duration) <-chan time.Time { return c.m.After(d) }

// Add advances virtual time by d, firing any Timer wait whose deadline has
// since elapsed.
func (c *MockClock) Add(d time.Duration) { c.m.Add(d) }

// Timer invokes a callback at approximately T/scale millisecond intervals.
// If the host stalls long enough for more than one period to elapse, the
// Timer coalesces: it invokes the callback once rather than replaying the
// owed count. A queue of replayed ticks would only widen the very
// prediction window the PID controller is trying to bound.
type Timer struct {
	mu       sync.Mutex
	periodMs float64
	scale    float64
	callback func()
	clock    Clock
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Timer with the given base period (milliseconds) and
// callback. Scale starts at 1 (unscaled).
func New(periodMs float64, callback func(), clock Clock) *Timer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Timer{
		periodMs: periodMs,
		scale:    1,
		callback: callback,
		clock:    clock,
	}
}

// Start begins invoking the callback on schedule. Idempotent: calling
// Start on an already-running Timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(stopCh)
}

// Stop halts the callback loop and waits for it to exit. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	t.wg.Wait()
}

// SetScale adjusts the effective interval for subsequent invocations.
func (t *Timer) SetScale(scale float64) {
	t.mu.Lock()
	t.scale = scale
	t.mu.Unlock()
}

func (t *Timer) interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms := t.periodMs / t.scale
	return time.Duration(ms * float64(time.Millisecond))
}

func (t *Timer) run(stopCh chan struct{}) {
	defer t.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-t.clock.After(t.interval()):
			t.callback()
		}
	}
}
