package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerInvokesCallback(t *testing.T) {
	var count int32
	mock := NewMockClock()
	tm := New(5, func() { atomic.AddInt32(&count, 1) }, mock)

	tm.Start()
	defer tm.Stop()

	// Nudge virtual time forward until the run loop, which arms its wait
	// asynchronously, has picked up the advance; avoids a real sleep.
	assert.Eventually(t, func() bool {
		mock.Add(5 * time.Millisecond)
		return atomic.LoadInt32(&count) >= 3
	}, time.Second, time.Millisecond, "expected callback invoked on each virtual tick")
}

func TestStartStopIdempotent(t *testing.T) {
	tm := New(5, func() {}, RealClock{})
	assert.NotPanics(t, func() {
		tm.Start()
		tm.Start() // no-op, must not deadlock or spawn a second loop
		tm.Stop()
		tm.Stop() // no-op
	})
}

func TestSetScaleShortensInterval(t *testing.T) {
	tm := New(100, func() {}, RealClock{})
	base := tm.interval()

	tm.SetScale(2)
	scaled := tm.interval()

	assert.Less(t, scaled, base)
}
