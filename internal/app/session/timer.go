package session

import (
	"context"
	"sync"
	"time"
)

const defaultTick = time.Second

// Timer derives the deadline from a persisted start time. Ticks only refresh
// the countdown; expiry is decided by comparing the wall clock with the
// deadline, so missed ticks cannot move it.
type Timer struct {
	start    time.Time
	duration time.Duration
	tick     time.Duration
	now      func() time.Time

	once    sync.Once
	expired chan struct{}
}

func NewTimer(start time.Time, duration time.Duration, now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{
		start:    start,
		duration: duration,
		tick:     defaultTick,
		now:      now,
		expired:  make(chan struct{}),
	}
}

func (t *Timer) Start() time.Time { return t.start }

func (t *Timer) Deadline() time.Time { return t.start.Add(t.duration) }

// Remaining returns whole seconds left, rounded up, never negative.
func (t *Timer) Remaining(now time.Time) int {
	left := t.Deadline().Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

func (t *Timer) Expired(now time.Time) bool {
	return !now.Before(t.Deadline())
}

// Done is closed once the expiry signal has fired.
func (t *Timer) Done() <-chan struct{} { return t.expired }

// Run blocks until the deadline passes or ctx ends. onExpire is called at
// most once across all Run calls, immediately if the deadline has already
// passed.
func (t *Timer) Run(ctx context.Context, onExpire func()) {
	if t.Expired(t.now()) {
		t.fire(onExpire)
		return
	}

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.expired:
			return
		case <-ticker.C:
			if t.Expired(t.now()) {
				t.fire(onExpire)
				return
			}
		}
	}
}

func (t *Timer) fire(onExpire func()) {
	t.once.Do(func() {
		close(t.expired)
		if onExpire != nil {
			onExpire()
		}
	})
}
