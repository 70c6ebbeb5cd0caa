package relay

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// lockPollInterval is the bounded wait between acquisition attempts.
const lockPollInterval = 100 * time.Millisecond

// generationLock serializes the audio-generation critical section. The
// holder claims a hold window; a waiter polls until the window has passed.
// Release resets the window to now rather than zero, so an immediately
// following acquisition still waits out any residual skew.
type generationLock struct {
	clock clockwork.Clock

	mu        sync.Mutex
	heldUntil time.Time
}

func newGenerationLock(clock clockwork.Clock) *generationLock {
	return &generationLock{clock: clock}
}

// Acquire blocks until the previous hold window has passed, then claims a
// new window of the given duration. It returns the time spent waiting so
// the caller can subtract it from the warning lead time. The poll loop
// aborts when ctx is cancelled.
func (l *generationLock) Acquire(ctx context.Context, hold time.Duration) (time.Duration, error) {
	start := l.clock.Now()

	for {
		l.mu.Lock()
		now := l.clock.Now()
		if !now.Before(l.heldUntil) {
			l.heldUntil = now.Add(hold)
			l.mu.Unlock()
			return now.Sub(start), nil
		}
		l.mu.Unlock()

		select {
		case <-l.clock.After(lockPollInterval):
		case <-ctx.Done():
			return l.clock.Now().Sub(start), ctx.Err()
		}
	}
}

// Release ends the critical section, resetting the hold window to now.
func (l *generationLock) Release() {
	l.mu.Lock()
	l.heldUntil = l.clock.Now()
	l.mu.Unlock()
}
