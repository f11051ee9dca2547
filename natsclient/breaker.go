package natsclient

import (
	"sync"
	"time"
)

// breaker counts failed connection attempts. It opens after threshold
// failures in a row; every further threshold failures while open double the
// backoff, up to max.
type breaker struct {
	mu        sync.Mutex
	threshold int32
	initial   time.Duration
	max       time.Duration

	total   int32
	streak  int32
	backoff time.Duration
	last    time.Time
	open    bool
}

func newBreaker(threshold int32, initial, max time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		initial:   initial,
		max:       max,
		backoff:   initial,
	}
}

// fail records one failure at now. When this failure opens the breaker it
// returns the wait before the next half-open, otherwise zero.
func (b *breaker) fail(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	b.last = now
	b.streak++
	if b.streak < b.threshold {
		return 0
	}
	b.streak = 0

	wait := b.backoff
	b.backoff = min(b.backoff*2, b.max)
	if b.open {
		return 0
	}
	b.open = true
	return wait
}

// halfOpen lets the next attempt through. It reports whether the breaker
// was open.
func (b *breaker) halfOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	was := b.open
	b.open = false
	return was
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total, b.streak = 0, 0
	b.backoff = b.initial
	b.last = time.Time{}
	b.open = false
}

func (b *breaker) failures() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *breaker) currentBackoff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backoff
}

func (b *breaker) lastFailure() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
