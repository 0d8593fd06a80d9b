package app

import (
	"sync"
	"time"

	"gmx-rsi-bot/internal/config"
)

// breaker bounds consecutive fetch failures. Once maxAttempts failures in a
// row have been seen it opens; while open each tick gets a single trial.
type breaker struct {
	initial     time.Duration
	max         time.Duration
	maxAttempts int

	mu       sync.Mutex
	open     bool
	openedAt time.Time
}

func newBreaker(cfg config.RetryConfig) *breaker {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &breaker{initial: cfg.InitialBackoff, max: cfg.MaxBackoff, maxAttempts: attempts}
}

// backoff is the wait after the given 1-based failed attempt.
func (b *breaker) backoff(attempt int) time.Duration {
	d := b.initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.max > 0 && d >= b.max {
			return b.max
		}
	}
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

// attempts is how many tries the next fetch may make.
func (b *breaker) attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return 1
	}
	return b.maxAttempts
}

// trip opens the breaker and reports whether it was closed before.
func (b *breaker) trip(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return false
	}
	b.open = true
	b.openedAt = now
	return true
}

// reset closes the breaker and reports whether it had been open.
func (b *breaker) reset() (bool, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasOpen, since := b.open, b.openedAt
	b.open = false
	b.openedAt = time.Time{}
	return wasOpen, since
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
