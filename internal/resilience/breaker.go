// Package resilience guards calls to the remote assistant service.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen rejects calls while the breaker waits out a failure streak.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker trips after a streak of consecutive failed assistant calls and
// rejects further calls until a cooldown passes. The first call after the
// cooldown is a probe: success closes the breaker, failure restarts the
// cooldown.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	clock       func() time.Time // for testing

	mu      sync.Mutex
	streak  int
	retryAt time.Time // zero while closed
	probing bool
}

// NewBreaker creates a breaker tripping after maxFailures consecutive
// failures, with the given cooldown before a probe is allowed.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown, clock: time.Now}
}

// Execute runs fn unless the breaker is tripped and still cooling down.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if !b.retryAt.IsZero() {
		if b.clock().Before(b.retryAt) {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.streak++
		if b.probing || b.streak >= b.maxFailures {
			b.retryAt = b.clock().Add(b.cooldown)
		}
		b.probing = false
		return err
	}
	b.streak = 0
	b.retryAt = time.Time{}
	b.probing = false
	return nil
}
