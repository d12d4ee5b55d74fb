package recovery

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is one of the three circuit breaker states of spec §4.6.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// ErrBreakerOpen is returned by Breaker.Allow when the breaker is OPEN and
// fast-failing protected operations.
var ErrBreakerOpen = fmt.Errorf("circuit breaker open")

// Breaker is a named circuit breaker over one protected resource. Opens
// when >= threshold failures occur within window; after resetTimeout it
// allows a single HALF_OPEN probe.
type Breaker struct {
	name          string
	threshold     int
	window        time.Duration
	resetTimeout  time.Duration

	mu           sync.Mutex
	state        BreakerState
	failures     []time.Time
	openedAt     time.Time
	probeInFlight bool
}

// NewBreaker builds a Breaker named name with the given failure threshold,
// sliding window, and reset timeout. Defaults match spec §4.6 (N=5,
// window=60s, reset_timeout=30s) when zero values are passed.
func NewBreaker(name string, threshold int, window, resetTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:         name,
		threshold:    threshold,
		window:       window,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Allow reports whether a protected operation may proceed. In OPEN state it
// returns ErrBreakerOpen until resetTimeout has elapsed, at which point it
// transitions to HALF_OPEN and allows exactly one probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.resetTimeout {
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probeInFlight = true
		return nil
	case StateHalfOpen:
		if b.probeInFlight {
			return ErrBreakerOpen
		}
		b.probeInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess reports a successful protected operation. In HALF_OPEN, a
// success transitions the breaker to CLOSED and clears failure history.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.state = StateClosed
		b.failures = nil
		b.probeInFlight = false
	case StateClosed:
		b.probeInFlight = false
	}
}

// RecordFailure reports a failed protected operation. In HALF_OPEN, any
// failure reopens the breaker. In CLOSED, failures are tracked within the
// sliding window and the breaker opens once threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.probeInFlight = false
		return
	}

	now := time.Now()
	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, f := range b.failures {
		if f.After(cutoff) {
			kept = append(kept, f)
		}
	}
	b.failures = kept

	if len(b.failures) >= b.threshold {
		b.state = StateOpen
		b.openedAt = now
	}
}

// State reports the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset is a privileged administrative action that forces the breaker back
// to CLOSED regardless of its current state (spec §4.6's manual reset).
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = nil
	b.probeInFlight = false
}
