package executor

import (
	"sync"
	"time"
)

// CircuitState is the breaker's shared mutable state.
type CircuitState struct {
	FailureCount int       `json:"failure_count"`
	Open         bool      `json:"is_open"`
	OpenedAt     time.Time `json:"opened_at,omitzero"`
}

// StateChange is delivered to listeners when the circuit opens or recovers.
type StateChange struct {
	Open         bool
	FailureCount int
	At           time.Time
}

// Breaker counts exhausted calls and opens once the count reaches the
// threshold. An open breaker resets fully on the first call after the
// recovery interval. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     CircuitState
	threshold int
	recovery  time.Duration
	now       func() time.Time
	listener  func(StateChange)
}

// NewBreaker constructs a closed breaker.
func NewBreaker(threshold int, recovery time.Duration, now func() time.Time) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{threshold: threshold, recovery: recovery, now: now}
}

// Allow returns a *CircuitOpenError while the breaker is open and the recovery
// interval has not elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	if !b.state.Open {
		b.mu.Unlock()
		return nil
	}
	now := b.now()
	elapsed := now.Sub(b.state.OpenedAt)
	if elapsed < b.recovery {
		err := &CircuitOpenError{
			OpenedAt:     b.state.OpenedAt,
			FailureCount: b.state.FailureCount,
			RetryAfter:   b.recovery - elapsed,
		}
		b.mu.Unlock()
		return err
	}
	b.state = CircuitState{}
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		listener(StateChange{Open: false, At: now})
	}
	return nil
}

// RecordSuccess resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Open {
		b.state.FailureCount = 0
	}
}

// RecordFailure increments the failure count and reports whether this call
// opened the circuit.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	b.state.FailureCount++
	if b.state.Open || b.state.FailureCount < b.threshold {
		b.mu.Unlock()
		return false
	}
	b.state.Open = true
	b.state.OpenedAt = b.now()
	change := StateChange{Open: true, FailureCount: b.state.FailureCount, At: b.state.OpenedAt}
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		listener(change)
	}
	return true
}

// Snapshot returns a copy of the current state.
func (b *Breaker) Snapshot() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setListener(fn func(StateChange)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = fn
}
