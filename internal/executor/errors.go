package executor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen fails a call without any network attempt.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrModelsExhausted reports that every model and attempt failed.
	ErrModelsExhausted = errors.New("all models exhausted")
	// ErrTotalTimeout reports that the wall-clock budget ran out.
	ErrTotalTimeout = errors.New("total timeout exceeded")
	// ErrClientRequest reports a non-retryable 4xx from the provider.
	ErrClientRequest = errors.New("non-retryable client error")
	// ErrEmptyResponse reports a completion without content.
	ErrEmptyResponse = errors.New("empty response content")
	// ErrMalformedResponse reports a response that is not a completion.
	ErrMalformedResponse = errors.New("malformed response payload")
)

// CircuitOpenError carries when the breaker opened and how long until it
// admits calls again.
type CircuitOpenError struct {
	OpenedAt     time.Time
	FailureCount int
	RetryAfter   time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open since %s after %d failures (retry after %s)",
		e.OpenedAt.UTC().Format(time.RFC3339), e.FailureCount, e.RetryAfter.Round(time.Second))
}

// Is lets errors.Is(err, ErrCircuitOpen) match.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}
