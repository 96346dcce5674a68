package executor

import (
	"errors"
	"fmt"

	"github.com/ShanTirmizi/incident-response-system/internal/services/llm"
)

// outcome is the retry loop's decision for one attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	// outcomeRetryable: timeout, 408, 429, 5xx. Back off and try the same model.
	outcomeRetryable
	// outcomeFatal: any other 4xx. Fail the whole call, fallback included.
	outcomeFatal
	// outcomeUnexpected: anything unclassified. Abandon this model, try the next.
	outcomeUnexpected
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRetryable:
		return "retryable"
	case outcomeFatal:
		return "fatal"
	case outcomeUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// classify maps an attempt error to an outcome. The returned error is err
// tagged with the executor sentinel that callers match on.
func classify(err error) (outcome, error) {
	if err == nil {
		return outcomeSuccess, nil
	}
	if llm.IsTimeout(err) {
		return outcomeRetryable, err
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Retryable():
			return outcomeRetryable, err
		case statusErr.ClientError():
			return outcomeFatal, fmt.Errorf("%w: %w", ErrClientRequest, err)
		default:
			return outcomeUnexpected, err
		}
	}

	var emptyErr *llm.EmptyContentError
	if errors.As(err, &emptyErr) {
		return outcomeUnexpected, fmt.Errorf("%w: %w", ErrEmptyResponse, err)
	}
	if errors.Is(err, llm.ErrMalformedResponse) {
		return outcomeUnexpected, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return outcomeUnexpected, err
}
