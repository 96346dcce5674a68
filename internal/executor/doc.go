// Package executor runs a single logical chat completion with retries,
// exponential backoff with jitter, primary/fallback model escalation, a
// wall-clock budget, and an in-process circuit breaker.
//
// # Outcomes
//
// Every attempt is classified as success, retryable (timeout, 408, 429, 5xx),
// fatal (any other 4xx; the fallback is never tried) or unexpected (anything
// else, including empty or malformed responses; the current model is
// abandoned and the next one tried).
//
// # Budget
//
// The budget is checked before every attempt and bounds each attempt's
// context, so a call never outlives TotalTimeout. Backoff waits stop early on
// context cancellation.
//
// # Circuit breaker
//
// Exhausted calls and budget overruns count as failures. Once the count
// reaches FailureThreshold the breaker opens and calls fail with
// ErrCircuitOpen without touching the network until RecoveryInterval has
// elapsed. Client errors and caller cancellation are not counted.
package executor
