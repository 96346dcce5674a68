// Package daemon runs the incident analysis HTTP API as a single long-lived
// process.
//
// The daemon takes a flock on state_dir/incident.lock so only one instance
// serves at a time; the circuit breaker is process memory and a second
// instance would track failures independently. Requests pass through request
// id, CORS, bearer auth, and per-IP rate limit middleware before reaching the
// handlers, which decode and validate bodies, call the analysis pipeline, map
// errors to 422/503/500, and record each outcome in the audit log.
//
// Keep orchestration here: analysis semantics live in internal/analysis and
// retry behaviour in internal/executor.
package daemon
