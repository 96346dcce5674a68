// Package notifications sends operator alerts via ntfy.
//
// The ntfy implementation publishes to the topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Events cover
// circuit breaker transitions and failed requests; the notifications.circuit
// and notifications.errors switches suppress each family.
//
// Payloads carry identifiers and error text only. Callers must not include
// transcript or feedback content.
package notifications
