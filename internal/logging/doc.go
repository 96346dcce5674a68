// Package logging assembles structured slog loggers and formatting helpers used
// across the incident service.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers and the
// analysis pipeline tag log lines with correlation IDs and operation names.
// Transcript text must never be passed to these loggers; record lengths
// instead.
package logging
