// Package services defines shared utilities consumed by the analysis pipeline,
// the LLM executor, and the HTTP layer.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers and the
//     active operation for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the boundary classes (validation vs service unavailable).
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the service.
package services
