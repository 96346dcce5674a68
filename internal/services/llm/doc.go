// Package llm provides an OpenAI-compatible chat completion client.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one role-tagged message sequence to a named model and
// return the response content.
// DecodeLLMJSON: decode a model payload, tolerating code fences and prose
// around the JSON object.
//
// # Errors
//
// Non-2xx responses surface as *StatusError (ClientError / Retryable helpers).
// A 2xx body that is not a completion wraps ErrMalformedResponse. A completion
// without content is an *EmptyContentError. IsTimeout recognises deadline and
// network timeouts.
//
// The client never retries. Retry, fallback and circuit breaking live in the
// executor package.
package llm
