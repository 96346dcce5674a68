// Package analysis turns a care-incident transcript into an incident form, a
// policy assessment, and a draft notification email, and applies reviewer
// feedback to an existing result.
//
// Every model call goes through an executor so retries, fallback, and the
// circuit breaker apply uniformly. Untrusted text is sanitized and embedded
// as a JSON field of the user message; it is never spliced into instructions.
package analysis
