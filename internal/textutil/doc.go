// Package textutil neutralizes prompt-injection attempts in untrusted text.
//
// SanitizePromptInput runs over every transcript, context note, and feedback
// string before it reaches a model prompt. It is pure and total: matches are
// replaced with FilteredMarker, all other bytes pass through untouched.
package textutil
