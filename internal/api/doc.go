// Package api defines the wire-format request and response types of the HTTP
// layer and decodes request bodies into validated values.
//
// Decoding never reaches the model: a body that fails JSON decoding or struct
// validation is returned as an *incident.ValidationError so the HTTP layer can
// answer 422 without spending a model call. Free-text fields are trimmed only
// after validation passes.
package api
