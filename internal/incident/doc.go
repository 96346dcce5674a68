// Package incident defines the incident report domain: the generated
// IncidentForm, the PolicyAnalysis lists, the DraftEmail, and the
// AnalysisResult that bundles them.
//
// Decoding normalizes model and client input (recipient coercion, list
// trimming, required booleans) and Validate enforces field constraints with
// go-playground/validator. Results are values: refinement goes through
// ResultBuilder, which deep-copies before applying overrides.
package incident
