// Package audit persists one row per analyze or refine request in SQLite.
//
// Rows record who asked (request id), what ran (operation, section), how it
// ended (outcome class, error text, duration), and coarse result facts such as
// the incident type and recipient count. Transcript and feedback text are never
// stored; only their lengths are.
//
// The schema is embedded and versioned. A database created by an incompatible
// version is rejected with ErrSchemaMismatch rather than migrated.
package audit
