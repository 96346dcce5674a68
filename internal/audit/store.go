package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

// Outcome classes stored per request.
const (
	OutcomeSuccess = "success"
)

// timestampLayout is fixed width so created_at compares correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Operation names.
const (
	OperationAnalyze = "analyze"
	OperationRefine  = "refine"
)

// Entry is one audited request.
type Entry struct {
	ID           int64         `json:"id"`
	RequestID    string        `json:"request_id"`
	Operation    string        `json:"operation"`
	Section      string        `json:"section,omitempty"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
	InputChars   int           `json:"input_chars"`
	IncidentType string        `json:"incident_type,omitempty"`
	Recipients   int           `json:"recipients"`
	CircuitOpen  bool          `json:"circuit_open"`
	CreatedAt    time.Time     `json:"created_at"`
}

// OutcomeFor maps a request error to its stored outcome class.
func OutcomeFor(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return string(services.FailureKind(err))
}

// Filter narrows List results.
type Filter struct {
	Limit     int
	Operation string
	Outcome   string
}

// Store manages the request outcome log backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the audit database.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("audit: configuration required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := strings.TrimSpace(cfg.Audit.Path)
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Paths.StateDir, "audit.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns its id. A zero CreatedAt is stamped with
// the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if strings.TrimSpace(entry.Operation) == "" {
		return 0, errors.New("audit: operation required")
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO request_outcomes (
            request_id, operation, section, outcome, error_message, duration_ms,
            input_chars, incident_type, recipients, circuit_open, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Operation,
		nullableString(entry.Section),
		entry.Outcome,
		nullableString(entry.Error),
		entry.Duration.Milliseconds(),
		entry.InputChars,
		nullableString(entry.IncidentType),
		entry.Recipients,
		boolToInt(entry.CircuitOpen),
		entry.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		clauses []string
		args    []any
	)
	if op := strings.TrimSpace(filter.Operation); op != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, op)
	}
	if outcome := strings.TrimSpace(filter.Outcome); outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, outcome)
	}
	query := `SELECT id, request_id, operation, section, outcome, error_message, duration_ms,
            input_chars, incident_type, recipients, circuit_open, created_at
        FROM request_outcomes`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// Counts returns the number of entries per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if s == nil || s.db == nil {
		return counts, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM request_outcomes GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan audit count: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit counts: %w", err)
	}
	return counts, nil
}

// Prune deletes entries created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM request_outcomes WHERE created_at < ?",
		cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry                       Entry
		section, errMsg, incidentTy sql.NullString
		durationMS                  int64
		circuitOpen                 int
		created                     string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.Operation,
		&section,
		&entry.Outcome,
		&errMsg,
		&durationMS,
		&entry.InputChars,
		&incidentTy,
		&entry.Recipients,
		&circuitOpen,
		&created,
	); err != nil {
		return Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	entry.Section = section.String
	entry.Error = errMsg.String
	entry.IncidentType = incidentTy.String
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	entry.CircuitOpen = circuitOpen != 0
	if ts, err := time.Parse(timestampLayout, created); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
