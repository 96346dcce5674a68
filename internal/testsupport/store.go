package testsupport

import (
	"context"
	"testing"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
)

// MustOpenAudit opens an audit.Store for tests and registers cleanup.
func MustOpenAudit(t testing.TB, cfg *config.Config) *audit.Store {
	t.Helper()

	store, err := audit.Open(cfg)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordEntry inserts an audit entry for tests.
func RecordEntry(t testing.TB, store *audit.Store, entry audit.Entry) int64 {
	t.Helper()

	id, err := store.Record(context.Background(), entry)
	if err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return id
}
