package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
	"github.com/ShanTirmizi/incident-response-system/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenAudit(t, cfg)
	if store.Path() != cfg.Audit.Path {
		t.Fatalf("expected path %q, got %q", cfg.Audit.Path, store.Path())
	}
	store.Close()

	reopened, err := audit.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.Close()
}

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenAudit(t, cfg)
	ctx := context.Background()

	base := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	testsupport.RecordEntry(t, store, audit.Entry{
		RequestID:    "req-1",
		Operation:    audit.OperationAnalyze,
		Duration:     1500 * time.Millisecond,
		InputChars:   420,
		IncidentType: "Fall",
		Recipients:   3,
		CreatedAt:    base,
	})
	testsupport.RecordEntry(t, store, audit.Entry{
		RequestID:   "req-2",
		Operation:   audit.OperationRefine,
		Section:     "draft_email",
		Outcome:     string(services.KindUnavailable),
		Error:       "all models exhausted",
		CircuitOpen: true,
		CreatedAt:   base.Add(time.Minute),
	})

	entries, err := store.List(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	latest := entries[0]
	if latest.RequestID != "req-2" || latest.Section != "draft_email" || !latest.CircuitOpen {
		t.Fatalf("unexpected latest entry: %+v", latest)
	}
	first := entries[1]
	if first.Outcome != audit.OutcomeSuccess {
		t.Fatalf("expected default success outcome, got %q", first.Outcome)
	}
	if first.Duration != 1500*time.Millisecond || first.Recipients != 3 || first.IncidentType != "Fall" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if !first.CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %s, got %s", base, first.CreatedAt)
	}

	failed, err := store.List(ctx, audit.Filter{Outcome: string(services.KindUnavailable)})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(failed) != 1 || failed[0].RequestID != "req-2" {
		t.Fatalf("unexpected filtered entries: %+v", failed)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[audit.OutcomeSuccess] != 1 || counts[string(services.KindUnavailable)] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	removed, err := store.Prune(ctx, base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
}

func TestRecordRequiresOperation(t *testing.T) {
	store := testsupport.MustOpenAudit(t, testsupport.NewConfig(t))
	if _, err := store.Record(context.Background(), audit.Entry{RequestID: "x"}); err == nil {
		t.Fatal("expected error without operation")
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, audit.OutcomeSuccess},
		{&incident.ValidationError{Fields: []string{"feedback: field required"}}, "validation"},
		{services.Wrap(services.ErrServiceUnavailable, "executor", "execute", "", executor.ErrCircuitOpen), "service_unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := audit.OutcomeFor(tt.err); got != tt.want {
			t.Fatalf("OutcomeFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var store *audit.Store
	if _, err := store.Record(context.Background(), audit.Entry{Operation: audit.OperationAnalyze}); err != nil {
		t.Fatalf("nil store Record: %v", err)
	}
	if entries, err := store.List(context.Background(), audit.Filter{}); err != nil || entries != nil {
		t.Fatalf("nil store List: %v %v", entries, err)
	}
}
