package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/testsupport"
)

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{}) }()

	pidPath := filepath.Join(cfg.Paths.StateDir, "incident.pid")
	waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	})
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, "incident.log")); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestPruneAuditRemovesExpiredEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenAudit(t, cfg)
	testsupport.RecordEntry(t, store, audit.Entry{
		RequestID: "expired",
		Operation: audit.OperationAnalyze,
		CreatedAt: time.Now().AddDate(0, 0, -120),
	})
	testsupport.RecordEntry(t, store, audit.Entry{RequestID: "recent", Operation: audit.OperationAnalyze})

	pruneAudit(context.Background(), logging.NewNop(), store, 90)

	entries, err := store.List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].RequestID != "recent" {
		t.Fatalf("unexpected entries after prune: %+v", entries)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}
