package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ShanTirmizi/incident-response-system/internal/api"
	"github.com/ShanTirmizi/incident-response-system/internal/daemon"
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/testsupport"
)

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(context.Context, string, string) (incident.AnalysisResult, error) {
	return incident.AnalysisResult{}, nil
}

func (noopAnalyzer) Refine(_ context.Context, original incident.AnalysisResult, _ string, _ incident.Section) (incident.AnalysisResult, error) {
	return original, nil
}

type idleCircuit struct{}

func (idleCircuit) Snapshot() executor.CircuitState { return executor.CircuitState{} }
func (idleCircuit) Models() []string               { return []string{"gpt-4o"} }

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	deps := daemon.Deps{Analyzer: noopAnalyzer{}, Circuit: idleCircuit{}}
	d, err := daemon.New(cfg, deps, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("expected running daemon with address, got %+v", status)
	}

	resp, err := http.Get("http://" + status.Address + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Fatalf("unexpected health %+v", health)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	second, err := daemon.New(cfg, deps, nil)
	if err != nil {
		t.Fatalf("daemon.New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to block a second instance")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}

	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected lock to be free after stop: %v", err)
	}
	second.Stop()
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Deps{}, nil); err == nil {
		t.Fatal("expected error without analyzer")
	}
	if _, err := daemon.New(nil, daemon.Deps{Analyzer: noopAnalyzer{}, Circuit: idleCircuit{}}, nil); err == nil {
		t.Fatal("expected error without config")
	}
}
