package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/testsupport"
)

func TestAnalyzeCommandRendersResult(t *testing.T) {
	env := setupCLITestEnv(t)
	transcriptPath := filepath.Join(env.baseDir, "call.txt")
	testsupport.WriteFile(t, transcriptPath, testsupport.FallTranscript)

	out, _, err := runCLI(t, []string{"analyze", "--file", transcriptPath}, env.configPath, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "== Incident Form ==")
	requireContains(t, out, "Date And Time Of Incident")
	requireContains(t, out, "Edith Brown")
	requireContains(t, out, "  - 1.4 Recurring falls")
	requireContains(t, out, "Subject: Fall - Edith Brown")
	requireContains(t, out, "This is her second fall this week.")
	if got := env.calls.Load(); got != 3 {
		t.Fatalf("expected 3 model calls, got %d", got)
	}
}

func TestAnalyzeThenRefineViaSavedResult(t *testing.T) {
	env := setupCLITestEnv(t)
	resultPath := filepath.Join(env.baseDir, "result.json")

	out, _, err := runCLI(t, []string{"analyze", "--file", "-", "--json", "--output", resultPath},
		env.configPath, strings.NewReader(testsupport.FallTranscript))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var printed incident.AnalysisResult
	if err := json.Unmarshal([]byte(out), &printed); err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if printed.IncidentForm.ServiceUserName != "Edith Brown" {
		t.Fatalf("unexpected result %+v", printed.IncidentForm)
	}
	if _, err := os.Stat(resultPath); err != nil {
		t.Fatalf("expected saved result: %v", err)
	}

	out, _, err = runCLI(t, []string{
		"refine", "--input", resultPath, "--feedback", "Copy in the family", "--section", "draft_email", "--json",
	}, env.configPath, nil)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	var refined incident.AnalysisResult
	if err := json.Unmarshal([]byte(out), &refined); err != nil {
		t.Fatalf("decode refine output: %v", err)
	}
	if refined.DraftEmail.Subject != "Urgent: Fall - Edith Brown" || len(refined.DraftEmail.CC) != 2 {
		t.Fatalf("expected revised email, got %+v", refined.DraftEmail)
	}
	if refined.IncidentForm != printed.IncidentForm {
		t.Fatal("incident form should be unchanged when refining the email")
	}
	if got := env.calls.Load(); got != 4 {
		t.Fatalf("expected 4 model calls, got %d", got)
	}
}

func TestAnalyzeRejectsInvalidInputWithoutModelCalls(t *testing.T) {
	env := setupCLITestEnv(t)
	short := filepath.Join(env.baseDir, "short.txt")
	testsupport.WriteFile(t, short, "Carer: she fell.")

	_, _, err := runCLI(t, []string{"analyze", "--file", short}, env.configPath, nil)
	if err == nil || !strings.Contains(err.Error(), "transcript") {
		t.Fatalf("expected transcript validation error, got %v", err)
	}

	resultPath := filepath.Join(env.baseDir, "result.json")
	testsupport.WriteFile(t, resultPath, `{}`)
	_, _, err = runCLI(t, []string{"refine", "--input", resultPath, "--feedback", "fix", "--section", "summary"},
		env.configPath, nil)
	if err == nil {
		t.Fatal("expected refine validation error")
	}
	if got := env.calls.Load(); got != 0 {
		t.Fatalf("expected no model calls, got %d", got)
	}
}

func TestPoliciesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"policies"}, "", nil)
	if err != nil {
		t.Fatalf("policies: %v", err)
	}
	requireContains(t, out, "Falls")

	out, _, err = runCLI(t, []string{"policies", "--template", "--json"}, "", nil)
	if err != nil {
		t.Fatalf("policies --template: %v", err)
	}
	var payload struct {
		Template map[string]string `json:"template"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if _, ok := payload.Template["witnesses"]; !ok || len(payload.Template) != 13 {
		t.Fatalf("unexpected template %v", payload.Template)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "gpt-4o -> gpt-3.5-turbo")

	target := filepath.Join(t.TempDir(), "incident.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestAuditListAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenAudit(t, env.cfg)
	testsupport.RecordEntry(t, store, audit.Entry{
		RequestID:    "req-old",
		Operation:    audit.OperationAnalyze,
		Outcome:      audit.OutcomeSuccess,
		IncidentType: "Fall",
		CreatedAt:    time.Now().Add(-72 * time.Hour),
	})
	testsupport.RecordEntry(t, store, audit.Entry{
		RequestID: "req-new",
		Operation: audit.OperationRefine,
		Section:   "draft_email",
		Outcome:   "service_unavailable",
		Error:     "models exhausted",
	})

	out, _, err := runCLI(t, []string{"audit", "list"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	requireContains(t, out, "req-old")
	requireContains(t, out, "req-new")
	requireContains(t, out, "Totals: success=1 service_unavailable=1")

	out, _, err = runCLI(t, []string{"audit", "list", "--operation", "refine", "--json"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("audit list --json: %v", err)
	}
	var entries []audit.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].RequestID != "req-new" {
		t.Fatalf("unexpected filtered entries %+v", entries)
	}

	out, _, err = runCLI(t, []string{"audit", "prune", "--older-than", "24h"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("audit prune: %v", err)
	}
	requireContains(t, out, "Removed 1 audit entries")
}

func TestAuditDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutAudit())
	_, _, err := runCLI(t, []string{"audit", "list"}, env.configPath, nil)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestTestNotify(t *testing.T) {
	titles := make(chan string, 1)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
	}))
	defer ntfy.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(ntfy.URL))
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if title := <-titles; title != "Incident Response - Test" {
		t.Fatalf("unexpected title %q", title)
	}

	env = setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"test-notify"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	requireContains(t, out, "Notification not sent")
}
