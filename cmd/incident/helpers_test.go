package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	calls      *atomic.Int32
}

var envOverrides = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_FALLBACK_MODEL",
	"OPENAI_MAX_RETRIES", "OPENAI_TIMEOUT", "ALLOWED_ORIGINS", "NTFY_TOPIC", "INCIDENT_API_TOKEN",
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, key := range envOverrides {
		t.Setenv(key, "")
	}
	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body struct {
			Messages []struct{ Role, Content string } `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		reply, ok := replyFor(body.Messages[0].Content)
		if !ok {
			http.Error(w, "unknown prompt", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(provider.Close)

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithLLMEndpoint(provider.URL)}, opts...)...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "incident.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, calls: &calls}
}

func replyFor(systemPrompt string) (string, bool) {
	switch {
	case strings.HasPrefix(systemPrompt, "You analyse"):
		return `{"extracted_facts":{"service_user_name":"Edith Brown","incident_type":"Fall","recurrence":"Second fall this week"},
			"source_quotes":{"recurrence":"This is her second fall this week."},
			"relevant_policies":["1.4 Recurring falls"],"policy_compliance":["Carer stayed with Edith"],
			"concerns":["Time on floor"],"recommended_actions":["Email supervisor"]}`, true
	case strings.HasPrefix(systemPrompt, "You complete"), strings.HasPrefix(systemPrompt, "You revise incident report"):
		return `{"date_and_time_of_incident":"2025-01-31T09:00:00","service_user_name":"Edith Brown",
			"location_of_incident":"Bedroom","type_of_incident":"Fall",
			"description_of_incident":"Found on the bedroom floor after a fall.","immediate_actions_taken":"Checked for injuries",
			"was_first_aid_administered":false,"were_emergency_services_contacted":false,"who_was_notified":"Supervisor",
			"witnesses":"None","agreed_next_steps":"Falls risk assessment","risk_assessment_needed":true,
			"if_yes_which_risk_assessment":"Falls risk assessment"}`, true
	case strings.HasPrefix(systemPrompt, "You draft"):
		return `{"to":["Supervisor"],"cc":["Risk Assessor"],"subject":"Fall - Edith Brown",
			"body":"Edith Brown was found on her bedroom floor this morning."}`, true
	case strings.HasPrefix(systemPrompt, "You revise incident notification"):
		return `{"to":["Supervisor"],"cc":["Risk Assessor","Family contact"],"subject":"Urgent: Fall - Edith Brown",
			"body":"Edith Brown was found on her bedroom floor this morning. Family informed."}`, true
	}
	return "", false
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[api]
bind = %q

[llm]
api_key = %q
base_url = %q
max_retries = 1

[notifications]
ntfy_topic = %q

[audit]
enabled = %t
path = %q

[logging]
level = "error"
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.API.Bind,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.Notifications.NtfyTopic,
		cfg.Audit.Enabled,
		cfg.Audit.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
