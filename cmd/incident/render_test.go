package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ShanTirmizi/incident-response-system/internal/incident"
)

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"date_and_time_of_incident":    "Date And Time Of Incident",
		"witnesses":                    "Witnesses",
		"if_yes_which_risk_assessment": "If Yes Which Risk Assessment",
	}
	for key, want := range tests {
		if got := fieldLabel(key); got != want {
			t.Fatalf("fieldLabel(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRenderResultFormatsBooleansAndEmptyLists(t *testing.T) {
	var buf bytes.Buffer
	result := incident.AnalysisResult{
		IncidentForm: incident.IncidentForm{
			ServiceUserName:         "Edith Brown",
			WasFirstAidAdministered: true,
		},
		DraftEmail: incident.DraftEmail{To: incident.Recipients{"Supervisor"}},
	}
	if err := renderResult(&buf, result); err != nil {
		t.Fatalf("renderResult: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Fatal("expected no colour codes for a non-terminal writer")
	}
	for _, want := range []string{"Was First Aid Administered", "yes", "Concerns:\n  (none)", "To:      Supervisor"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Source Quotes") {
		t.Fatal("source quotes section should be omitted when empty")
	}
}
