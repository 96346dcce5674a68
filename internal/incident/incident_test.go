package incident

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

const validFormJSON = `{
	"date_and_time_of_incident": "2025-01-31T14:30:00Z",
	"service_user_name": "Greg",
	"location_of_incident": "Living room",
	"type_of_incident": "Fall",
	"description_of_incident": "Greg fell while walking to the kitchen.",
	"immediate_actions_taken": "Carer helped Greg up and checked for injuries.",
	"was_first_aid_administered": false,
	"were_emergency_services_contacted": false,
	"who_was_notified": "Supervisor",
	"agreed_next_steps": "Monitor mobility",
	"risk_assessment_needed": true,
	"if_yes_which_risk_assessment": "Falls risk assessment"
}`

func sampleResult(t *testing.T) AnalysisResult {
	t.Helper()
	var form IncidentForm
	if err := json.Unmarshal([]byte(validFormJSON), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	return AnalysisResult{
		IncidentForm: form,
		PolicyAnalysis: PolicyAnalysis{
			RelevantPolicies:   StringList{"Falls policy"},
			PolicyCompliance:   StringList{"Compliant"},
			RecommendedActions: StringList{"Email supervisor"},
			Concerns:           StringList{},
		},
		DraftEmail: DraftEmail{
			To:      Recipients{"supervisor@care.example"},
			CC:      Recipients{"risk@care.example"},
			Subject: "Fall incident - Greg",
			Body:    "Greg had a fall this morning and has been checked over.",
		},
		SourceQuotes: map[string]string{"fall": "I've fallen"},
	}
}

func TestDraftEmailRecipientCoercion(t *testing.T) {
	var email DraftEmail
	if err := json.Unmarshal([]byte(`{"to":"  a@x.com ","subject":"Hello","body":"a body that is long enough"}`), &email); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual([]string(email.To), []string{"a@x.com"}) {
		t.Fatalf("expected coerced single recipient, got %v", email.To)
	}
	if err := email.Validate(); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
}

func TestDraftEmailRejectsBlankRecipients(t *testing.T) {
	for _, payload := range []string{
		`{"to":["a@x.com", ""],"subject":"Hello","body":"a body that is long enough"}`,
		`{"to":"   ","subject":"Hello","body":"a body that is long enough"}`,
		`{"to":["a@x.com"],"cc":[" "],"subject":"Hello","body":"a body that is long enough"}`,
		`{"to":[1],"subject":"Hello","body":"a body that is long enough"}`,
		`{"to":{"a":"b"},"subject":"Hello","body":"a body that is long enough"}`,
	} {
		var email DraftEmail
		err := json.Unmarshal([]byte(payload), &email)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("payload %s: expected validation error, got %v", payload, err)
		}
	}
}

func TestDraftEmailConstraints(t *testing.T) {
	email := DraftEmail{To: Recipients{}, Subject: "Hi", Body: "short"}
	err := email.Validate()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	joined := strings.Join(vErr.Fields, "|")
	for _, want := range []string{"to: must contain at least 1 item(s)", "subject: must be at least 5 characters", "body: must be at least 20 characters"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %v", want, vErr.Fields)
		}
	}
}

func TestIncidentFormDateTimeRequiresTime(t *testing.T) {
	form := sampleResult(t).IncidentForm

	form.DateAndTime = "2025-01-31"
	err := form.Validate()
	if err == nil || !strings.Contains(err.Error(), "date_and_time_of_incident: "+ISODateTimeHint) {
		t.Fatalf("expected date-time validation error, got %v", err)
	}

	for _, ok := range []string{"2025-01-31T14:30:00Z", "2025-01-31T14:30:00", "2025-01-31T14:30", "2025-01-31T14:30:00+01:00", "2025-01-31T14:30:00.123456"} {
		form.DateAndTime = ok
		if err := form.Validate(); err != nil {
			t.Fatalf("%q should be valid, got %v", ok, err)
		}
	}
	for _, bad := range []string{"31/01/2025 14:30", "2025-01-31 14:30:00", "Tuesday", "2025-13-01T10:00:00"} {
		form.DateAndTime = bad
		if err := form.Validate(); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}

func TestIncidentFormRequiresBooleans(t *testing.T) {
	payload := strings.Replace(validFormJSON, `"risk_assessment_needed": true,`, "", 1)
	var form IncidentForm
	err := json.Unmarshal([]byte(payload), &form)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0] != "risk_assessment_needed: field required" {
		t.Fatalf("unexpected fields %v", vErr.Fields)
	}
}

func TestIncidentFormDefaultsWitnesses(t *testing.T) {
	var form IncidentForm
	if err := json.Unmarshal([]byte(validFormJSON), &form); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if form.Witnesses != "None" {
		t.Fatalf("expected witnesses default None, got %q", form.Witnesses)
	}
	if !form.RiskAssessmentNeeded || form.WasFirstAidAdministered {
		t.Fatalf("booleans not decoded: %+v", form)
	}

	withWitness := strings.Replace(validFormJSON, `"who_was_notified"`, `"witnesses": "Julie", "who_was_notified"`, 1)
	if err := json.Unmarshal([]byte(withWitness), &form); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if form.Witnesses != "Julie" {
		t.Fatalf("expected explicit witness, got %q", form.Witnesses)
	}
}

func TestIncidentFormFieldConstraints(t *testing.T) {
	form := sampleResult(t).IncidentForm
	form.ServiceUserName = "   "
	form.DescriptionOfIncident = "too short"
	err := form.Validate()
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation marker")
	}
}

func TestPolicyAnalysisListNormalization(t *testing.T) {
	var analysis PolicyAnalysis
	payload := `{"relevant_policies":["  Falls policy ", "", "   "],"policy_compliance":null,"concerns":["x"]}`
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual([]string(analysis.RelevantPolicies), []string{"Falls policy"}) {
		t.Fatalf("unexpected relevant policies %v", analysis.RelevantPolicies)
	}
	if analysis.PolicyCompliance == nil || len(analysis.PolicyCompliance) != 0 {
		t.Fatalf("null should become an empty list, got %#v", analysis.PolicyCompliance)
	}

	encoded, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(encoded), `"recommended_actions":[]`) {
		t.Fatalf("absent list should encode as [], got %s", encoded)
	}

	if err := json.Unmarshal([]byte(`{"concerns":["ok", 3]}`), &analysis); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("non-string items must be rejected, got %v", err)
	}
}

func TestResultBuilderLeavesOriginalUntouched(t *testing.T) {
	original := sampleResult(t)
	before, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	form := original.IncidentForm
	form.AgreedNextSteps = "Book GP review"
	email := original.DraftEmail.Clone()
	email.To = append(email.To, "family@care.example")

	refined := NewResultBuilder(original).WithIncidentForm(form).WithDraftEmail(email).Build()
	refined.SourceQuotes["new"] = "quote"
	refined.PolicyAnalysis.RelevantPolicies[0] = "changed"

	after, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("original mutated:\nbefore %s\nafter  %s", before, after)
	}
	if refined.IncidentForm.AgreedNextSteps != "Book GP review" || len(refined.DraftEmail.To) != 2 {
		t.Fatalf("overrides not applied: %+v", refined)
	}
}

func TestResultBuilderBuildReturnsIndependentCopies(t *testing.T) {
	builder := NewResultBuilder(sampleResult(t))
	first := builder.Build()
	first.DraftEmail.To[0] = "changed@care.example"
	second := builder.Build()
	if second.DraftEmail.To[0] != "supervisor@care.example" {
		t.Fatalf("builds share state: %v", second.DraftEmail.To)
	}
}

func TestResultBuilderCopiesPolicyAndQuotes(t *testing.T) {
	policy := PolicyAnalysis{Concerns: StringList{"Time on floor"}}
	quotes := map[string]string{"recurrence": "second fall this week"}

	refined := NewResultBuilder(sampleResult(t)).WithPolicyAnalysis(policy).WithSourceQuotes(quotes).Build()
	policy.Concerns[0] = "changed"
	quotes["recurrence"] = "changed"

	if refined.PolicyAnalysis.Concerns[0] != "Time on floor" || refined.SourceQuotes["recurrence"] != "second fall this week" {
		t.Fatalf("builder kept caller references: %+v", refined)
	}
	if empty := NewResultBuilder(sampleResult(t)).WithSourceQuotes(nil).Build(); empty.SourceQuotes == nil || len(empty.SourceQuotes) != 0 {
		t.Fatalf("expected empty quotes map, got %v", empty.SourceQuotes)
	}
}

func TestAnalysisResultValidateReportsNestedPaths(t *testing.T) {
	result := sampleResult(t)
	result.IncidentForm.DateAndTime = "2025-01-31"
	result.DraftEmail.To = Recipients{"ok@x.com", " "}
	var vErr *ValidationError
	if !errors.As(result.Validate(), &vErr) {
		t.Fatal("expected validation error")
	}
	joined := strings.Join(vErr.Fields, "|")
	if !strings.Contains(joined, "incident_form.date_and_time_of_incident") || !strings.Contains(joined, "draft_email.to[1]") {
		t.Fatalf("unexpected field paths %v", vErr.Fields)
	}
}

func TestParseSection(t *testing.T) {
	for _, value := range []string{"incident_form", "draft_email", "all"} {
		if _, ok := ParseSection(value); !ok {
			t.Fatalf("%q should parse", value)
		}
	}
	if _, ok := ParseSection("policy_analysis"); ok {
		t.Fatal("unknown section should not parse")
	}
	if !SectionAll.Includes(SectionDraftEmail) || SectionIncidentForm.Includes(SectionDraftEmail) {
		t.Fatal("unexpected Includes semantics")
	}
}
