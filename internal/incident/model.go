package incident

import (
	"encoding/json"
	"maps"
	"strings"
)

// Section names the part of a result a refinement targets.
type Section string

const (
	SectionIncidentForm Section = "incident_form"
	SectionDraftEmail   Section = "draft_email"
	SectionAll          Section = "all"
)

// ParseSection validates a section name.
func ParseSection(value string) (Section, bool) {
	switch Section(strings.TrimSpace(value)) {
	case SectionIncidentForm:
		return SectionIncidentForm, true
	case SectionDraftEmail:
		return SectionDraftEmail, true
	case SectionAll:
		return SectionAll, true
	}
	return "", false
}

// Includes reports whether s selects target.
func (s Section) Includes(target Section) bool {
	return s == SectionAll || s == target
}

const defaultWitnesses = "None"

// IncidentForm is the generated incident report.
type IncidentForm struct {
	DateAndTime                    string `json:"date_and_time_of_incident" validate:"required,isodatetime"`
	ServiceUserName                string `json:"service_user_name" validate:"required,notblank"`
	LocationOfIncident             string `json:"location_of_incident" validate:"required,notblank"`
	TypeOfIncident                 string `json:"type_of_incident" validate:"required,notblank"`
	DescriptionOfIncident          string `json:"description_of_incident" validate:"required,min=10"`
	ImmediateActionsTaken          string `json:"immediate_actions_taken" validate:"required,notblank"`
	WasFirstAidAdministered        bool   `json:"was_first_aid_administered"`
	WereEmergencyServicesContacted bool   `json:"were_emergency_services_contacted"`
	WhoWasNotified                 string `json:"who_was_notified" validate:"required,notblank"`
	Witnesses                      string `json:"witnesses"`
	AgreedNextSteps                string `json:"agreed_next_steps" validate:"required,notblank"`
	RiskAssessmentNeeded           bool   `json:"risk_assessment_needed"`
	IfYesWhichRiskAssessment       string `json:"if_yes_which_risk_assessment"`
}

// UnmarshalJSON requires the three booleans to be present and defaults
// witnesses to "None" when absent.
func (f *IncidentForm) UnmarshalJSON(data []byte) error {
	type plain IncidentForm
	aux := struct {
		*plain
		FirstAid   *bool   `json:"was_first_aid_administered"`
		Emergency  *bool   `json:"were_emergency_services_contacted"`
		RiskNeeded *bool   `json:"risk_assessment_needed"`
		Witnesses  *string `json:"witnesses"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var missing []string
	for _, field := range []struct {
		name  string
		value *bool
		dst   *bool
	}{
		{"was_first_aid_administered", aux.FirstAid, &f.WasFirstAidAdministered},
		{"were_emergency_services_contacted", aux.Emergency, &f.WereEmergencyServicesContacted},
		{"risk_assessment_needed", aux.RiskNeeded, &f.RiskAssessmentNeeded},
	} {
		if field.value == nil {
			missing = append(missing, field.name+": field required")
			continue
		}
		*field.dst = *field.value
	}
	if aux.Witnesses != nil {
		f.Witnesses = *aux.Witnesses
	} else {
		f.Witnesses = defaultWitnesses
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// PolicyAnalysis holds the policy findings for a transcript.
type PolicyAnalysis struct {
	RelevantPolicies   StringList `json:"relevant_policies"`
	PolicyCompliance   StringList `json:"policy_compliance"`
	RecommendedActions StringList `json:"recommended_actions"`
	Concerns           StringList `json:"concerns"`
}

// Clone returns a deep copy.
func (p PolicyAnalysis) Clone() PolicyAnalysis {
	return PolicyAnalysis{
		RelevantPolicies:   p.RelevantPolicies.clone(),
		PolicyCompliance:   p.PolicyCompliance.clone(),
		RecommendedActions: p.RecommendedActions.clone(),
		Concerns:           p.Concerns.clone(),
	}
}

// DraftEmail is the notification email drafted from the incident.
type DraftEmail struct {
	To      Recipients `json:"to" validate:"min=1,dive,notblank"`
	CC      Recipients `json:"cc,omitempty" validate:"omitempty,dive,notblank"`
	Subject string     `json:"subject" validate:"min=5"`
	Body    string     `json:"body" validate:"min=20"`
}

// Clone returns a deep copy.
func (d DraftEmail) Clone() DraftEmail {
	d.To = d.To.clone()
	d.CC = d.CC.clone()
	return d
}

// AnalysisResult is the complete output of one analysis. It is treated as an
// immutable value once returned.
type AnalysisResult struct {
	IncidentForm   IncidentForm      `json:"incident_form"`
	PolicyAnalysis PolicyAnalysis    `json:"policy_analysis"`
	DraftEmail     DraftEmail        `json:"draft_email"`
	SourceQuotes   map[string]string `json:"source_quotes"`
}

// Clone returns a deep copy with a non-nil SourceQuotes map.
func (r AnalysisResult) Clone() AnalysisResult {
	quotes := make(map[string]string, len(r.SourceQuotes))
	maps.Copy(quotes, r.SourceQuotes)
	return AnalysisResult{
		IncidentForm:   r.IncidentForm,
		PolicyAnalysis: r.PolicyAnalysis.Clone(),
		DraftEmail:     r.DraftEmail.Clone(),
		SourceQuotes:   quotes,
	}
}
