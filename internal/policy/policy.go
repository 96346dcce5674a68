package policy

import (
	"bytes"
	_ "embed"
	"encoding/json"
)

// Document is the policy text supplied whole to analysis prompts.
//
//go:embed document.md
var Document string

// TemplateField is one entry of the incident form template.
type TemplateField struct {
	Name        string
	Description string
}

// Template is the ordered incident form field template. It encodes as a JSON
// object whose keys keep the form order.
type Template []TemplateField

// MarshalJSON writes the fields as an ordered object.
func (t Template) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormTemplate describes every IncidentForm field in form order.
var FormTemplate = Template{
	{"date_and_time_of_incident", "When the incident happened, ISO 8601 with a time component"},
	{"service_user_name", "Full name of the service user involved"},
	{"location_of_incident", "Where the incident happened"},
	{"type_of_incident", "Category, e.g. Fall, Medication error, Safeguarding concern"},
	{"description_of_incident", "Factual account of what happened"},
	{"immediate_actions_taken", "What staff did straight away"},
	{"was_first_aid_administered", "Yes/No"},
	{"were_emergency_services_contacted", "Yes/No, including 999, 111 or GP"},
	{"who_was_notified", "People informed, e.g. supervisor, family, GP"},
	{"witnesses", "Names and roles of witnesses, or None"},
	{"agreed_next_steps", "Follow-up actions with owner and timescale"},
	{"risk_assessment_needed", "Yes/No"},
	{"if_yes_which_risk_assessment", "Which risk assessment, e.g. Falls risk assessment"},
}

// RoutingRules are the notification rules the email stage must apply.
var RoutingRules = []string{
	"Falls require emailing supervisor immediately",
	"Recurring falls (2+ per week) require cc'ing Risk Assessor",
	"Confused/disoriented service users require alerting family",
}
