package api

import (
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/policy"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// TranscriptRequest is the body of POST /v1/analyze.
type TranscriptRequest struct {
	Transcript        string `json:"transcript" validate:"required,min=50,max=50000,notblank"`
	AdditionalContext string `json:"additional_context,omitempty" validate:"max=5000"`
}

// FeedbackRequest is the body of POST /v1/refine.
type FeedbackRequest struct {
	OriginalResponse incident.AnalysisResult `json:"original_response"`
	Feedback         string                  `json:"feedback" validate:"required,min=5,max=2000,notblank"`
	SectionToEdit    incident.Section        `json:"section_to_edit" validate:"required,oneof=incident_form draft_email all"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PoliciesResponse is returned by GET /v1/policies.
type PoliciesResponse struct {
	Policies string `json:"policies"`
}

// FormTemplateResponse is returned by GET /v1/form-template.
type FormTemplateResponse struct {
	Template policy.Template `json:"template"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	Version string                `json:"version"`
	Models  []string              `json:"models"`
	Circuit executor.CircuitState `json:"circuit"`
	Audit   bool                  `json:"audit"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}
