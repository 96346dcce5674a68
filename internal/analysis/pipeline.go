package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/policy"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
	"github.com/ShanTirmizi/incident-response-system/internal/services/llm"
	"github.com/ShanTirmizi/incident-response-system/internal/textutil"
)

const componentName = "analysis"

// ErrParse reports a stage output that could not be decoded or failed its
// schema. It is always returned tagged services.ErrServiceUnavailable.
var ErrParse = errors.New("failed to parse model response")

// Executor runs one logical completion call.
type Executor interface {
	Execute(ctx context.Context, req executor.Request) (string, error)
}

// Pipeline orchestrates the analysis and refinement calls.
type Pipeline struct {
	exec   Executor
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time used when a form omits its date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a pipeline on top of exec.
func New(exec Executor, opts ...Option) (*Pipeline, error) {
	if exec == nil {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "new", "executor required", nil)
	}
	p := &Pipeline{
		exec:   exec,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, componentName)
	return p, nil
}

type extraction struct {
	ExtractedFacts map[string]any    `json:"extracted_facts"`
	SourceQuotes   map[string]string `json:"source_quotes"`
	incident.PolicyAnalysis
}

// Analyze runs extraction, form generation, and email drafting in order. Any
// stage failure aborts the whole analysis; no partial result is returned.
func (p *Pipeline) Analyze(ctx context.Context, transcript, additionalContext string) (incident.AnalysisResult, error) {
	ctx = withDefaultOperation(ctx, "analyze")
	logger := logging.WithContext(ctx, p.logger)

	transcript = p.sanitize(logger, "transcript", transcript)
	additionalContext = p.sanitize(logger, "additional_context", additionalContext)
	if strings.TrimSpace(transcript) == "" {
		return incident.AnalysisResult{}, &incident.ValidationError{Fields: []string{"transcript: must not be empty"}}
	}

	start := p.now()
	facts, err := p.extract(ctx, logger, transcript, additionalContext)
	if err != nil {
		return incident.AnalysisResult{}, err
	}
	form, err := p.generateForm(ctx, logger, facts)
	if err != nil {
		return incident.AnalysisResult{}, err
	}
	email, err := p.generateEmail(ctx, logger, facts, form)
	if err != nil {
		return incident.AnalysisResult{}, err
	}

	result := incident.NewResultBuilder(incident.AnalysisResult{}).
		WithIncidentForm(form).
		WithPolicyAnalysis(facts.PolicyAnalysis).
		WithDraftEmail(email).
		WithSourceQuotes(facts.SourceQuotes).
		Build()
	logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.String("incident_type", form.TypeOfIncident),
		logging.Int("recipients", len(email.To)+len(email.CC)),
		logging.Duration("elapsed", p.now().Sub(start)),
	)
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, transcript, additionalContext string) (extraction, error) {
	payload := struct {
		Transcript        string `json:"transcript"`
		Policies          string `json:"policies"`
		AdditionalContext string `json:"additional_context,omitempty"`
	}{transcript, policy.Document, additionalContext}

	var out extraction
	if err := p.call(ctx, logger, "extract", extractPrompt, payload, &out); err != nil {
		return extraction{}, err
	}
	if out.ExtractedFacts == nil {
		out.ExtractedFacts = map[string]any{}
	}
	if out.SourceQuotes == nil {
		out.SourceQuotes = map[string]string{}
	}
	return out, nil
}

func (p *Pipeline) generateForm(ctx context.Context, logger *slog.Logger, facts extraction) (incident.IncidentForm, error) {
	payload := struct {
		ExtractedFacts     map[string]any      `json:"extracted_facts"`
		RecommendedActions incident.StringList `json:"recommended_actions"`
		FormTemplate       policy.Template     `json:"form_template"`
	}{facts.ExtractedFacts, facts.RecommendedActions, policy.FormTemplate}

	var form incident.IncidentForm
	if err := p.call(ctx, logger, "form", formPrompt, payload, &form); err != nil {
		return incident.IncidentForm{}, err
	}
	if err := p.checkForm(&form); err != nil {
		return incident.IncidentForm{}, p.parseError("form", err)
	}
	return form, nil
}

func (p *Pipeline) generateEmail(ctx context.Context, logger *slog.Logger, facts extraction, form incident.IncidentForm) (incident.DraftEmail, error) {
	type details struct {
		ServiceUser          string `json:"service_user"`
		Type                 string `json:"type"`
		Location             string `json:"location"`
		Description          string `json:"description"`
		RiskAssessmentNeeded bool   `json:"risk_assessment_needed"`
	}
	payload := struct {
		IncidentDetails details  `json:"incident_details"`
		RecurrenceInfo  string   `json:"recurrence_info"`
		PolicyPoints    []string `json:"policy_points"`
	}{
		IncidentDetails: details{
			ServiceUser:          form.ServiceUserName,
			Type:                 form.TypeOfIncident,
			Location:             form.LocationOfIncident,
			Description:          form.DescriptionOfIncident,
			RiskAssessmentNeeded: form.RiskAssessmentNeeded,
		},
		RecurrenceInfo: factString(facts.ExtractedFacts, "recurrence", "Unknown"),
		PolicyPoints:   policy.RoutingRules,
	}

	var email incident.DraftEmail
	if err := p.call(ctx, logger, "email", emailPrompt, payload, &email); err != nil {
		return incident.DraftEmail{}, err
	}
	if err := email.Validate(); err != nil {
		return incident.DraftEmail{}, p.parseError("email", err)
	}
	return email, nil
}

// Refine applies feedback to the selected section of original and returns a
// new result. Sections not selected are copied through unchanged and original
// is never modified.
func (p *Pipeline) Refine(ctx context.Context, original incident.AnalysisResult, feedback string, section incident.Section) (incident.AnalysisResult, error) {
	ctx = withDefaultOperation(ctx, "refine")
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSection, string(section)))

	if _, ok := incident.ParseSection(string(section)); !ok {
		return incident.AnalysisResult{}, &incident.ValidationError{
			Fields: []string{"section_to_edit: must be one of incident_form, draft_email, all"},
		}
	}
	feedback = p.sanitize(logger, "feedback", feedback)
	if strings.TrimSpace(feedback) == "" {
		return incident.AnalysisResult{}, &incident.ValidationError{Fields: []string{"feedback: must not be empty"}}
	}

	builder := incident.NewResultBuilder(original)
	if section.Includes(incident.SectionIncidentForm) {
		payload := struct {
			Feedback    string                `json:"feedback"`
			CurrentForm incident.IncidentForm `json:"current_form"`
		}{feedback, original.IncidentForm}
		var form incident.IncidentForm
		if err := p.call(ctx, logger, "refine_form", refineFormPrompt, payload, &form); err != nil {
			return incident.AnalysisResult{}, err
		}
		if err := p.checkForm(&form); err != nil {
			return incident.AnalysisResult{}, p.parseError("refine_form", err)
		}
		builder.WithIncidentForm(form)
	}
	if section.Includes(incident.SectionDraftEmail) {
		payload := struct {
			Feedback     string              `json:"feedback"`
			CurrentEmail incident.DraftEmail `json:"current_email"`
		}{feedback, original.DraftEmail}
		var email incident.DraftEmail
		if err := p.call(ctx, logger, "refine_email", refineEmailPrompt, payload, &email); err != nil {
			return incident.AnalysisResult{}, err
		}
		if err := email.Validate(); err != nil {
			return incident.AnalysisResult{}, p.parseError("refine_email", err)
		}
		builder.WithDraftEmail(email)
	}

	logger.Info("refinement complete", logging.String(logging.FieldEventType, "refine_complete"))
	return builder.Build(), nil
}

// call sends one JSON-object request and decodes the reply into target.
func (p *Pipeline) call(ctx context.Context, logger *slog.Logger, stage, system string, payload, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, componentName, stage, "encode prompt data", err)
	}
	req := executor.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: string(data)},
		},
		JSONObject: true,
	}

	logger.Debug("stage started", logging.String("stage", stage))
	content, err := p.exec.Execute(ctx, req)
	if err != nil {
		return err
	}
	if err := llm.DecodeLLMJSON(content, target); err != nil {
		logging.WarnWithContext(logger, "stage output rejected", "analysis_parse_failed",
			logging.String("stage", stage),
			logging.String(logging.FieldImpact, "request failed"),
			logging.Error(err),
		)
		return p.parseError(stage, err)
	}
	logger.Debug("stage complete", logging.String("stage", stage))
	return nil
}

// checkForm fills a missing date with the current time and validates.
func (p *Pipeline) checkForm(form *incident.IncidentForm) error {
	if strings.TrimSpace(form.DateAndTime) == "" {
		form.DateAndTime = incident.FormatISODateTime(p.now())
	}
	if strings.TrimSpace(form.Witnesses) == "" {
		form.Witnesses = "None"
	}
	return form.Validate()
}

// parseError keeps the decode detail in the message without letting a schema
// ValidationError classify the failure as a client error.
func (p *Pipeline) parseError(stage string, cause error) error {
	return services.Wrap(services.ErrServiceUnavailable, componentName, stage, "",
		fmt.Errorf("%w: %v", ErrParse, cause))
}

func (p *Pipeline) sanitize(logger *slog.Logger, field, text string) string {
	if text == "" {
		return text
	}
	if n := textutil.InjectionMatches(text); n > 0 {
		logging.WarnWithContext(logger, "possible prompt injection neutralized", "prompt_injection_filtered",
			logging.String("field", field),
			logging.Int("matches", n),
			logging.String(logging.FieldImpact, "matched spans replaced before model call"),
		)
	}
	return textutil.SanitizePromptInput(text)
}

func withDefaultOperation(ctx context.Context, op string) context.Context {
	if _, ok := services.OperationFromContext(ctx); ok {
		return ctx
	}
	return services.WithOperation(ctx, op)
}

func factString(facts map[string]any, key, fallback string) string {
	value, ok := facts[key]
	if !ok || value == nil {
		return fallback
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return fallback
	}
	return text
}
