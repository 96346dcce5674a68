package incident

import "maps"

// ResultBuilder derives a new AnalysisResult from an existing one with named
// overrides. The source value is never modified.
type ResultBuilder struct {
	result AnalysisResult
}

// NewResultBuilder starts from a deep copy of base.
func NewResultBuilder(base AnalysisResult) *ResultBuilder {
	return &ResultBuilder{result: base.Clone()}
}

// WithIncidentForm replaces the incident form.
func (b *ResultBuilder) WithIncidentForm(form IncidentForm) *ResultBuilder {
	b.result.IncidentForm = form
	return b
}

// WithDraftEmail replaces the draft email with a copy of email.
func (b *ResultBuilder) WithDraftEmail(email DraftEmail) *ResultBuilder {
	b.result.DraftEmail = email.Clone()
	return b
}

// WithPolicyAnalysis replaces the policy findings with a copy of analysis.
func (b *ResultBuilder) WithPolicyAnalysis(analysis PolicyAnalysis) *ResultBuilder {
	b.result.PolicyAnalysis = analysis.Clone()
	return b
}

// WithSourceQuotes replaces the source quotes with a copy of quotes. A nil
// map yields an empty one.
func (b *ResultBuilder) WithSourceQuotes(quotes map[string]string) *ResultBuilder {
	copied := make(map[string]string, len(quotes))
	maps.Copy(copied, quotes)
	b.result.SourceQuotes = copied
	return b
}

// Build returns an independent copy so the builder can be reused.
func (b *ResultBuilder) Build() AnalysisResult {
	return b.result.Clone()
}
