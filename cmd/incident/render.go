package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/policy"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"

	valueWidth = 72
)

var titleCaser = cases.Title(language.English)

// fieldLabel turns a snake_case key into a display label.
func fieldLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderResult prints the analysis result as sections of tables and lists.
func renderResult(w io.Writer, result incident.AnalysisResult) error {
	colorize := shouldColorize(w)
	var lines []string

	formRows, err := formRows(result.IncidentForm)
	if err != nil {
		return err
	}
	lines = append(lines, renderSectionHeader("Incident Form", colorize)...)
	lines = append(lines, renderTable([]string{"Field", "Value"}, formRows, nil, valueWidth), "")

	lines = append(lines, renderSectionHeader("Policy Analysis", colorize)...)
	lines = append(lines, bulletSection("Relevant Policies", result.PolicyAnalysis.RelevantPolicies)...)
	lines = append(lines, bulletSection("Policy Compliance", result.PolicyAnalysis.PolicyCompliance)...)
	lines = append(lines, bulletSection("Concerns", result.PolicyAnalysis.Concerns)...)
	lines = append(lines, bulletSection("Recommended Actions", result.PolicyAnalysis.RecommendedActions)...)

	email := result.DraftEmail
	lines = append(lines, renderSectionHeader("Draft Email", colorize)...)
	lines = append(lines,
		"To:      "+strings.Join(email.To, ", "),
		"CC:      "+strings.Join(email.CC, ", "),
		"Subject: "+email.Subject,
		"",
		email.Body,
		"",
	)

	if len(result.SourceQuotes) > 0 {
		keys := make([]string, 0, len(result.SourceQuotes))
		for key := range result.SourceQuotes {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []string{fieldLabel(key), result.SourceQuotes[key]})
		}
		lines = append(lines, renderSectionHeader("Source Quotes", colorize)...)
		lines = append(lines, renderTable([]string{"Fact", "Quote"}, rows, nil, valueWidth), "")
	}

	_, err = fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// formRows lists the form in template order.
func formRows(form incident.IncidentForm) ([][]string, error) {
	raw, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	values := make(map[string]any)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	rows := make([][]string, 0, len(policy.FormTemplate))
	for _, field := range policy.FormTemplate {
		var display string
		switch v := values[field.Name].(type) {
		case bool:
			display = yesNo(v)
		case string:
			display = v
		case nil:
		default:
			display = fmt.Sprint(v)
		}
		rows = append(rows, []string{fieldLabel(field.Name), display})
	}
	return rows, nil
}

func bulletSection(title string, items []string) []string {
	lines := []string{title + ":"}
	if len(items) == 0 {
		return append(lines, "  (none)", "")
	}
	for _, item := range items {
		lines = append(lines, "  - "+item)
	}
	return append(lines, "")
}
