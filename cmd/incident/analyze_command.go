package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShanTirmizi/incident-response-system/internal/api"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		filePath   string
		extra      string
		jsonOutput bool
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a call transcript in-process",
		Long: "Run the extraction, form, and email stages against a transcript file " +
			"(use - for stdin) and print the resulting incident form, policy analysis, and draft email.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			transcript, err := readInput(cmd.InOrStdin(), filePath)
			if err != nil {
				return err
			}
			req := api.TranscriptRequest{Transcript: transcript, AdditionalContext: extra}
			if err := incident.ValidateStruct(req); err != nil {
				return err
			}

			rt, _, err := ctx.runtime()
			if err != nil {
				return err
			}
			result, err := rt.Pipeline.Analyze(cmd.Context(),
				strings.TrimSpace(req.Transcript), strings.TrimSpace(req.AdditionalContext))
			if err != nil {
				return describeFailure(err)
			}
			return emitResult(cmd, result, jsonOutput, outputPath)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Transcript file (- for stdin)")
	cmd.Flags().StringVar(&extra, "context", "", "Additional context for the analysis")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the JSON result to this file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRefineCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath  string
		feedback   string
		section    string
		jsonOutput bool
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Revise a saved analysis result with feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			var original incident.AnalysisResult
			if err := json.Unmarshal([]byte(raw), &original); err != nil {
				return fmt.Errorf("parse %s: %w", inputPath, err)
			}
			req := api.FeedbackRequest{
				OriginalResponse: original,
				Feedback:         feedback,
				SectionToEdit:    incident.Section(strings.TrimSpace(section)),
			}
			if err := incident.ValidateStruct(req); err != nil {
				return err
			}

			rt, _, err := ctx.runtime()
			if err != nil {
				return err
			}
			result, err := rt.Pipeline.Refine(cmd.Context(), req.OriginalResponse,
				strings.TrimSpace(req.Feedback), req.SectionToEdit)
			if err != nil {
				return describeFailure(err)
			}
			return emitResult(cmd, result, jsonOutput, outputPath)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Saved analysis result JSON (- for stdin)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Requested changes")
	cmd.Flags().StringVar(&section, "section", string(incident.SectionAll), "Section to revise: incident_form, draft_email, or all")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the JSON result to this file")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("feedback")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("input path is required")
	}
	if path == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, api.MaxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", expanded, err)
	}
	return string(data), nil
}

func emitResult(cmd *cobra.Command, result incident.AnalysisResult, jsonOutput bool, outputPath string) error {
	if path := strings.TrimSpace(outputPath); path != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if jsonOutput {
		return writeJSON(cmd, result)
	}
	return renderResult(cmd.OutOrStdout(), result)
}

// describeFailure prefixes service failures so the terminal reads like the
// HTTP error detail.
func describeFailure(err error) error {
	if services.FailureKind(err) == services.KindUnavailable {
		return fmt.Errorf("AI service unavailable: %w", err)
	}
	return err
}
