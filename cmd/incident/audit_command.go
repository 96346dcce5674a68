package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the request outcome log",
	}
	auditCmd.AddCommand(newAuditListCommand(ctx))
	auditCmd.AddCommand(newAuditPruneCommand(ctx))
	return auditCmd
}

func (c *commandContext) openAudit() (*audit.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Audit.Enabled {
		return nil, errors.New("audit log disabled (set audit.enabled = true)")
	}
	return audit.Open(cfg)
}

func newAuditListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		operation  string
		outcome    string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analyze and refine outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ctx.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), audit.Filter{
				Limit:     limit,
				Operation: operation,
				Outcome:   outcome,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []audit.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No audit entries")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Operation,
					entry.Section,
					outcomeLabel(entry.Outcome, colorize),
					entry.Duration.Round(time.Millisecond).String(),
					entry.IncidentType,
					entry.RequestID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Operation", "Section", "Outcome", "Duration", "Incident", "Request"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				0,
			))

			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, summarizeCounts(counts))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().StringVar(&operation, "operation", "", "Only show analyze or refine")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show success, validation, service_unavailable, or internal")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func newAuditPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := ctx.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d audit entries\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold")
	return cmd
}

func outcomeLabel(outcome string, colorize bool) string {
	if !colorize {
		return outcome
	}
	if outcome == audit.OutcomeSuccess {
		return ansiGreen + outcome + ansiReset
	}
	return ansiRed + outcome + ansiReset
}

func summarizeCounts(counts map[string]int) string {
	order := []string{
		audit.OutcomeSuccess,
		string(services.KindValidation),
		string(services.KindUnavailable),
		string(services.KindInternal),
	}
	for key := range counts {
		if !slices.Contains(order, key) {
			order = append(order, key)
		}
	}
	parts := make([]string, 0, len(order))
	for _, key := range order {
		if counts[key] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
		}
	}
	if len(parts) == 0 {
		return "Totals: none"
	}
	return "Totals: " + strings.Join(parts, " ")
}
