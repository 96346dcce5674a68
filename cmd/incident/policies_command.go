package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShanTirmizi/incident-response-system/internal/api"
	"github.com/ShanTirmizi/incident-response-system/internal/policy"
)

func newPoliciesCommand() *cobra.Command {
	var template bool
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "policies",
		Short:       "Show the policy document or the incident form template",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if template {
				if jsonOutput {
					return writeJSON(cmd, api.FormTemplateResponse{Template: policy.FormTemplate})
				}
				rows := make([][]string, 0, len(policy.FormTemplate))
				for _, field := range policy.FormTemplate {
					rows = append(rows, []string{field.Name, field.Description})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Description"}, rows, nil, valueWidth))
				return nil
			}
			if jsonOutput {
				return writeJSON(cmd, api.PoliciesResponse{Policies: policy.Document})
			}
			fmt.Fprint(out, policy.Document)
			return nil
		},
	}
	cmd.Flags().BoolVar(&template, "template", false, "Show the incident form template instead")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}
