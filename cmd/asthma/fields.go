package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"asthmapredict/patient"
)

func fieldsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the form fields, their ranges and defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFields(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the field definitions as JSON")
	return cmd
}

func printFields(out io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(patient.Fields())
	}

	rows := make([][]string, 0, len(patient.Columns()))
	for _, f := range patient.Fields() {
		rows = append(rows, []string{f.Name, f.Section, string(f.Kind), allowed(f), f.DisplayValue(f.Default)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FIELD", "SECTION", "KIND", "ALLOWED", "DEFAULT").
		Rows(rows...)
	_, err := fmt.Fprintln(out, t.Render())
	return err
}

func allowed(f patient.Field) string {
	if f.Kind == patient.KindCategorical {
		return strings.Join(f.Categories, " / ")
	}
	return f.DisplayValue(f.Min) + " to " + f.DisplayValue(f.Max)
}
