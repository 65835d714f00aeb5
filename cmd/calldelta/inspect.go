package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agusespa/calldelta/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	changedLanguage string

	spansLanguage  string
	spansNoContent bool
)

var changedCmd = &cobra.Command{
	Use:   "changed BEFORE AFTER",
	Short: "Print the functions that changed between two versions of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry()
		if err != nil {
			return err
		}
		language, err := resolveLanguage(registry, changedLanguage, args[1])
		if err != nil {
			return err
		}

		for _, name := range analysis.ChangedFunctions(registry, args[0], args[1], language).Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var spansCmd = &cobra.Command{
	Use:   "spans FILE",
	Short: "Print the top-level function spans of a file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry()
		if err != nil {
			return err
		}
		language, err := resolveLanguage(registry, spansLanguage, args[0])
		if err != nil {
			return err
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		spans, err := registry.ParseSpans(args[0], language, content)
		if err != nil {
			return err
		}
		if spansNoContent {
			for i := range spans {
				spans[i].Content = ""
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(spans)
	},
}

func init() {
	changedCmd.Flags().StringVar(&changedLanguage, "language", "", "language profile (default: from the file extension)")

	spansCmd.Flags().StringVar(&spansLanguage, "language", "", "language profile (default: from the file extension)")
	spansCmd.Flags().BoolVar(&spansNoContent, "no-content", false, "omit function source text")
}
