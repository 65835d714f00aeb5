package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/agusespa/calldelta/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	patchTree     string
	patchLanguage string
)

var patchCmd = &cobra.Command{
	Use:   "patch DIFF",
	Short: "Print the functions of an after tree touched by a unified diff (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read diff: %w", err)
		}

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		language, err := resolveLanguage(registry, patchLanguage, "")
		if err != nil {
			return err
		}

		changes, err := analysis.DetectFromPatch(registry, data, patchTree, language)
		if err != nil {
			return err
		}
		if changes == nil {
			changes = []analysis.PatchChange{}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(changes)
	},
}

func init() {
	patchCmd.Flags().StringVar(&patchTree, "tree", ".", "root of the patched (after) source tree")
	patchCmd.Flags().StringVar(&patchLanguage, "language", "", "language profile (default: from config)")
}
