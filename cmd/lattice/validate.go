package main

import (
	"fmt"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Check a saved file for consistency",
	Long:  `Opens a saved file, rebuilding every layer, and reports the edges whose ends disagree.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(cmd.Context(), options(cmd), args[0], cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph is consistent! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
