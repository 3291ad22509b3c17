package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"session"},
	Short:   "Manage saved files",
	Long:    `List, inspect, and remove the files saved in the configured store.`,
}

var filesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all saved files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListFiles(cmd.Context(), options(cmd), cmd.OutOrStdout())
	},
}

var filesInspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Print the contents of a saved file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return cli.InspectFile(cmd.Context(), options(cmd), args[0], format, cmd.OutOrStdout())
	},
}

var filesRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove one or more saved files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RemoveFiles(cmd.Context(), options(cmd), args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesLsCmd)
	filesCmd.AddCommand(filesInspectCmd)
	filesCmd.AddCommand(filesRmCmd)

	filesInspectCmd.Flags().String("format", cli.FormatAuto, "Output format: auto, json or markdown")
}
