package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <name>",
	Short: "Export a saved file as a Mermaid diagram",
	Long:  `Opens a saved file and outputs a Mermaid diagram (graph LR). Inconsistent edges are dotted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Graph(cmd.Context(), options(cmd), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
