package main

import (
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice is a layer graph editing engine",
	Long: `Lattice edits graphs of typed layers connected port to port, keeping every
edge's consistency up to date, with unbounded undo/redo and saved files.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Project directory holding lattice.yaml and saved files")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <dir>/lattice.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func options(cmd *cobra.Command) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	config, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{ConfigPath: config, Dir: dir, Debug: debug}
}
