package main

import (
	"context"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the change stream of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		debug, _ := cmd.Flags().GetBool("debug")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.Watch(sigCtx, cli.WatchOptions{URL: url, Kinds: kinds, Debug: debug}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("url", "http://localhost:8080", "Base URL of the server")
	watchCmd.Flags().StringSlice("kind", nil, "Only show these change kinds (repeatable)")
}
