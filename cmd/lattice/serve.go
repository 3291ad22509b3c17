package main

import (
	"context"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the lattice engine behind a JSON API over HTTP, with a Server-Sent
Events change stream at /events and Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		open, _ := cmd.Flags().GetString("open")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.Serve(sigCtx, cli.ServeOptions{
			Options: options(cmd),
			Listen:  listen,
			Open:    open,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("open", "", "Saved file to open on start")
}
