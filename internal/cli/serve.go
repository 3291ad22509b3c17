package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	"github.com/aretw0/lattice/pkg/adapters/mcp"
	"github.com/aretw0/lattice/pkg/adapters/remote"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	Options
	// Listen overrides the configured address when set.
	Listen string
	// Open loads a saved file before serving.
	Open string
}

func (s *stack) handler() http.Handler {
	return httpAdapter.NewHandler(s.engine,
		httpAdapter.WithLogger(s.logger),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})),
		httpAdapter.WithComputeHandler(remote.Handler(s.logger)),
	)
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, opts ServeOptions, out io.Writer) error {
	s, err := setup(opts.Options)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Open != "" {
		if err := s.engine.OpenFile(ctx, opts.Open); err != nil {
			return fmt.Errorf("failed to open %q: %w", opts.Open, err)
		}
	}

	addr := s.cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Starting Lattice Server on %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		printSystemMessage(out, "Lattice Server stopped gracefully")
		return nil
	}
}

// ServeMCP runs the MCP server over stdio or SSE.
func ServeMCP(ctx context.Context, opts Options, transport string, port int) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(s.engine, s.logger)
	switch transport {
	case "stdio":
		s.logger.Info("Starting Lattice MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		s.logger.Info("Starting Lattice MCP Server (SSE)", "port", port)
		if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.logger.Info("MCP Server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}
