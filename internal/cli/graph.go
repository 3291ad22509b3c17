package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/lattice/internal/presentation/graph"
	lgraph "github.com/aretw0/lattice/pkg/graph"
)

// ErrInconsistent is returned by Validate when some edge is inconsistent.
var ErrInconsistent = errors.New("graph has inconsistent edges")

// load opens name in a fresh engine, which rebuilds and checks the graph.
func load(ctx context.Context, opts Options, name string) (*stack, []string, error) {
	s, err := setup(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := s.engine.OpenFile(ctx, name); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to open '%s': %w", name, err)
	}
	var inconsistent []string
	for _, e := range s.engine.View().Edges {
		if e.Consistency == lgraph.Inconsistent {
			inconsistent = append(inconsistent, e.ID)
		}
	}
	return s, inconsistent, nil
}

// Graph prints a saved file as a Mermaid diagram.
func Graph(ctx context.Context, opts Options, name string, out io.Writer) error {
	s, inconsistent, err := load(ctx, opts, name)
	if err != nil {
		return err
	}
	defer s.Close()

	overlay := &graph.GraphOverlay{InconsistentEdges: inconsistent}
	fmt.Fprint(out, graph.GenerateMermaid(s.engine.Document(), overlay))
	return nil
}

// Validate reports the size of a saved file and every inconsistent edge.
func Validate(ctx context.Context, opts Options, name string, out io.Writer) error {
	s, inconsistent, err := load(ctx, opts, name)
	if err != nil {
		return err
	}
	defer s.Close()

	view := s.engine.View()
	fmt.Fprintf(out, "%s: %d vertices, %d edges\n", name, len(view.Document.Graph.Vertices), len(view.Edges))
	if len(inconsistent) == 0 {
		return nil
	}
	for _, id := range inconsistent {
		e := view.Document.Graph.Edges[id]
		fmt.Fprintf(out, "  inconsistent: %s (%s.%s -> %s.%s)\n", id, e.Source, e.SourcePort, e.Target, e.TargetPort)
	}
	return fmt.Errorf("%w: %d", ErrInconsistent, len(inconsistent))
}
