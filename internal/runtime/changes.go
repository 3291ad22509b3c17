package runtime

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/layer"
	"github.com/google/uuid"
)

// AddLayer creates a default layer of the given type at (x, y).
// An empty id is replaced by a generated one; the id used is returned.
func (e *Engine) AddLayer(ctx context.Context, id, layerType string, x, y float64) (string, error) {
	if reason, ok := e.disabled[layerType]; ok {
		return "", e.reject(ctx, domain.ChangeAddLayer, fmt.Errorf("%w: %s: %s", ErrUnavailable, layerType, reason))
	}
	kind, err := layer.ParseKind(layerType)
	if err != nil {
		return "", e.reject(ctx, domain.ChangeAddLayer, err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return id, e.mutate(ctx, domain.ChangeAddLayer, id, func(g *graph.Graph) error {
		return g.AddLayer(id, kind, x, y)
	})
}

// MoveVertex changes the position of a vertex.
func (e *Engine) MoveVertex(ctx context.Context, id string, x, y float64) error {
	return e.mutate(ctx, domain.ChangeMoveVertex, id, func(g *graph.Graph) error {
		return g.MoveVertex(id, x, y)
	})
}

// CreateEdge connects two ports. An empty id is replaced by a generated one.
func (e *Engine) CreateEdge(ctx context.Context, id, source, sourcePort, target, targetPort string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	return id, e.mutate(ctx, domain.ChangeCreateEdge, id, func(g *graph.Graph) error {
		return g.CreateEdge(id, source, sourcePort, target, targetPort)
	})
}

// CloneVertex deep-copies a vertex's layer to a new vertex at (x, y). Edges are not copied.
func (e *Engine) CloneVertex(ctx context.Context, newID, sourceID string, x, y float64) (string, error) {
	if newID == "" {
		newID = uuid.NewString()
	}
	return newID, e.mutate(ctx, domain.ChangeCloneVertex, newID, func(g *graph.Graph) error {
		return g.CloneVertex(newID, sourceID, x, y)
	})
}

// DeleteVertex removes a vertex and its incident edges.
func (e *Engine) DeleteVertex(ctx context.Context, id string) error {
	return e.DeleteVertices(ctx, []string{id})
}

// DeleteVertices removes several vertices, and every edge touching them, as one change.
// Repeated ids are deleted once.
func (e *Engine) DeleteVertices(ctx context.Context, ids []string) error {
	ids = slices.Compact(slices.Sorted(slices.Values(ids)))
	return e.mutate(ctx, domain.ChangeDeleteVertex, strings.Join(ids, ","), func(g *graph.Graph) error {
		for _, id := range ids {
			if _, err := g.DeleteVertex(id); err != nil {
				return err
			}
			delete(e.generations, id)
		}
		return nil
	})
}

// DeleteEdge removes an edge.
func (e *Engine) DeleteEdge(ctx context.Context, id string) error {
	return e.mutate(ctx, domain.ChangeDeleteEdge, id, func(g *graph.Graph) error {
		return g.DeleteEdge(id)
	})
}

// SetLayerFields writes a batch of fields on a vertex's layer and refreshes edge
// consistency. With propagation enabled, downstream layers are re-run as well.
// The whole request is atomic.
func (e *Engine) SetLayerFields(ctx context.Context, vertexID string, fields map[string]string) error {
	return e.mutate(ctx, domain.ChangeSetFields, vertexID, func(g *graph.Graph) error {
		if err := g.SetLayerFields(vertexID, fields); err != nil {
			return err
		}
		e.touchLocked(vertexID)
		if !e.propagate {
			return nil
		}
		updated, err := g.Propagate(vertexID)
		for _, id := range updated {
			e.touchLocked(id)
		}
		return err
	})
}
