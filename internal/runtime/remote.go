package runtime

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/layer"
)

// RemoteCompute sends a vertex's layer to the configured computer and adopts the
// returned field values. If the vertex changed locally, or the graph was replaced
// by undo, redo or open, while the request was in flight, the result is dropped
// and ErrStale is returned.
func (e *Engine) RemoteCompute(ctx context.Context, vertexID string) error {
	kind := domain.ChangeRemoteCompute
	if e.computer == nil {
		return e.reject(ctx, kind, ErrNoComputer)
	}

	e.mu.Lock()
	v, err := e.graph.Vertex(vertexID)
	if err != nil {
		e.mu.Unlock()
		return e.reject(ctx, kind, err)
	}
	rec := layer.ToRecord(v.Layer)
	e.touchLocked(vertexID)
	gen, epoch := e.generations[vertexID], e.epoch
	e.mu.Unlock()

	var fields map[string]string
	err = e.queue.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		var err error
		fields, err = e.computer.Compute(ctx, rec)
		e.metrics.ObserveRemote(rec.LayerType, time.Since(start), err)
		return err
	})
	if err != nil {
		return e.reject(ctx, kind, fmt.Errorf("remote compute %q: %w", vertexID, err))
	}

	e.mu.Lock()
	if e.epoch != epoch || e.generations[vertexID] != gen {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "dropping stale remote result", "vertex_id", vertexID)
		return ErrStale
	}
	merged := maps.Clone(rec.ValDict)
	maps.Copy(merged, fields)
	ev, err := e.mutateLocked(kind, vertexID, func(g *graph.Graph) error {
		l, err := layer.FromRecord(domain.LayerRecord{LayerType: rec.LayerType, ValDict: merged})
		if err != nil {
			return fmt.Errorf("remote result for %q: %w", vertexID, err)
		}
		return g.ReplaceLayer(vertexID, l)
	})
	e.mu.Unlock()
	if err != nil {
		return e.reject(ctx, kind, err)
	}
	e.emit(ctx, ev)
	return nil
}
