package runtime

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/layer"
)

// EdgeValidity is the answer to an edge preflight.
type EdgeValidity struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// LayerInfo describes an addable layer type.
type LayerInfo struct {
	Name               string `json:"name"`
	ReasonNotAvailable string `json:"reasonNotAvailable,omitempty"`
}

// View is a read-only snapshot of the editor state.
type View struct {
	Document domain.Document `json:"document"`
	Edges    []graph.Edge    `json:"edges"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
	Saved    bool            `json:"saved"`
	File     string          `json:"file,omitempty"`
}

// ValidateEdge reports whether an edge could be created, without creating it.
func (e *Engine) ValidateEdge(source, sourcePort, target, targetPort string) EdgeValidity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reason := e.graph.ValidateEdge(source, sourcePort, target, targetPort); reason != "" {
		return EdgeValidity{Reason: reason}
	}
	return EdgeValidity{Valid: true}
}

// EdgesBetweenVertices returns the edges with both endpoints in ids.
func (e *Engine) EdgesBetweenVertices(ids []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.EdgesBetweenVertices(ids)
}

// ListLayers lists every layer type with the reason it cannot be added, if any.
func (e *Engine) ListLayers() []LayerInfo {
	kinds := layer.Kinds()
	out := make([]LayerInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, LayerInfo{Name: k.String(), ReasonNotAvailable: e.disabled[k.String()]})
	}
	return out
}

// Document returns the current graph document.
func (e *Engine) Document() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.ToDocument()
}

// View returns the document together with edge consistency and history status.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.graph.EdgeIDs()
	edges := make([]graph.Edge, 0, len(ids))
	for _, id := range ids {
		edge, _ := e.graph.Edge(id)
		edges = append(edges, edge)
	}
	file, _ := e.history.OpenFile()
	return View{
		Document: e.graph.ToDocument(),
		Edges:    edges,
		CanUndo:  e.history.CanUndo(),
		CanRedo:  e.history.CanRedo(),
		Saved:    e.history.AreAllChangesSaved(),
		File:     file,
	}
}

// ValidateLayerFields previews a field batch on a vertex without applying it.
func (e *Engine) ValidateLayerFields(vertexID string, fields map[string]string) (layer.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.PreviewLayerFields(vertexID, fields)
}

// SavedFileNames lists the saved files.
func (e *Engine) SavedFileNames(ctx context.Context) ([]string, error) {
	if e.files == nil {
		return nil, ErrNoFiles
	}
	var names []string
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		names, err = e.files.List(ctx)
		return err
	})
	return names, err
}
