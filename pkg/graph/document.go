package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layer"
)

// ToDocument serializes the graph. Layers are keyed by vertex id.
func (g *Graph) ToDocument() domain.Document {
	doc := domain.NewDocument()
	for id, v := range g.vertices {
		doc.Graph.Vertices[id] = domain.VertexRecord{X: v.X, Y: v.Y}
		doc.Layers[id] = layer.ToRecord(v.Layer)
		index := make(map[string]bool)
		for edgeID := range g.out[id] {
			index[edgeID] = true
		}
		for edgeID := range g.in[id] {
			index[edgeID] = true
		}
		doc.EdgesByVertex[id] = index
	}
	for id, e := range g.edges {
		doc.Graph.Edges[id] = domain.EdgeRecord{
			Source:     e.Source,
			SourcePort: e.SourcePort,
			Target:     e.Target,
			TargetPort: e.TargetPort,
		}
	}
	return doc
}

// FromDocument rebuilds a graph. Edges go through the same checks as CreateEdge
// and their consistency is recomputed; the edge index of doc is derived data
// and is not trusted.
func FromDocument(doc domain.Document, opts ...Option) (*Graph, error) {
	g := New(opts...)
	for _, id := range slices.Sorted(maps.Keys(doc.Graph.Vertices)) {
		rec, ok := doc.Layers[id]
		if !ok {
			return nil, fmt.Errorf("%w: vertex %q has no layer", domain.ErrNotFound, id)
		}
		l, err := layer.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("vertex %q: %w", id, err)
		}
		pos := doc.Graph.Vertices[id]
		if err := g.AddVertex(id, l, pos.X, pos.Y); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(doc.Graph.Edges)) {
		e := doc.Graph.Edges[id]
		if err := g.CreateEdge(id, e.Source, e.SourcePort, e.Target, e.TargetPort); err != nil {
			return nil, fmt.Errorf("edge %q: %w", id, err)
		}
	}
	return g, nil
}
