package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layer"
)

// Consistency tells whether both ends of an edge currently agree.
type Consistency string

const (
	Consistent   Consistency = "consistent"
	Inconsistent Consistency = "inconsistent"
)

// Vertex is a positioned layer instance.
type Vertex struct {
	ID    string
	Layer *layer.Layer
	X, Y  float64
}

// Edge connects SourcePort (an output) of Source to TargetPort (an input) of Target.
type Edge struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	SourcePort  string      `json:"sourcePort"`
	Target      string      `json:"target"`
	TargetPort  string      `json:"targetPort"`
	Consistency Consistency `json:"consistency"`
}

// Options holds the structural rules of a graph.
type Options struct {
	AllowFanIn     bool
	AllowSelfLoops bool
	AllowCycles    bool
}

// Option configures a Graph.
type Option func(*Options)

// WithFanIn lets several edges share one input port.
func WithFanIn(allow bool) Option {
	return func(o *Options) { o.AllowFanIn = allow }
}

// WithSelfLoops lets an edge start and end on the same vertex.
func WithSelfLoops(allow bool) Option {
	return func(o *Options) { o.AllowSelfLoops = allow }
}

// WithCycles disables the acyclicity check.
func WithCycles(allow bool) Option {
	return func(o *Options) { o.AllowCycles = allow }
}

// Graph is the vertex/edge model. It is not safe for concurrent use.
type Graph struct {
	opts     Options
	vertices map[string]*Vertex
	edges    map[string]*Edge
	out      map[string]map[string]struct{}
	in       map[string]map[string]struct{}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		vertices: make(map[string]*Vertex),
		edges:    make(map[string]*Edge),
		out:      make(map[string]map[string]struct{}),
		in:       make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&g.opts)
	}
	return g
}

// Options returns the structural rules in effect.
func (g *Graph) Options() Options { return g.opts }

// AddVertex places l under id.
func (g *Graph) AddVertex(id string, l *layer.Layer, x, y float64) error {
	if id == "" {
		return fmt.Errorf("%w: vertex id cannot be empty", domain.ErrStructural)
	}
	if _, ok := g.vertices[id]; ok {
		return fmt.Errorf("%w: vertex %q", domain.ErrAlreadyExists, id)
	}
	if l == nil {
		return fmt.Errorf("vertex %q: layer cannot be nil", id)
	}
	g.vertices[id] = &Vertex{ID: id, Layer: l, X: x, Y: y}
	g.out[id] = make(map[string]struct{})
	g.in[id] = make(map[string]struct{})
	return nil
}

// AddLayer creates a default layer of kind and places it under id.
func (g *Graph) AddLayer(id string, kind layer.Kind, x, y float64) error {
	l, err := layer.New(kind)
	if err != nil {
		return err
	}
	return g.AddVertex(id, l, x, y)
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id string) (*Vertex, error) {
	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %q", domain.ErrNotFound, id)
	}
	return v, nil
}

// VertexIDs lists vertex ids in sorted order.
func (g *Graph) VertexIDs() []string {
	return slices.Sorted(maps.Keys(g.vertices))
}

// Edge returns a copy of the edge with the given id.
func (g *Graph) Edge(id string) (Edge, error) {
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, fmt.Errorf("%w: edge %q", domain.ErrNotFound, id)
	}
	return *e, nil
}

// EdgeIDs lists edge ids in sorted order.
func (g *Graph) EdgeIDs() []string {
	return slices.Sorted(maps.Keys(g.edges))
}

// Outgoing lists the ids of edges leaving vertexID, sorted.
func (g *Graph) Outgoing(vertexID string) []string {
	return slices.Sorted(maps.Keys(g.out[vertexID]))
}

// Incoming lists the ids of edges entering vertexID, sorted.
func (g *Graph) Incoming(vertexID string) []string {
	return slices.Sorted(maps.Keys(g.in[vertexID]))
}

// MoveVertex sets a vertex position.
func (g *Graph) MoveVertex(id string, x, y float64) error {
	v, err := g.Vertex(id)
	if err != nil {
		return err
	}
	v.X, v.Y = x, y
	return nil
}

// CloneVertex places a deep copy of srcID's layer under newID. Edges are not copied.
func (g *Graph) CloneVertex(newID, srcID string, x, y float64) error {
	src, err := g.Vertex(srcID)
	if err != nil {
		return err
	}
	if _, ok := g.vertices[newID]; ok {
		return fmt.Errorf("%w: vertex %q", domain.ErrAlreadyExists, newID)
	}
	l, err := src.Layer.Clone()
	if err != nil {
		return fmt.Errorf("clone vertex %q: %w", srcID, err)
	}
	return g.AddVertex(newID, l, x, y)
}

// DeleteVertex removes a vertex and every edge incident to it.
// It returns the ids of the removed edges.
func (g *Graph) DeleteVertex(id string) ([]string, error) {
	if _, err := g.Vertex(id); err != nil {
		return nil, err
	}
	incident := slices.Concat(g.Outgoing(id), g.Incoming(id))
	slices.Sort(incident)
	incident = slices.Compact(incident)
	for _, edgeID := range incident {
		g.removeEdge(edgeID)
	}
	delete(g.vertices, id)
	delete(g.out, id)
	delete(g.in, id)
	return incident, nil
}

// DeleteEdge removes an edge.
func (g *Graph) DeleteEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return fmt.Errorf("%w: edge %q", domain.ErrNotFound, id)
	}
	g.removeEdge(id)
	return nil
}

func (g *Graph) removeEdge(id string) {
	e := g.edges[id]
	delete(g.out[e.Source], id)
	delete(g.in[e.Target], id)
	delete(g.edges, id)
}

// EdgesBetweenVertices returns the sorted ids of edges whose endpoints are both in ids.
func (g *Graph) EdgesBetweenVertices(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []string
	for id, e := range g.edges {
		_, src := set[e.Source]
		_, tgt := set[e.Target]
		if src && tgt {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// ReplaceLayer swaps the layer of a vertex for l, which must be of the same kind,
// and refreshes the consistency of every edge touching the vertex.
func (g *Graph) ReplaceLayer(vertexID string, l *layer.Layer) error {
	v, err := g.Vertex(vertexID)
	if err != nil {
		return err
	}
	if l == nil || l.Kind() != v.Layer.Kind() {
		return fmt.Errorf("%w: vertex %q holds a %s layer", domain.ErrStructural, vertexID, v.Layer.Kind())
	}
	v.Layer = l
	g.refreshConsistency(vertexID)
	return nil
}

// SetLayerFields applies a batch of field edits to a vertex's layer, updates it and
// refreshes the consistency of every edge touching the vertex. The batch is atomic.
func (g *Graph) SetLayerFields(vertexID string, fields map[string]string) error {
	v, err := g.Vertex(vertexID)
	if err != nil {
		return err
	}
	if err := v.Layer.SetFields(fields); err != nil {
		return err
	}
	g.refreshConsistency(vertexID)
	return nil
}

// PreviewLayerFields reports what SetLayerFields would produce, without mutating.
func (g *Graph) PreviewLayerFields(vertexID string, fields map[string]string) (layer.Report, error) {
	v, err := g.Vertex(vertexID)
	if err != nil {
		return layer.Report{}, err
	}
	return v.Layer.PreviewFields(fields), nil
}

func (g *Graph) refreshConsistency(vertexID string) {
	_ = g.UpdateEdgeConsistenciesFrom(vertexID)
	for _, id := range g.Incoming(vertexID) {
		g.updateConsistency(g.edges[id])
	}
}
