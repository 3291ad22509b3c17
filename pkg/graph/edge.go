package graph

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layer"
)

// ValidateEdge reports why the edge could not be created, or "" if it is well-formed.
// It never mutates the graph.
func (g *Graph) ValidateEdge(source, sourcePort, target, targetPort string) string {
	if err := g.checkEdge(source, sourcePort, target, targetPort); err != nil {
		return err.Error()
	}
	return ""
}

// CreateEdge connects two ports. Errors wrap domain.ErrAlreadyExists,
// domain.ErrNotFound or domain.ErrStructural.
func (g *Graph) CreateEdge(id, source, sourcePort, target, targetPort string) error {
	if id == "" {
		return fmt.Errorf("%w: edge id cannot be empty", domain.ErrStructural)
	}
	if _, ok := g.edges[id]; ok {
		return fmt.Errorf("%w: edge %q", domain.ErrAlreadyExists, id)
	}
	if err := g.checkEdge(source, sourcePort, target, targetPort); err != nil {
		return err
	}
	e := &Edge{ID: id, Source: source, SourcePort: sourcePort, Target: target, TargetPort: targetPort}
	g.edges[id] = e
	g.out[source][id] = struct{}{}
	g.in[target][id] = struct{}{}
	g.updateConsistency(e)
	return nil
}

func (g *Graph) checkEdge(source, sourcePort, target, targetPort string) error {
	src, err := g.Vertex(source)
	if err != nil {
		return err
	}
	tgt, err := g.Vertex(target)
	if err != nil {
		return err
	}
	srcWrapper, srcInfo, err := src.Layer.PortWrapper(sourcePort)
	if err != nil {
		return err
	}
	tgtWrapper, tgtInfo, err := tgt.Layer.PortWrapper(targetPort)
	if err != nil {
		return err
	}
	if srcInfo.Direction != layer.Output {
		return fmt.Errorf("%w: source port %q of %q is not an output", domain.ErrStructural, sourcePort, source)
	}
	if tgtInfo.Direction != layer.Input {
		return fmt.Errorf("%w: target port %q of %q is not an input", domain.ErrStructural, targetPort, target)
	}
	if srcWrapper.Type() != tgtWrapper.Type() {
		return fmt.Errorf("%w: cannot connect a %s output to a %s input", domain.ErrStructural, srcWrapper.Type(), tgtWrapper.Type())
	}
	if source == target && !g.opts.AllowSelfLoops {
		return fmt.Errorf("%w: vertex %q cannot connect to itself", domain.ErrStructural, source)
	}
	for id := range g.in[target] {
		e := g.edges[id]
		if e.TargetPort != targetPort {
			continue
		}
		if !g.opts.AllowFanIn {
			return fmt.Errorf("%w: input port %q of %q is already connected", domain.ErrStructural, targetPort, target)
		}
		if e.Source == source && e.SourcePort == sourcePort {
			return fmt.Errorf("%w: ports are already connected by edge %q", domain.ErrStructural, id)
		}
	}
	if !g.opts.AllowCycles && source != target && g.reaches(target, source) {
		return fmt.Errorf("%w: connecting %q to %q would create a cycle", domain.ErrStructural, source, target)
	}
	return nil
}

// reaches reports whether to is reachable from from along edges.
func (g *Graph) reaches(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for id := range g.out[cur] {
			next := g.edges[id].Target
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// UpdateEdgeConsistenciesFrom recomputes the consistency of every edge leaving vertexID.
func (g *Graph) UpdateEdgeConsistenciesFrom(vertexID string) error {
	if _, err := g.Vertex(vertexID); err != nil {
		return err
	}
	for id := range g.out[vertexID] {
		g.updateConsistency(g.edges[id])
	}
	return nil
}

func (g *Graph) updateConsistency(e *Edge) {
	src, _, err := g.vertices[e.Source].Layer.PortWrapper(e.SourcePort)
	if err != nil {
		e.Consistency = Inconsistent
		return
	}
	tgt, _, err := g.vertices[e.Target].Layer.PortWrapper(e.TargetPort)
	if err != nil {
		e.Consistency = Inconsistent
		return
	}
	if tgt.CompareToString(src.Stringify()) {
		e.Consistency = Consistent
	} else {
		e.Consistency = Inconsistent
	}
}
