package graph

import (
	"fmt"
	"slices"

	"github.com/aretw0/lattice/pkg/layer"
)

// Propagate pushes the output values of vertexID along its outgoing edges, writing
// them into the connected input fields and re-running every downstream layer in
// topological order. It returns the ids of the vertices it updated, in that order.
// When a cycle is reachable from vertexID nothing is pushed and only the
// consistency of its edges is refreshed. On failure no layer changes.
func (g *Graph) Propagate(vertexID string) ([]string, error) {
	if _, err := g.Vertex(vertexID); err != nil {
		return nil, err
	}
	order, ok := g.downstreamOrder(vertexID)
	if !ok {
		g.refreshConsistency(vertexID)
		return nil, nil
	}

	staged := map[string]*layer.Layer{vertexID: g.vertices[vertexID].Layer}
	current := func(id string) *layer.Layer {
		if l, ok := staged[id]; ok {
			return l
		}
		return g.vertices[id].Layer
	}
	for _, id := range order {
		values := make(map[string]string)
		for _, edgeID := range g.Incoming(id) {
			e := g.edges[edgeID]
			if _, upstream := staged[e.Source]; !upstream {
				continue
			}
			src, _, err := current(e.Source).PortWrapper(e.SourcePort)
			if err != nil {
				return nil, err
			}
			port, err := current(id).Port(e.TargetPort)
			if err != nil {
				return nil, err
			}
			values[port.ValueKey] = src.Stringify()
		}
		next, err := current(id).Clone()
		if err != nil {
			return nil, err
		}
		if err := next.SetFields(values); err != nil {
			return nil, fmt.Errorf("propagate into %q: %w", id, err)
		}
		staged[id] = next
	}

	for _, id := range order {
		g.vertices[id].Layer = staged[id]
	}
	g.refreshConsistency(vertexID)
	for _, id := range order {
		g.refreshConsistency(id)
	}
	return order, nil
}

// downstreamOrder returns the vertices reachable from root, root excluded,
// in topological order. ok is false if the reachable subgraph has a cycle.
func (g *Graph) downstreamOrder(root string) (order []string, ok bool) {
	reachable := map[string]bool{}
	stack := []string{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for id := range g.out[cur] {
			next := g.edges[id].Target
			if !reachable[next] {
				reachable[next] = true
				stack = append(stack, next)
			}
		}
	}
	if reachable[root] {
		return nil, false
	}

	indegree := make(map[string]int, len(reachable))
	for id := range reachable {
		for _, edgeID := range g.Incoming(id) {
			if src := g.edges[edgeID].Source; reachable[src] {
				indegree[id]++
			}
		}
	}
	var ready []string
	for id := range reachable {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	for len(ready) > 0 {
		slices.Sort(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, edgeID := range g.Outgoing(cur) {
			next := g.edges[edgeID].Target
			if !reachable[next] {
				continue
			}
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return order, len(order) == len(reachable)
}
