package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// GraphOverlay contains editor state to visualize on the graph.
type GraphOverlay struct {
	// InconsistentEdges are drawn dotted.
	InconsistentEdges []string
	// Selected vertices are highlighted.
	Selected []string
}

// GenerateMermaid produces a Mermaid flowchart of a graph document.
// It applies semantic styling:
// - Input: [/Parallelogram/]
// - Constant: ((Circle))
// - Repeat: [[Subroutine]]
// - Default: [Rectangle]
// Vertices and edges are emitted in id order so the output is stable.
func GenerateMermaid(doc domain.Document, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, id := range slices.Sorted(maps.Keys(doc.Graph.Vertices)) {
		layerType := doc.Layers[id].LayerType

		opener, closer := "[", "]"
		switch layerType {
		case "Input":
			opener, closer = "[/", "/]"
		case "Constant":
			opener, closer = "((", "))"
		case "Repeat":
			opener, closer = "[[", "]]"
		}
		label := quote(id)
		if layerType != "" {
			label = quote(id + "<br/>" + layerType)
		}
		fmt.Fprintf(&sb, "    %s%s%s%s\n", sanitizeMermaidID(id), opener, label, closer)
	}

	var inconsistent map[string]bool
	if overlay != nil {
		inconsistent = make(map[string]bool, len(overlay.InconsistentEdges))
		for _, id := range overlay.InconsistentEdges {
			inconsistent[id] = true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(doc.Graph.Edges)) {
		e := doc.Graph.Edges[id]
		ports := quote(e.SourcePort + " → " + e.TargetPort)
		arrow := fmt.Sprintf("-- %s -->", ports)
		if inconsistent[id] {
			arrow = fmt.Sprintf("-. %s .->", ports)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil && len(overlay.Selected) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[string]bool)
		for _, id := range overlay.Selected {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s selected;\n", safeID)
			}
		}
	}

	return sb.String()
}

// quote wraps a label, swapping double quotes for single ones.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
