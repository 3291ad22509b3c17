package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects the terminal background; "notty" renders plain text.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("init markdown renderer: %w", err)
	}
	return r.Render, nil
}

// DocumentMarkdown summarizes a saved graph as markdown tables.
func DocumentMarkdown(name string, doc domain.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "%d vertices, %d edges\n\n", len(doc.Graph.Vertices), len(doc.Graph.Edges))

	if len(doc.Graph.Vertices) > 0 {
		sb.WriteString("## Layers\n\n| Vertex | Type | Position | Fields |\n|---|---|---|---|\n")
		for _, id := range slices.Sorted(maps.Keys(doc.Graph.Vertices)) {
			v := doc.Graph.Vertices[id]
			rec := doc.Layers[id]
			fields := make([]string, 0, len(rec.ValDict))
			for _, f := range slices.Sorted(maps.Keys(rec.ValDict)) {
				fields = append(fields, fmt.Sprintf("`%s=%s`", f, rec.ValDict[f]))
			}
			fmt.Fprintf(&sb, "| %s | %s | (%g, %g) | %s |\n", id, rec.LayerType, v.X, v.Y, strings.Join(fields, " "))
		}
		sb.WriteString("\n")
	}

	if len(doc.Graph.Edges) > 0 {
		sb.WriteString("## Edges\n\n| Edge | From | To |\n|---|---|---|\n")
		for _, id := range slices.Sorted(maps.Keys(doc.Graph.Edges)) {
			e := doc.Graph.Edges[id]
			fmt.Fprintf(&sb, "| %s | %s.%s | %s.%s |\n", id, e.Source, e.SourcePort, e.Target, e.TargetPort)
		}
	}
	return sb.String()
}
