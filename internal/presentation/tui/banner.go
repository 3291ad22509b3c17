package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Lattice ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	// Using a subtle gradient-like color scheme (Teal/Cyan)
	lines := []struct {
		text  string
		color string
	}{
		{"  _          _   _   _          ", "#2dd4bf"},
		{" | |    __ _| |_| |_(_) ___ ___ ", "#22d3ee"},
		{" | |   / _` | __| __| |/ __/ _ \\", "#38bdf8"},
		{" | |__| (_| | |_| |_| | (_|  __/", "#60a5fa"},
		{" |_____\\__,_|\\__|\\__|_|\\___\\___|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
