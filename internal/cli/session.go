package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"golang.org/x/term"
)

// Inspect output formats.
const (
	FormatAuto     = "auto"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ListFiles prints the names of the saved files.
func ListFiles(ctx context.Context, opts Options, out io.Writer) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.engine.SavedFileNames(ctx)
	if err != nil {
		return fmt.Errorf("error listing files: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No saved files found.")
		return nil
	}
	fmt.Fprintln(out, "Saved Files:")
	for _, name := range names {
		fmt.Fprintln(out, "- "+name)
	}
	return nil
}

// InspectFile prints a saved file as JSON or rendered markdown.
// FormatAuto renders markdown only when out is a terminal.
func InspectFile(ctx context.Context, opts Options, name, format string, out io.Writer) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.engine.Files().Load(ctx, name)
	if err != nil {
		return fmt.Errorf("error loading '%s': %w", name, err)
	}

	if format == FormatAuto {
		format = FormatJSON
		if isTerminal(out) {
			format = FormatMarkdown
		}
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling file: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	case FormatMarkdown:
		render, err := tui.NewRenderer("")
		if err != nil {
			return err
		}
		text, err := render(tui.DocumentMarkdown(name, doc))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// RemoveFiles deletes every named file, reporting each outcome.
func RemoveFiles(ctx context.Context, opts Options, names []string, out io.Writer) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	var errs []error
	for _, name := range names {
		if err := s.engine.DeleteFile(ctx, name); err != nil {
			fmt.Fprintf(out, "Error removing '%s': %v\n", name, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "Removed file '%s'\n", name)
	}
	return errors.Join(errs...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
