package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

const watchBackoff = 2 * time.Second

// WatchOptions configures Watch.
type WatchOptions struct {
	// URL is the base address of a running server.
	URL string
	// Kinds filters the streamed change kinds. Empty streams everything.
	Kinds []string
	Debug bool
}

// Watch tails the change stream of a running server, reconnecting until ctx is done.
func Watch(ctx context.Context, opts WatchOptions, out io.Writer) error {
	logger := createLogger(opts.Debug, slog.LevelWarn, logging.FormatText)

	endpoint, err := eventsURL(opts.URL, opts.Kinds)
	if err != nil {
		return err
	}
	printSystemMessage(out, "Watching %s", opts.URL)

	for {
		err := streamEvents(ctx, endpoint, out)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("Event stream ended, reconnecting", "err", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchBackoff):
		}
	}
}

func eventsURL(base string, kinds []string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/events")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if len(kinds) > 0 {
		q := u.Query()
		q.Set("watch", strings.Join(kinds, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func streamEvents(ctx context.Context, endpoint string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if event != "ping" {
				printEvent(out, []byte(strings.TrimPrefix(line, "data: ")))
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func printEvent(out io.Writer, data []byte) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fmt.Fprintf(out, "? %s\n", data)
		return
	}
	state := "modified"
	if ev.Saved {
		state = "saved"
	}
	line := fmt.Sprintf("%s %-16s", ev.Timestamp.Format(time.TimeOnly), ev.Kind)
	if ev.Target != "" {
		line += " " + ev.Target
	}
	fmt.Fprintf(out, "%s [%s]\n", line, state)
}
