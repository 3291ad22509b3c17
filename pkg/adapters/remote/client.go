package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

// DefaultTimeout bounds a single computation request.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client implements ports.LayerComputer over HTTP.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger configures the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client posting to url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute posts rec and returns the computed field strings.
// Server-side failures are returned as *Error.
func (c *Client) Compute(ctx context.Context, rec domain.LayerRecord) (map[string]string, error) {
	body, err := json.Marshal(Request{Type: rec.LayerType, Fields: rec.ValDict})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote compute: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("remote compute", "layer", rec.LayerType, "status", resp.StatusCode, "duration", time.Since(start))

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Type: ErrorUnknown, Reason: fmt.Sprintf("status %d: unreadable response", resp.StatusCode)}
	}
	if !out.Success {
		if out.ErrorType == "" {
			out.ErrorType = ErrorUnknown
		}
		return nil, &Error{Type: out.ErrorType, Reason: out.Reason}
	}
	if out.Response == nil {
		out.Response = map[string]string{}
	}
	return out.Response, nil
}
