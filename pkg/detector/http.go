package detector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps the response read; public IP endpoints return a few
// dozen bytes at most.
const maxBodySize = 1 << 10

// HTTPStrategy discovers the public IP by querying an external endpoint
// that echoes the caller's address in its response body.
type HTTPStrategy struct {
	// URL is the endpoint to GET
	URL string

	// Timeout bounds the whole attempt; 0 means no explicit bound
	Timeout time.Duration

	// Client allows injecting a custom HTTP client; nil uses a default
	Client *http.Client
}

// Kind returns the strategy kind
func (h *HTTPStrategy) Kind() string { return "http" }

// Describe returns the endpoint URL
func (h *HTTPStrategy) Describe() string { return h.URL }

// Detect issues a GET and returns the trimmed response body
func (h *HTTPStrategy) Detect(ctx context.Context) (string, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
