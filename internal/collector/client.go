// Package collector uploads result records to the aggregation server.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cheekyelf/geph-autotest/internal/stats"
)

// DefaultTimeout bounds one upload attempt.
const DefaultTimeout = 30 * time.Second

// Client posts result records to the collector. Uploads go over the
// direct network path, not the tunnel: a broken tunnel is exactly what
// the record needs to report.
type Client struct {
	http *http.Client
}

// New creates a collector client.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient creates a collector client over an existing HTTP
// client (tests).
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// Upload serializes the record and POSTs it to url, blocking until the
// collector responds. Serialization failure and non-2xx responses are
// errors; the caller records them and moves on to the next cycle.
func (c *Client) Upload(ctx context.Context, url string, result *stats.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not serialize result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload to %s: unexpected status %s", url, resp.Status)
	}
	return nil
}
