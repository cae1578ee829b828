// Package download performs timed downloads through the tunnel's HTTP proxy.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Downloader fetches test files through the tunnel and times them.
// The measurement is wall time from request start to the last body byte;
// the body itself is discarded.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a Downloader whose requests go through the HTTP proxy at
// proxyAddr (host:port, the client's http-listen address).
func New(proxyAddr string, timeout time.Duration) (*Downloader, error) {
	proxyURL, err := url.Parse("http://" + proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy address %q: %w", proxyAddr, err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
		// One connection per request: reusing a warm connection would
		// flatter the measurements.
		DisableKeepAlives: true,
	}

	return &Downloader{
		client:  &http.Client{Transport: transport},
		timeout: timeout,
	}, nil
}

// NewWithClient creates a Downloader over an existing client (tests).
func NewWithClient(client *http.Client, timeout time.Duration) *Downloader {
	return &Downloader{client: client, timeout: timeout}
}

// Client returns the proxied HTTP client, shared with the plan fetch so
// the plan document also travels through the tunnel.
func (d *Downloader) Client() *http.Client {
	return d.client
}

// Timed downloads src and returns the elapsed wall time. Any HTTP error,
// non-2xx status, or body read failure is returned as an error; the
// caller records it and abandons the test group.
func (d *Downloader) Timed(ctx context.Context, src string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, fmt.Errorf("build request for %s: %w", src, err)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download %s: unexpected status %s", src, resp.Status)
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, fmt.Errorf("read body of %s: %w", src, err)
	}

	return time.Since(start), nil
}
