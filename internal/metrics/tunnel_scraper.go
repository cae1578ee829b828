package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric family names the client exposes on its stats endpoint.
const (
	recvBytesFamily = "geph_client_recv_bytes"
	sentBytesFamily = "geph_client_sent_bytes"
)

// TunnelStats is one scrape of the client's stats endpoint.
type TunnelStats struct {
	BytesDown float64
	BytesUp   float64

	LastUpdate time.Time
	Healthy    bool
	Error      string
}

// TunnelScraper periodically scrapes the client's stats-listen endpoint
// while a tunnel is up. Scrape failures are expected between cycles
// (the client is down) and are never fatal; they just mark the scrape
// unhealthy until the next tunnel comes up.
type TunnelScraper struct {
	url        string
	interval   time.Duration
	logger     *slog.Logger
	httpClient *http.Client

	// Lock-free reads for the TUI.
	current atomic.Value // *TunnelStats
}

// NewTunnelScraper creates a scraper for the stats endpoint at
// statsAddr (host:port).
func NewTunnelScraper(statsAddr string, interval time.Duration, logger *slog.Logger) *TunnelScraper {
	s := &TunnelScraper{
		url:      fmt.Sprintf("http://%s/metrics", statsAddr),
		interval: interval,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	s.current.Store(&TunnelStats{})
	return s
}

// Run scrapes on a ticker until ctx is cancelled.
func (s *TunnelScraper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scrapeOnce(ctx)
		}
	}
}

// Current returns the latest scrape result.
func (s *TunnelScraper) Current() *TunnelStats {
	return s.current.Load().(*TunnelStats)
}

func (s *TunnelScraper) scrapeOnce(ctx context.Context) {
	stats, err := s.fetch(ctx)
	if err != nil {
		s.current.Store(&TunnelStats{
			LastUpdate: time.Now(),
			Error:      err.Error(),
		})
		SetTunnelStats(false, 0, 0)
		s.logger.Debug("tunnel_stats_scrape_failed", "error", err)
		return
	}
	s.current.Store(stats)
	SetTunnelStats(true, stats.BytesDown, stats.BytesUp)
}

func (s *TunnelScraper) fetch(ctx context.Context) (*TunnelStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats endpoint returned %s", resp.Status)
	}

	stats := &TunnelStats{
		LastUpdate: time.Now(),
		Healthy:    true,
	}

	decoder := expfmt.NewDecoder(resp.Body, expfmt.FmtText)
	for {
		var family dto.MetricFamily
		if err := decoder.Decode(&family); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode stats exposition: %w", err)
		}

		switch family.GetName() {
		case recvBytesFamily:
			stats.BytesDown = familyValue(&family)
		case sentBytesFamily:
			stats.BytesUp = familyValue(&family)
		}
	}

	return stats, nil
}

// familyValue extracts the first sample's value regardless of type.
func familyValue(family *dto.MetricFamily) float64 {
	metrics := family.GetMetric()
	if len(metrics) == 0 {
		return 0
	}
	m := metrics[0]
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetUntyped() != nil:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}
