package metrics

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterIsIdempotent(t *testing.T) {
	// MustRegister panics on duplicates; sync.Once must prevent that.
	Register()
	Register()
}

func TestServerServesMetricsAndHealth(t *testing.T) {
	Register()
	ObserveConnect(2 * time.Second)
	ObserveDownload("small-file", 300*time.Millisecond)

	srv := NewServer("127.0.0.1:0", testLogger())
	ts := httptest.NewServer(srv.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{"geph_probe_cycles_total", "geph_probe_download_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %s", want)
		}
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
}

const statsExposition = `# HELP geph_client_recv_bytes Bytes received through the tunnel
# TYPE geph_client_recv_bytes counter
geph_client_recv_bytes 1048576
# HELP geph_client_sent_bytes Bytes sent through the tunnel
# TYPE geph_client_sent_bytes counter
geph_client_sent_bytes 65536
# HELP geph_client_smooth_rtt Smoothed RTT estimate
# TYPE geph_client_smooth_rtt gauge
geph_client_smooth_rtt 0.182
`

func TestTunnelScraperParsesExposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(statsExposition))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	s := NewTunnelScraper(u.Host, time.Second, testLogger())
	s.scrapeOnce(context.Background())

	got := s.Current()
	if !got.Healthy {
		t.Fatalf("scrape unhealthy: %s", got.Error)
	}
	if got.BytesDown != 1048576 || got.BytesUp != 65536 {
		t.Errorf("bytes = down %v up %v, want 1048576/65536", got.BytesDown, got.BytesUp)
	}
}

func TestTunnelScraperDownEndpointIsNonFatal(t *testing.T) {
	// Find a port with nothing listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	s := NewTunnelScraper(addr, time.Second, testLogger())
	s.scrapeOnce(context.Background())

	got := s.Current()
	if got.Healthy {
		t.Error("scrape of dead endpoint reported healthy")
	}
	if got.Error == "" {
		t.Error("scrape failure recorded no error")
	}
}
