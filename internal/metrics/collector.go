// Package metrics provides Prometheus metrics for geph-autotest.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// --- Connect cycle ---
var (
	probeInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geph_probe_info",
			Help: "Information about the prober (value always 1)",
		},
		[]string{"version", "binary"},
	)

	probeCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geph_probe_cycles_total",
			Help: "Total connect cycles completed",
		},
	)

	probeConnectSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geph_probe_connect_seconds",
			Help: "Wall time of the most recent connect (sync + spawn + readiness)",
		},
	)

	probeConnectHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geph_probe_connect_duration_seconds",
			Help:    "Connect duration distribution",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		},
	)

	probeSpawnRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geph_probe_spawn_retries_total",
			Help: "Respawns after the client exited before readiness",
		},
	)

	probeConnectedState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geph_probe_connected",
			Help: "1 while a tunnel is up, 0 otherwise",
		},
	)
)

// --- Downloads ---
var (
	probeDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geph_probe_downloads_total",
			Help: "Timed downloads performed, by test name",
		},
		[]string{"test"},
	)

	probeDownloadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geph_probe_download_failures_total",
			Help: "Downloads that failed, by test name",
		},
		[]string{"test"},
	)

	probeDownloadHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geph_probe_download_duration_seconds",
			Help:    "Timed download duration distribution, by test name",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		},
		[]string{"test"},
	)
)

// --- Uploads and relay ---
var (
	probeUploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geph_probe_uploads_total",
			Help: "Result records uploaded to the collector",
		},
	)

	probeUploadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geph_probe_upload_failures_total",
			Help: "Result uploads that failed",
		},
	)

	probeRelayLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geph_probe_relay_lines_total",
			Help: "Client stderr lines relayed",
		},
	)
)

// --- Tunnel stats endpoint scrape ---
var (
	tunnelStatsUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geph_tunnel_stats_up",
			Help: "1 if the last scrape of the client's stats endpoint succeeded",
		},
	)

	tunnelBytesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geph_tunnel_bytes_total",
			Help: "Bytes through the tunnel as reported by the client",
		},
		[]string{"direction"},
	)
)

var registerOnce sync.Once

// Register registers all prober metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			probeInfo,
			probeCyclesTotal,
			probeConnectSeconds,
			probeConnectHistogram,
			probeSpawnRetriesTotal,
			probeConnectedState,
			probeDownloadsTotal,
			probeDownloadFailuresTotal,
			probeDownloadHistogram,
			probeUploadsTotal,
			probeUploadFailuresTotal,
			probeRelayLinesTotal,
			tunnelStatsUp,
			tunnelBytesTotal,
		)
	})
}

// SetInfo publishes the static info labels.
func SetInfo(version, binary string) {
	probeInfo.WithLabelValues(version, binary).Set(1)
}

// ObserveConnect records a completed connect.
func ObserveConnect(d time.Duration) {
	probeCyclesTotal.Inc()
	probeConnectSeconds.Set(d.Seconds())
	probeConnectHistogram.Observe(d.Seconds())
}

// IncSpawnRetry counts one respawn.
func IncSpawnRetry() {
	probeSpawnRetriesTotal.Inc()
}

// SetConnected flips the tunnel-up gauge.
func SetConnected(up bool) {
	if up {
		probeConnectedState.Set(1)
	} else {
		probeConnectedState.Set(0)
	}
}

// ObserveDownload records one timed download.
func ObserveDownload(test string, d time.Duration) {
	probeDownloadsTotal.WithLabelValues(test).Inc()
	probeDownloadHistogram.WithLabelValues(test).Observe(d.Seconds())
}

// IncDownloadFailure counts one failed download.
func IncDownloadFailure(test string) {
	probeDownloadFailuresTotal.WithLabelValues(test).Inc()
}

// IncUpload counts one upload attempt.
func IncUpload(ok bool) {
	if ok {
		probeUploadsTotal.Inc()
	} else {
		probeUploadFailuresTotal.Inc()
	}
}

// AddRelayLines adds to the relayed line counter.
func AddRelayLines(n int64) {
	if n > 0 {
		probeRelayLinesTotal.Add(float64(n))
	}
}

// SetTunnelStats publishes the scraped tunnel byte counters.
func SetTunnelStats(up bool, bytesDown, bytesUp float64) {
	if !up {
		tunnelStatsUp.Set(0)
		return
	}
	tunnelStatsUp.Set(1)
	tunnelBytesTotal.WithLabelValues("down").Set(bytesDown)
	tunnelBytesTotal.WithLabelValues("up").Set(bytesUp)
}
