package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Tracker accumulates run-level statistics across cycles for the exit
// summary and the TUI. Download durations go into a t-digest so the
// percentiles stay constant-memory over arbitrarily long runs.
//
// Thread-safe: the probe loop writes, the TUI reads.
type Tracker struct {
	mu sync.Mutex

	startTime time.Time
	status    string

	cycles        int
	uploads       int
	uploadFails   int
	spawnRetries  int
	failedCycles  int
	lastExit      string
	lastConnect   time.Duration
	connectDigest *tdigest.TDigest

	downloads       int64
	downloadFails   int64
	downloadDigest  *tdigest.TDigest
	lastPerTest     map[string]time.Duration
	relayLinesTotal int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		startTime:      time.Now(),
		connectDigest:  tdigest.NewWithCompression(100),
		downloadDigest: tdigest.NewWithCompression(100),
		lastPerTest:    map[string]time.Duration{},
	}
}

// SetStatus records what the probe loop is currently doing, for display.
func (t *Tracker) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// RecordConnect records a successful connect and its duration.
func (t *Tracker) RecordConnect(exit string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycles++
	t.lastExit = exit
	t.lastConnect = d
	t.connectDigest.Add(d.Seconds(), 1)
}

// RecordSpawnRetry counts one respawn after a premature client exit.
func (t *Tracker) RecordSpawnRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spawnRetries++
}

// RecordDownload records one timed download for a named test.
func (t *Tracker) RecordDownload(test string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.downloads++
	t.downloadDigest.Add(d.Seconds(), 1)
	t.lastPerTest[test] = d
}

// RecordDownloadFailure counts a failed download and marks the cycle failed.
func (t *Tracker) RecordDownloadFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.downloadFails++
	t.failedCycles++
}

// RecordUpload counts one collector upload attempt.
func (t *Tracker) RecordUpload(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.uploads++
	} else {
		t.uploadFails++
	}
}

// RecordRelayLines sets the cumulative relayed stderr line count.
func (t *Tracker) RecordRelayLines(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.relayLinesTotal += n
}

// Snapshot is a point-in-time copy of the tracker for display.
type Snapshot struct {
	Status       string
	Elapsed      time.Duration
	Cycles       int
	FailedCycles int
	SpawnRetries int

	LastExit    string
	LastConnect time.Duration
	ConnectP50  time.Duration
	ConnectP95  time.Duration

	Downloads     int64
	DownloadFails int64
	DownloadP50   time.Duration
	DownloadP95   time.Duration
	DownloadP99   time.Duration
	LastPerTest   map[string]time.Duration

	Uploads     int
	UploadFails int
	RelayLines  int64
}

// Snapshot returns a copy of the current aggregates.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	perTest := make(map[string]time.Duration, len(t.lastPerTest))
	for k, v := range t.lastPerTest {
		perTest[k] = v
	}

	s := Snapshot{
		Status:        t.status,
		Elapsed:       time.Since(t.startTime),
		Cycles:        t.cycles,
		FailedCycles:  t.failedCycles,
		SpawnRetries:  t.spawnRetries,
		LastExit:      t.lastExit,
		LastConnect:   t.lastConnect,
		Downloads:     t.downloads,
		DownloadFails: t.downloadFails,
		LastPerTest:   perTest,
		Uploads:       t.uploads,
		UploadFails:   t.uploadFails,
		RelayLines:    t.relayLinesTotal,
	}
	if t.cycles > 0 {
		s.ConnectP50 = secondsToDuration(t.connectDigest.Quantile(0.50))
		s.ConnectP95 = secondsToDuration(t.connectDigest.Quantile(0.95))
	}
	if t.downloads > 0 {
		s.DownloadP50 = secondsToDuration(t.downloadDigest.Quantile(0.50))
		s.DownloadP95 = secondsToDuration(t.downloadDigest.Quantile(0.95))
		s.DownloadP99 = secondsToDuration(t.downloadDigest.Quantile(0.99))
	}
	return s
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
