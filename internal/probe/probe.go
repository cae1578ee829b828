// Package probe runs the measurement loop: sync the account, connect
// through a random exit, time downloads through the tunnel, and upload
// the cycle's record to the collector.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cheekyelf/geph-autotest/internal/account"
	"github.com/cheekyelf/geph-autotest/internal/collector"
	"github.com/cheekyelf/geph-autotest/internal/config"
	"github.com/cheekyelf/geph-autotest/internal/download"
	"github.com/cheekyelf/geph-autotest/internal/logging"
	"github.com/cheekyelf/geph-autotest/internal/metrics"
	"github.com/cheekyelf/geph-autotest/internal/process"
	"github.com/cheekyelf/geph-autotest/internal/stats"
	"github.com/cheekyelf/geph-autotest/internal/supervisor"
)

// relayDrainTimeout bounds the wait for the relay goroutine to finish
// after the client is killed. The stream is already closed at that
// point; this only covers scheduling delay.
const relayDrainTimeout = 2 * time.Second

// Probe runs connect-and-measure cycles forever.
//
// Error policy mirrors what each failure means for the fleet: a binary
// that cannot sync or spawn is a deployment problem and stops the probe;
// a failed download is a finding and becomes the record's error outcome;
// a failed upload only loses one record and is logged and skipped.
type Probe struct {
	cfg        *config.Config
	logger     *slog.Logger
	tracker    *stats.Tracker
	stderrLog  *logging.StderrLogger
	downloader *download.Downloader
	uploader   *collector.Client
	rng        *rand.Rand
}

// New creates a Probe from validated configuration.
func New(cfg *config.Config, logger *slog.Logger, tracker *stats.Tracker) (*Probe, error) {
	dl, err := download.New(cfg.HTTPListen, cfg.DownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("create downloader: %w", err)
	}

	return &Probe{
		cfg:        cfg,
		logger:     logger,
		tracker:    tracker,
		stderrLog:  logging.NewStderrLogger(logger, cfg.Verbose),
		downloader: dl,
		uploader:   collector.New(0),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run executes cycles until the context is cancelled or a fatal error
// occurs. Cancellation is a clean shutdown, not an error.
func (p *Probe) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		interval, err := p.RunCycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		p.tracker.SetStatus("sleeping until next cycle")
		p.logger.Info("cycle_complete", "next_cycle_avg_seconds", interval)
		if !sleepInterval(ctx, p.rng, interval) {
			return nil
		}
	}
}

// RunCycle performs one full cycle and returns the plan's average
// inter-cycle interval in seconds. The client process is killed and
// reaped before this function returns, on every path.
func (p *Probe) RunCycle(ctx context.Context) (int64, error) {
	start := time.Now()

	p.tracker.SetStatus("syncing account info")
	info, err := account.Sync(ctx, p.newRunner(""))
	if err != nil {
		return 0, fmt.Errorf("sync account info: %w", err)
	}

	exit := info.PickExit(p.rng)
	p.logger.Info("exit_selected", "exit", exit, "plus", info.Plus, "candidates", len(info.Exits))
	p.tracker.SetStatus("connecting via " + exit)

	sup := supervisor.New(supervisor.Config{
		Runner:      p.newRunner(exit),
		Backoff:     supervisor.NewBackoff(time.Now().UnixNano(), p.backoffConfig()),
		Logger:      p.logger,
		MaxAttempts: p.cfg.MaxRetries,
		KillTimeout: p.cfg.KillTimeout,
		Callbacks: supervisor.Callbacks{
			OnRetry: func(attempt int, delay time.Duration) {
				p.tracker.RecordSpawnRetry()
				metrics.IncSpawnRetry()
			},
		},
	})

	conn, err := sup.Connect(ctx, exit, info.Plus)
	if err != nil {
		return 0, fmt.Errorf("connect via %s: %w", exit, err)
	}
	defer conn.Close()
	defer metrics.SetConnected(false)

	connectTime := time.Since(start)
	metrics.SetConnected(true)
	metrics.ObserveConnect(connectTime)
	p.tracker.RecordConnect(exit, connectTime)
	p.logger.Info("tunnel_connected",
		"exit", exit,
		"pid", conn.PID(),
		"elapsed", connectTime.String(),
	)

	result := stats.NewResult(exit, info.Plus, connectTime)

	p.tracker.SetStatus("fetching test plan")
	plan, err := p.loadPlan(ctx)
	if err != nil {
		return 0, fmt.Errorf("load test plan: %w", err)
	}
	collectorURL := plan.Collector
	if p.cfg.CollectorOverride != "" {
		collectorURL = p.cfg.CollectorOverride
	}

	p.runTests(ctx, plan, conn, result)

	// Kill the client before the upload so the record's transcript is
	// the complete stderr of this cycle, shutdown lines included.
	conn.Close()
	select {
	case <-conn.RelayDone():
	case <-time.After(relayDrainTimeout):
	}
	p.drainStderr(conn, result)

	p.tracker.SetStatus("uploading results")
	if err := p.uploader.Upload(ctx, collectorURL, result); err != nil {
		// One lost record; the next cycle produces another.
		p.logger.Warn("upload_failed", "collector", collectorURL, "error", err)
		p.tracker.RecordUpload(false)
		metrics.IncUpload(false)
	} else {
		p.logger.Info("results_uploaded", "collector", collectorURL, "failed", result.Failed())
		p.tracker.RecordUpload(true)
		metrics.IncUpload(true)
	}

	return plan.GlobalInterval, nil
}

// runTests executes every test group in the plan. The first download
// failure sets the record's error outcome and abandons the remaining
// tests; the cycle still uploads.
func (p *Probe) runTests(ctx context.Context, plan *config.TestPlan, conn *supervisor.Connection, result *stats.Result) {
	for name, td := range plan.Endpoints {
		p.tracker.SetStatus("testing " + name)
		measurements := make([]stats.Measurement, 0, td.Iterations)

		for i := 0; i < td.Iterations; i++ {
			if ctx.Err() != nil {
				return
			}

			elapsed, err := p.downloader.Timed(ctx, td.URL)
			if err != nil {
				p.logger.Warn("download_failed",
					"test", name,
					"url", td.URL,
					"iteration", i+1,
					"error", err,
				)
				result.SetError(err.Error(), time.Now())
				p.tracker.RecordDownloadFailure()
				metrics.IncDownloadFailure(name)
				return
			}

			measurements = append(measurements, stats.Measurement{
				DownloadTime: elapsed.Milliseconds(),
				Timestamp:    time.Now().Unix(),
			})
			p.logger.Info("download_complete",
				"test", name,
				"iteration", i+1,
				"elapsed", elapsed.String(),
			)
			p.tracker.RecordDownload(name, elapsed)
			metrics.ObserveDownload(name, elapsed)

			p.drainStderr(conn, result)
			if !sleepInterval(ctx, p.rng, td.Interval) {
				return
			}
		}

		result.AddMeasurements(name, measurements)
	}
}

// drainStderr moves everything currently queued by the relay into the
// record and the logs.
func (p *Probe) drainStderr(conn *supervisor.Connection, result *stats.Result) {
	lines := conn.Queue.Drain()
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		p.stderrLog.LogLine(line)
	}
	result.AppendStderr(lines)
	p.tracker.RecordRelayLines(int64(len(lines)))
	metrics.AddRelayLines(int64(len(lines)))
}

func (p *Probe) loadPlan(ctx context.Context) (*config.TestPlan, error) {
	if p.cfg.PlanFile != "" {
		return config.LoadPlanFile(p.cfg.PlanFile)
	}
	// Fetched through the tunnel proxy: the plan fetch is itself a
	// connectivity check.
	return config.FetchPlan(ctx, p.downloader.Client(), p.cfg.PlanURL)
}

func (p *Probe) newRunner(exit string) *process.GephRunner {
	gc := process.DefaultGephConfig()
	gc.BinaryPath = p.cfg.BinaryPath
	gc.Username = p.cfg.Username
	gc.Password = p.cfg.Password
	gc.ExitServer = exit
	gc.HTTPListen = p.cfg.HTTPListen
	gc.Socks5Listen = p.cfg.Socks5Listen
	gc.StatsListen = p.cfg.StatsListen
	gc.CredentialCache = p.cfg.CredentialCache
	return process.NewGephRunner(gc)
}

func (p *Probe) backoffConfig() supervisor.BackoffConfig {
	bc := supervisor.DefaultBackoffConfig()
	if p.cfg.RetryInterval > 0 {
		bc.Initial = p.cfg.RetryInterval
	}
	if p.cfg.BackoffMultiplier > 0 {
		bc.Multiplier = p.cfg.BackoffMultiplier
	}
	return bc
}
