// Package main provides the geph-autotest CLI entry point.
//
// geph-autotest is a connectivity and throughput prober for geph4-client:
// it connects through random exits, times downloads through the tunnel,
// and uploads the results to a collector.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheekyelf/geph-autotest/internal/config"
	"github.com/cheekyelf/geph-autotest/internal/logging"
	"github.com/cheekyelf/geph-autotest/internal/metrics"
	"github.com/cheekyelf/geph-autotest/internal/probe"
	"github.com/cheekyelf/geph-autotest/internal/process"
	"github.com/cheekyelf/geph-autotest/internal/stats"
	"github.com/cheekyelf/geph-autotest/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/geph-autotest
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("geph-autotest %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// -print-cmd needs no credentials or validation beyond the binary.
	if cfg.PrintCmd {
		printConnectCommand(cfg)
		return 0
	}

	if err := config.PromptMissingCredentials(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading credentials: %v\n", err)
		return 1
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// When the TUI is enabled, logs go into its feed instead of stderr so
	// they don't fight the dashboard for the terminal.
	var logger *slog.Logger
	var feed *tui.Feed
	if cfg.TUIEnabled {
		feed = tui.NewFeed(200)
		logger = logging.NewLoggerWithWriter(feed, "text", slog.LevelInfo)
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.Verbose)
	}
	logging.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"binary", cfg.BinaryPath,
		"username", cfg.Username,
		"metrics_addr", cfg.MetricsAddr,
		"tui", cfg.TUIEnabled,
	)
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	metrics.Register()
	metrics.SetInfo(version, cfg.BinaryPath)
	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)
	metricsServer.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := stats.NewTracker()
	p, err := probe.New(cfg, logger, tracker)
	if err != nil {
		logger.Error("probe_setup_failed", "error", err)
		return 1
	}

	scraper := metrics.NewTunnelScraper(cfg.StatsListen, cfg.StatsScrapeInterval, logger)
	go scraper.Run(ctx)

	var program *tea.Program
	tuiDone := make(chan error, 1)
	if cfg.TUIEnabled {
		program = tea.NewProgram(tui.New(tui.Config{
			Version:        version,
			BinaryPath:     cfg.BinaryPath,
			MetricsAddr:    cfg.MetricsAddr,
			SnapshotSource: tracker,
			TunnelSource:   scraper,
			Feed:           feed,
		}), tea.WithAltScreen())
		go func() {
			_, err := program.Run()
			tuiDone <- err
		}()
	}

	probeErr := make(chan error, 1)
	go func() { probeErr <- p.Run(ctx) }()

	exitCode := 0
	select {
	case err := <-probeErr:
		if err != nil {
			logger.Error("probe_failed", "error", err)
			exitCode = 1
		}
		if program != nil {
			tui.SendQuit(program)
			<-tuiDone
		}
	case err := <-tuiDone:
		// Dashboard quit (q / ctrl+c): stop the probe and wait for the
		// current cycle to wind down and reap its client.
		if err != nil {
			logger.Error("tui_failed", "error", err)
		}
		stop()
		if err := <-probeErr; err != nil {
			exitCode = 1
		}
	}

	fmt.Println(stats.FormatExitSummary(tracker.Snapshot()))
	return exitCode
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                         geph-autotest                             ║")
	fmt.Println("║      Connectivity and Throughput Probing for geph4-client         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Binary:      %s\n", cfg.BinaryPath)
	fmt.Printf("  Username:    %s\n", cfg.Username)
	if cfg.PlanFile != "" {
		fmt.Printf("  Test plan:   %s\n", cfg.PlanFile)
	} else {
		fmt.Printf("  Test plan:   %s (via tunnel)\n", cfg.PlanURL)
	}
	if cfg.CollectorOverride != "" {
		fmt.Printf("  Collector:   %s (override)\n", cfg.CollectorOverride)
	}
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printConnectCommand prints the connect command that would be run.
func printConnectCommand(cfg *config.Config) {
	runner := process.NewGephRunner(&process.GephConfig{
		BinaryPath:      cfg.BinaryPath,
		Username:        cfg.Username,
		Password:        cfg.Password,
		ExitServer:      "<exit-hostname>",
		HTTPListen:      cfg.HTTPListen,
		Socks5Listen:    cfg.Socks5Listen,
		StatsListen:     cfg.StatsListen,
		CredentialCache: cfg.CredentialCache,
	})

	fmt.Println("# Connect command that would be run each cycle:")
	fmt.Println()
	fmt.Println(runner.CommandString())
}
