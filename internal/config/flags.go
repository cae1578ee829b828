package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `geph-autotest - connectivity and throughput prober for geph4-client

Usage:
  geph-autotest [flags]

Credentials:
`)
		printFlagCategory([]string{"username", "password"})

		fmt.Fprintf(os.Stderr, "\nClient Binary:\n")
		printFlagCategory([]string{"binary", "http-listen", "socks5-listen", "stats-listen", "credential-cache"})

		fmt.Fprintf(os.Stderr, "\nTest Plan:\n")
		printFlagCategory([]string{"plan-url", "plan-file", "collector"})

		fmt.Fprintf(os.Stderr, "\nRespawn Policy:\n")
		printFlagCategory([]string{"retry-interval", "max-retries", "backoff-multiplier", "kill-timeout"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "stats-scrape-interval", "tui", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nDiagnostics:\n")
		printFlagCategory([]string{"print-cmd"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Probe with credentials on the command line
  geph-autotest -username prober -password secret

  # Prompt for credentials, use a local test plan
  geph-autotest -plan-file ./plan.toml

  # Cap respawns and back off exponentially on a flaky client
  geph-autotest -username prober -password secret -max-retries 20 -backoff-multiplier 1.7

`)
	}

	// Credentials (prompted interactively when absent)
	flag.StringVar(&cfg.Username, "username", cfg.Username, "Account username (prompted if empty)")
	flag.StringVar(&cfg.Password, "password", cfg.Password, "Account password (prompted if empty)")

	// Client binary
	flag.StringVar(&cfg.BinaryPath, "binary", cfg.BinaryPath, "Path to the geph4-client binary")
	flag.StringVar(&cfg.HTTPListen, "http-listen", cfg.HTTPListen, "Local HTTP proxy listen address")
	flag.StringVar(&cfg.Socks5Listen, "socks5-listen", cfg.Socks5Listen, "Local SOCKS5 proxy listen address")
	flag.StringVar(&cfg.StatsListen, "stats-listen", cfg.StatsListen, "Local stats listen address")
	flag.StringVar(&cfg.CredentialCache, "credential-cache", cfg.CredentialCache, "Credential cache path passed to the client")

	// Test plan
	flag.StringVar(&cfg.PlanURL, "plan-url", cfg.PlanURL, "Test plan URL, fetched through the tunnel each cycle")
	flag.StringVar(&cfg.PlanFile, "plan-file", cfg.PlanFile, "Local test plan file (overrides -plan-url)")
	flag.StringVar(&cfg.CollectorOverride, "collector", cfg.CollectorOverride, "Override the plan's collector URL")

	// Respawn policy
	flag.DurationVar(&cfg.RetryInterval, "retry-interval", cfg.RetryInterval, "Pause before respawning after a premature client exit")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Max spawn attempts per connect (0 = unlimited)")
	flag.Float64Var(&cfg.BackoffMultiplier, "backoff-multiplier", cfg.BackoffMultiplier, "Respawn delay multiplier (1.0 = fixed interval)")
	flag.DurationVar(&cfg.KillTimeout, "kill-timeout", cfg.KillTimeout, "SIGTERM grace period before SIGKILL")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")
	flag.DurationVar(&cfg.StatsScrapeInterval, "stats-scrape-interval", cfg.StatsScrapeInterval, "Interval for scraping the client's stats endpoint")
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging (includes relayed client stderr)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Diagnostics
	flag.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the connect command and exit")

	flag.Parse()

	return cfg, nil
}

// printFlagCategory prints the named flags in defined order.
func printFlagCategory(names []string) {
	for _, name := range names {
		f := flag.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "  -%-24s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" {
			fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(os.Stderr)
	}
}
