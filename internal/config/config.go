// Package config provides configuration management for geph-autotest.
package config

import "time"

// Config holds all configuration options for the prober.
type Config struct {
	// Credentials
	Username string `json:"username"`
	Password string `json:"-"`

	// Client binary
	BinaryPath      string `json:"binary_path"`
	HTTPListen      string `json:"http_listen"`
	Socks5Listen    string `json:"socks5_listen"`
	StatsListen     string `json:"stats_listen"`
	CredentialCache string `json:"credential_cache"`

	// Test plan
	PlanURL           string `json:"plan_url"`
	PlanFile          string `json:"plan_file"`
	CollectorOverride string `json:"collector_override"`

	// Respawn policy
	RetryInterval     time.Duration `json:"retry_interval"`
	MaxRetries        int           `json:"max_retries"` // 0 = unlimited
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	KillTimeout       time.Duration `json:"kill_timeout"`

	// Downloads
	DownloadTimeout time.Duration `json:"download_timeout"`

	// Observability
	MetricsAddr         string        `json:"metrics_addr"`
	StatsScrapeInterval time.Duration `json:"stats_scrape_interval"`
	TUIEnabled          bool          `json:"tui"`
	Verbose             bool          `json:"verbose"`
	LogFormat           string        `json:"log_format"` // json, text

	// Diagnostic modes
	PrintCmd bool `json:"print_cmd"`
}

// DefaultConfig returns a Config with the reference defaults.
func DefaultConfig() *Config {
	return &Config{
		// Client binary
		BinaryPath:      "geph4-client",
		HTTPListen:      "127.0.0.1:10910",
		Socks5Listen:    "127.0.0.1:10909",
		StatsListen:     "127.0.0.1:10809",
		CredentialCache: "/tmp/manual",

		// Test plan, fetched through the tunnel each cycle
		PlanURL: "https://raw.githubusercontent.com/cheekyelf/geph-autotest/main/config.toml",

		// Respawn policy: fixed 1s retry, unlimited attempts
		RetryInterval:     1 * time.Second,
		MaxRetries:        0,
		BackoffMultiplier: 1.0,
		KillTimeout:       5 * time.Second,

		// Downloads
		DownloadTimeout: 60 * time.Second,

		// Observability
		MetricsAddr:         "0.0.0.0:17092",
		StatsScrapeInterval: 2 * time.Second,
		TUIEnabled:          false,
		Verbose:             false,
		LogFormat:           "json",
	}
}
