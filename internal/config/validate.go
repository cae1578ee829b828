package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	if cfg.BinaryPath == "" {
		return fmt.Errorf("binary path must not be empty")
	}

	for _, addr := range []struct {
		name  string
		value string
	}{
		{"http-listen", cfg.HTTPListen},
		{"socks5-listen", cfg.Socks5Listen},
		{"stats-listen", cfg.StatsListen},
	} {
		if _, _, err := net.SplitHostPort(addr.value); err != nil {
			return fmt.Errorf("invalid %s address %q: %w", addr.name, addr.value, err)
		}
	}

	if cfg.PlanURL == "" && cfg.PlanFile == "" {
		return fmt.Errorf("either -plan-url or -plan-file is required")
	}
	if cfg.PlanURL != "" && !strings.HasPrefix(cfg.PlanURL, "http://") && !strings.HasPrefix(cfg.PlanURL, "https://") {
		return fmt.Errorf("plan URL %q must be http(s)", cfg.PlanURL)
	}

	if cfg.RetryInterval <= 0 {
		return fmt.Errorf("retry-interval must be positive, got %v", cfg.RetryInterval)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be >= 0, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff-multiplier must be >= 1.0, got %g", cfg.BackoffMultiplier)
	}
	if cfg.DownloadTimeout <= 0 {
		return fmt.Errorf("download-timeout must be positive, got %v", cfg.DownloadTimeout)
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log-format must be json or text, got %q", cfg.LogFormat)
	}

	return nil
}
