package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/BurntSushi/toml"
)

// TestPlan is the remote TOML document describing what to probe. It is
// fetched through the tunnel each cycle so the plan itself exercises the
// proxy, and so plan updates take effect without redeploying probers.
type TestPlan struct {
	// Collector is where result records are POSTed.
	Collector string `toml:"collector"`

	// GlobalInterval is the average number of seconds to wait between
	// cycles (actual waits are uniform on [0, 2*GlobalInterval]).
	GlobalInterval int64 `toml:"global_interval"`

	// Endpoints maps test names to their download descriptors.
	Endpoints map[string]TestDescriptor `toml:"endpoints"`
}

// TestDescriptor describes one named download test.
type TestDescriptor struct {
	// URL is the file to download through the tunnel.
	URL string `toml:"url"`

	// Iterations is how many times to download it per cycle.
	Iterations int `toml:"iterations"`

	// Interval is the average number of seconds to wait after each
	// download (uniform on [0, 2*Interval]).
	Interval int64 `toml:"interval"`
}

// FetchPlan downloads and parses the test plan. The client must already
// be configured to go through the tunnel proxy.
func FetchPlan(ctx context.Context, client *http.Client, url string) (*TestPlan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch plan: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read plan body: %w", err)
	}

	return parsePlan(body)
}

// LoadPlanFile reads a test plan from a local file.
func LoadPlanFile(path string) (*TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return parsePlan(data)
}

func parsePlan(data []byte) (*TestPlan, error) {
	var plan TestPlan
	if err := toml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("cannot parse TOML plan: %w", err)
	}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *TestPlan) validate() error {
	if p.Collector == "" {
		return fmt.Errorf("plan is missing collector URL")
	}
	if p.GlobalInterval < 0 {
		return fmt.Errorf("plan global_interval must be >= 0, got %d", p.GlobalInterval)
	}
	for name, td := range p.Endpoints {
		if td.URL == "" {
			return fmt.Errorf("endpoint %q is missing url", name)
		}
		if td.Iterations <= 0 {
			return fmt.Errorf("endpoint %q iterations must be positive, got %d", name, td.Iterations)
		}
		if td.Interval < 0 {
			return fmt.Errorf("endpoint %q interval must be >= 0, got %d", name, td.Interval)
		}
	}
	return nil
}
