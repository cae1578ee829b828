package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const samplePlan = `
collector = "https://collector.example.com/submit"
global_interval = 600

[endpoints.small-file]
url = "https://speed.example.com/1MB.bin"
iterations = 5
interval = 10

[endpoints.large-file]
url = "https://speed.example.com/100MB.bin"
iterations = 1
interval = 0
`

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Socks5Listen = "not-an-address"
	if err := Validate(cfg); err == nil {
		t.Error("bad socks5-listen accepted")
	}
}

func TestValidateRejectsMissingPlanSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlanURL = ""
	cfg.PlanFile = ""
	if err := Validate(cfg); err == nil {
		t.Error("config with no plan source accepted")
	}
}

func TestValidateRejectsBadRetrySettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryInterval = 0
	if err := Validate(cfg); err == nil {
		t.Error("zero retry-interval accepted")
	}

	cfg = DefaultConfig()
	cfg.BackoffMultiplier = 0.5
	if err := Validate(cfg); err == nil {
		t.Error("shrinking backoff accepted")
	}

	cfg = DefaultConfig()
	cfg.MaxRetries = -1
	if err := Validate(cfg); err == nil {
		t.Error("negative max-retries accepted")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "yaml"
	if err := Validate(cfg); err == nil {
		t.Error("bad log-format accepted")
	}
}

func TestParsePlan(t *testing.T) {
	plan, err := parsePlan([]byte(samplePlan))
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}

	if plan.Collector != "https://collector.example.com/submit" {
		t.Errorf("collector = %q", plan.Collector)
	}
	if plan.GlobalInterval != 600 {
		t.Errorf("global_interval = %d, want 600", plan.GlobalInterval)
	}
	if len(plan.Endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(plan.Endpoints))
	}
	small := plan.Endpoints["small-file"]
	if small.URL != "https://speed.example.com/1MB.bin" || small.Iterations != 5 || small.Interval != 10 {
		t.Errorf("small-file descriptor = %+v", small)
	}
}

func TestParsePlanRejectsMissingCollector(t *testing.T) {
	doc := strings.Replace(samplePlan, `collector = "https://collector.example.com/submit"`, "", 1)
	if _, err := parsePlan([]byte(doc)); err == nil {
		t.Error("plan without collector accepted")
	}
}

func TestParsePlanRejectsZeroIterations(t *testing.T) {
	doc := strings.Replace(samplePlan, "iterations = 5", "iterations = 0", 1)
	if _, err := parsePlan([]byte(doc)); err == nil {
		t.Error("zero iterations accepted")
	}
}

func TestParsePlanRejectsBadTOML(t *testing.T) {
	if _, err := parsePlan([]byte("collector = [unclosed")); err == nil {
		t.Error("malformed TOML accepted")
	}
}

func TestFetchPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePlan))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	plan, err := FetchPlan(ctx, srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPlan: %v", err)
	}
	if plan.Collector == "" || len(plan.Endpoints) != 2 {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestFetchPlanNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := FetchPlan(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("404 plan fetch succeeded")
	}
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.toml")
	if err := os.WriteFile(path, []byte(samplePlan), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := LoadPlanFile(path)
	if err != nil {
		t.Fatalf("LoadPlanFile: %v", err)
	}
	if len(plan.Endpoints) != 2 {
		t.Errorf("endpoints = %d, want 2", len(plan.Endpoints))
	}
}
