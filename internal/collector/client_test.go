package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cheekyelf/geph-autotest/internal/stats"
)

func TestUploadPostsJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	result := stats.NewResult("exit-x", false, 900*time.Millisecond)
	result.AddMeasurements("t", []stats.Measurement{{DownloadTime: 120, Timestamp: 1756000000}})

	c := NewWithHTTPClient(srv.Client())
	if err := c.Upload(context.Background(), srv.URL, result); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	var doc map[string]any
	if err := json.Unmarshal(gotBody, &doc); err != nil {
		t.Fatalf("uploaded body is not JSON: %v", err)
	}
	if doc["exit"] != "exit-x" {
		t.Errorf("uploaded record wrong: %v", doc)
	}
}

func TestUploadRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.Client())
	err := c.Upload(context.Background(), srv.URL, stats.NewResult("e", false, 0))
	if err == nil {
		t.Error("507 upload reported success")
	}
}

func TestUploadUnreachableCollector(t *testing.T) {
	c := New(time.Second)
	err := c.Upload(context.Background(), "http://127.0.0.1:1/submit", stats.NewResult("e", false, 0))
	if err == nil {
		t.Error("unreachable collector reported success")
	}
}
