package stats

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestResultMarshalsDataOutcome(t *testing.T) {
	r := NewResult("us-hio-01.exits.geph.io", true, 1234*time.Millisecond)
	r.AddMeasurements("small-file", []Measurement{
		{DownloadTime: 310, Timestamp: 1756000000},
		{DownloadTime: 295, Timestamp: 1756000012},
	})
	r.AppendStderr([]string{"line one\n", "line two\n"})

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if doc["exit"] != "us-hio-01.exits.geph.io" || doc["is_plus"] != true {
		t.Errorf("identity fields wrong: %v", doc)
	}
	if doc["time_to_connect"] != float64(1234) {
		t.Errorf("time_to_connect = %v, want 1234", doc["time_to_connect"])
	}
	if doc["geph_stderr"] != "line one\nline two\n" {
		t.Errorf("geph_stderr = %q", doc["geph_stderr"])
	}

	de, ok := doc["data_error"].(map[string]any)
	if !ok {
		t.Fatalf("data_error = %T", doc["data_error"])
	}
	if _, ok := de["Data"]; !ok {
		t.Errorf("data outcome not tagged Data: %v", de)
	}
	if _, ok := de["Error"]; ok {
		t.Errorf("error tag present in data outcome: %v", de)
	}
}

func TestResultMarshalsErrorOutcome(t *testing.T) {
	r := NewResult("exit", false, time.Second)
	at := time.Unix(1756000099, 0)
	r.SetError("download http://x: connection reset", at)

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"Error":["download http://x: connection reset",1756000099]`) {
		t.Errorf("error outcome encoding wrong: %s", raw)
	}
}

func TestSetErrorKeepsFirst(t *testing.T) {
	r := NewResult("exit", false, time.Second)
	r.SetError("first", time.Unix(1, 0))
	r.SetError("second", time.Unix(2, 0))

	if r.DataError.Err.Message != "first" {
		t.Errorf("error = %q, want first", r.DataError.Err.Message)
	}
	if !r.Failed() {
		t.Error("Failed() = false after SetError")
	}
}

func TestAddMeasurementsIgnoredAfterError(t *testing.T) {
	r := NewResult("exit", false, time.Second)
	r.SetError("boom", time.Unix(1, 0))
	r.AddMeasurements("late", []Measurement{{DownloadTime: 1, Timestamp: 2}})

	raw, _ := json.Marshal(r)
	if strings.Contains(string(raw), "late") {
		t.Errorf("measurements recorded after error: %s", raw)
	}
}

func TestEmptyResultMarshalsEmptyData(t *testing.T) {
	r := NewResult("exit", false, 0)
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"Data":{}`) {
		t.Errorf("empty result encoding wrong: %s", raw)
	}
}
