// Package stats provides the per-cycle result record and run-level
// aggregates for geph-autotest.
package stats

import (
	"encoding/json"
	"strings"
	"time"
)

// Measurement is one timed download.
type Measurement struct {
	// DownloadTime is the wall time of the download in milliseconds.
	DownloadTime int64 `json:"download_time"`

	// Timestamp is the unix time the download finished.
	Timestamp int64 `json:"timestamp"`
}

// TestError records the first download failure of a cycle.
type TestError struct {
	Message   string
	Timestamp int64
}

// DataOrError holds either the per-test measurement vectors or the error
// that aborted the cycle's tests. It serializes in the collector's
// expected shape: {"Data": {...}} or {"Error": ["msg", ts]}.
type DataOrError struct {
	Data map[string][]Measurement
	Err  *TestError
}

// MarshalJSON implements the collector's tagged-union encoding.
func (d DataOrError) MarshalJSON() ([]byte, error) {
	if d.Err != nil {
		return json.Marshal(map[string]any{
			"Error": []any{d.Err.Message, d.Err.Timestamp},
		})
	}
	data := d.Data
	if data == nil {
		data = map[string][]Measurement{}
	}
	return json.Marshal(map[string]any{"Data": data})
}

// Result is the aggregate record for one connect cycle, uploaded to the
// collector as a single JSON document.
type Result struct {
	Exit          string      `json:"exit"`
	IsPlus        bool        `json:"is_plus"`
	TimeToConnect int64       `json:"time_to_connect"` // milliseconds
	DataError     DataOrError `json:"data_error"`
	GephStderr    string      `json:"geph_stderr"`
}

// NewResult creates a Result for a fresh cycle.
func NewResult(exit string, plus bool, connectTime time.Duration) *Result {
	return &Result{
		Exit:          exit,
		IsPlus:        plus,
		TimeToConnect: connectTime.Milliseconds(),
		DataError: DataOrError{
			Data: map[string][]Measurement{},
		},
	}
}

// AddMeasurements records a completed test group. No-op once an error
// outcome has been set.
func (r *Result) AddMeasurements(name string, ms []Measurement) {
	if r.DataError.Err != nil {
		return
	}
	r.DataError.Data[name] = ms
}

// SetError switches the record to its error outcome. Only the first
// error is kept; the cycle stops running tests after it anyway.
func (r *Result) SetError(message string, at time.Time) {
	if r.DataError.Err != nil {
		return
	}
	r.DataError.Err = &TestError{
		Message:   message,
		Timestamp: at.Unix(),
	}
}

// Failed reports whether the cycle recorded an error outcome.
func (r *Result) Failed() bool {
	return r.DataError.Err != nil
}

// AppendStderr attaches relayed client stderr lines to the record.
func (r *Result) AppendStderr(lines []string) {
	if len(lines) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(r.GephStderr)
	for _, line := range lines {
		b.WriteString(line)
	}
	r.GephStderr = b.String()
}
