package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "json", slog.LevelInfo)

	logger.Info("probe_started", "exit", "test-exit")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "probe_started" || entry["exit"] != "test-exit" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", slog.LevelInfo)

	logger.Info("probe_started")
	if !strings.Contains(buf.String(), "msg=probe_started") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "json", slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line emitted at info level: %s", buf.String())
	}
}

func TestStderrLoggerNonVerboseOnlyWarns(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStderrLogger(NewLoggerWithWriter(&buf, "json", slog.LevelDebug), false)

	sl.LogLine("[2026-08-25T10:00:00Z INFO geph4_client::main] tunnel established\n")
	if buf.Len() != 0 {
		t.Errorf("info line emitted in non-verbose mode: %s", buf.String())
	}

	sl.LogLine("[2026-08-25T10:00:01Z WARN geph4_client::tunman] reconnecting\n")
	if !strings.Contains(buf.String(), "reconnecting") {
		t.Error("warning line suppressed in non-verbose mode")
	}
}

func TestStderrLoggerSkipsEmptyLines(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStderrLogger(NewLoggerWithWriter(&buf, "json", slog.LevelDebug), true)

	sl.LogLine("\n")
	if buf.Len() != 0 {
		t.Errorf("empty line logged: %s", buf.String())
	}
}

func TestClassifyLine(t *testing.T) {
	cases := map[string]slog.Level{
		"[ERRR geph4] tunnel died":        slog.LevelError,
		"[WARN geph4] retrying":           slog.LevelWarn,
		"[INFO geph4] TUNNEL_MANAGER ...": slog.LevelInfo,
		"raw sosistab chatter":            slog.LevelDebug,
	}
	for line, want := range cases {
		if got := classifyLine(line); got != want {
			t.Errorf("classifyLine(%q) = %v, want %v", line, got, want)
		}
	}
}
