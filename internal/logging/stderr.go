package logging

import (
	"log/slog"
	"strings"
)

// MaxLineLength is the maximum length of a relayed stderr line before
// truncation in logs. The full line still goes into the uploaded record.
const MaxLineLength = 4096

// StderrLogger logs relayed client stderr lines at a level inferred from
// their content. The client's env_logger output is prefixed with a level
// token ("ERRR", "WARN", "INFO", "DBUG"), which maps cleanly; anything
// unrecognized is debug noise from the tunnel internals.
type StderrLogger struct {
	logger  *slog.Logger
	verbose bool
}

// NewStderrLogger creates a logger for relayed stderr lines.
func NewStderrLogger(logger *slog.Logger, verbose bool) *StderrLogger {
	return &StderrLogger{
		logger:  logger,
		verbose: verbose,
	}
}

// LogLine logs a single relayed line. In non-verbose mode only warnings
// and errors are emitted.
func (s *StderrLogger) LogLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	level := classifyLine(line)
	if !s.verbose && level < slog.LevelWarn {
		return
	}
	s.logger.Log(nil, level, "client_stderr", "line", line)
}

// classifyLine determines the log level for a client stderr line.
func classifyLine(line string) slog.Level {
	switch {
	case strings.Contains(line, "ERRR") || strings.Contains(line, "[ERROR]"):
		return slog.LevelError
	case strings.Contains(line, "WARN"):
		return slog.LevelWarn
	case strings.Contains(line, "INFO"):
		return slog.LevelInfo
	default:
		// sosistab session chatter, backtraces, raw panic lines
		return slog.LevelDebug
	}
}
