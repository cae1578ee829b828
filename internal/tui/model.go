package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheekyelf/geph-autotest/internal/metrics"
	"github.com/cheekyelf/geph-autotest/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to refresh the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Sources
// =============================================================================

// SnapshotSource provides the run-level aggregates. Satisfied by
// *stats.Tracker.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// TunnelSource provides the latest tunnel stats scrape. Satisfied by
// *metrics.TunnelScraper. Optional.
type TunnelSource interface {
	Current() *metrics.TunnelStats
}

// =============================================================================
// Log Feed
// =============================================================================

// Feed is a bounded ring of recent log lines. The logger writes into it,
// the dashboard shows the tail. Writes never block and never fail.
type Feed struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewFeed creates a feed keeping at most max lines.
func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 100
	}
	return &Feed{max: max}
}

// Write implements io.Writer so the Feed can be a slog output.
func (f *Feed) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		f.lines = append(f.lines, line)
	}
	if len(f.lines) > f.max {
		f.lines = f.lines[len(f.lines)-f.max:]
	}
	return len(p), nil
}

// Tail returns up to n of the most recent lines, oldest first.
func (f *Feed) Tail(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.lines) {
		n = len(f.lines)
	}
	out := make([]string, n)
	copy(out, f.lines[len(f.lines)-n:])
	return out
}

// =============================================================================
// Model
// =============================================================================

// Model is the dashboard state.
type Model struct {
	// Configuration
	version     string
	binaryPath  string
	metricsAddr string

	// Sources
	snapshotSource SnapshotSource
	tunnelSource   TunnelSource
	feed           *Feed

	// Current state
	snapshot   stats.Snapshot
	tunnel     *metrics.TunnelStats
	lastUpdate time.Time

	// Display
	width  int
	height int

	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Version     string
	BinaryPath  string
	MetricsAddr string

	SnapshotSource SnapshotSource
	TunnelSource   TunnelSource
	Feed           *Feed
}

// New creates a new dashboard model.
func New(cfg Config) Model {
	return Model{
		version:        cfg.Version,
		binaryPath:     cfg.BinaryPath,
		metricsAddr:    cfg.MetricsAddr,
		snapshotSource: cfg.SnapshotSource,
		tunnelSource:   cfg.TunnelSource,
		feed:           cfg.Feed,
		lastUpdate:     time.Now(),
		width:          80,
		height:         24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.snapshotSource != nil {
			m.snapshot = m.snapshotSource.Snapshot()
		}
		if m.tunnelSource != nil {
			m.tunnel = m.tunnelSource.Current()
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// tickCmd returns a command that sends a tick after one second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendQuit asks a running program to exit.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMs formats a duration as milliseconds.
func formatMs(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%d ms", d.Milliseconds())
}

// formatBytes formats bytes with KB/MB/GB suffixes.
func formatBytes(n float64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.2f GB", n/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.2f MB", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.2f KB", n/1_000)
	default:
		return fmt.Sprintf("%.0f B", n)
	}
}
