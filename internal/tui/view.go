package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// logTailLines is how many recent log lines the dashboard shows.
const logTailLines = 6

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
		m.renderConnect(),
		m.renderDownloads(),
		m.renderUploads(),
	}
	if m.tunnel != nil {
		sections = append(sections, m.renderTunnel())
	}
	if m.feed != nil {
		sections = append(sections, m.renderLogTail())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Sections
// =============================================================================

func (m Model) renderHeader() string {
	title := "geph-autotest"
	if m.version != "" {
		title += " " + m.version
	}
	return headerStyle.Render(title)
}

func (m Model) renderStatus() string {
	s := m.snapshot
	status := s.Status
	if status == "" {
		status = "starting"
	}

	connected := m.tunnel != nil && m.tunnel.Healthy
	return lipgloss.JoinVertical(lipgloss.Left,
		renderKeyValue("Status", status),
		renderKeyValue("Elapsed", formatDuration(s.Elapsed)),
		renderKeyValue("Tunnel", renderConnectedBadge(connected)),
	)
}

func (m Model) renderConnect() string {
	s := m.snapshot

	rows := []string{
		sectionHeaderStyle.Render("Connect"),
		renderKeyValue("Cycles", renderCounterPair(int64(s.Cycles), int64(s.FailedCycles))),
		renderKeyValue("Spawn retries", fmt.Sprintf("%d", s.SpawnRetries)),
	}
	if s.LastExit != "" {
		rows = append(rows,
			renderKeyValue("Last exit", s.LastExit),
			renderKeyValue("Last connect", formatMs(s.LastConnect)),
			renderKeyValue("Connect p50/p95",
				formatMs(s.ConnectP50)+" / "+formatMs(s.ConnectP95)),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderDownloads() string {
	s := m.snapshot

	rows := []string{
		sectionHeaderStyle.Render("Downloads"),
		renderKeyValue("Total", renderCounterPair(s.Downloads, s.DownloadFails)),
	}
	if s.Downloads > 0 {
		rows = append(rows, renderKeyValue("p50/p95/p99",
			formatMs(s.DownloadP50)+" / "+formatMs(s.DownloadP95)+" / "+formatMs(s.DownloadP99)))
	}

	// Per-test last measurements, sorted for a stable layout.
	names := make([]string, 0, len(s.LastPerTest))
	for name := range s.LastPerTest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, renderKeyValue("  "+name, formatMs(s.LastPerTest[name])))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderUploads() string {
	s := m.snapshot
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Collector"),
		renderKeyValue("Uploads", renderCounterPair(int64(s.Uploads), int64(s.UploadFails))),
		renderKeyValue("Stderr lines", fmt.Sprintf("%d", s.RelayLines)),
	)
}

func (m Model) renderTunnel() string {
	t := m.tunnel
	rows := []string{sectionHeaderStyle.Render("Tunnel")}
	if t.Healthy {
		rows = append(rows,
			renderKeyValue("Down", formatBytes(t.BytesDown)),
			renderKeyValue("Up", formatBytes(t.BytesUp)),
		)
	} else {
		rows = append(rows, renderKeyValue("Stats", "unavailable"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderLogTail() string {
	rows := []string{sectionHeaderStyle.Render("Log")}
	for _, line := range m.feed.Tail(logTailLines) {
		if m.width > 4 && len(line) > m.width-2 {
			line = line[:m.width-2]
		}
		rows = append(rows, logLineStyle.Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderFooter() string {
	parts := []string{"q: quit"}
	if m.metricsAddr != "" {
		parts = append(parts, "metrics: "+m.metricsAddr)
	}
	return footerStyle.Render(strings.Join(parts, "  •  "))
}
