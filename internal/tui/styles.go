// Package tui provides a live terminal dashboard for the prober.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It displays the current cycle status, connect times, download
// results per test, upload counts, tunnel byte counters and a tail of
// recent log lines.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Styles
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder).
				MarginTop(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueGoodStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusOK = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	logLineStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// =============================================================================
// Helper Functions
// =============================================================================

// renderKeyValue renders a label-value pair in the dashboard's two-column
// layout.
func renderKeyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// renderConnectedBadge renders the tunnel-state indicator.
func renderConnectedBadge(connected bool) string {
	if connected {
		return statusOK.Render("● connected")
	}
	return statusWarning.Render("○ not connected")
}

// renderCounterPair renders "ok/failed" with the failure count colored
// when nonzero.
func renderCounterPair(ok, failed int64) string {
	okPart := valueGoodStyle.Render(fmt.Sprintf("%d ok", ok))
	if failed == 0 {
		return okPart
	}
	return okPart + valueStyle.Render(" / ") + valueBadStyle.Render(fmt.Sprintf("%d failed", failed))
}
