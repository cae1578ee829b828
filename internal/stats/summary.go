package stats

import (
	"fmt"
	"strings"
	"time"
)

// FormatExitSummary formats the run aggregates for display at exit.
func FormatExitSummary(s Snapshot) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════\n")
	b.WriteString("                     geph-autotest Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(&b, "Run Duration:        %s\n", FormatDuration(s.Elapsed))
	fmt.Fprintf(&b, "Connect Cycles:      %d (%d with download errors)\n", s.Cycles, s.FailedCycles)
	fmt.Fprintf(&b, "Spawn Retries:       %d\n", s.SpawnRetries)
	if s.LastExit != "" {
		fmt.Fprintf(&b, "Last Exit:           %s\n", s.LastExit)
	}
	b.WriteString("\n")

	if s.Cycles > 0 {
		b.WriteString("Connect Time\n")
		fmt.Fprintf(&b, "  last: %-10s p50: %-10s p95: %s\n\n",
			FormatDuration(s.LastConnect),
			FormatDuration(s.ConnectP50),
			FormatDuration(s.ConnectP95),
		)
	}

	if s.Downloads > 0 {
		b.WriteString("Downloads\n")
		fmt.Fprintf(&b, "  total: %d   failed: %d\n", s.Downloads, s.DownloadFails)
		fmt.Fprintf(&b, "  p50: %-10s p95: %-10s p99: %s\n\n",
			FormatDuration(s.DownloadP50),
			FormatDuration(s.DownloadP95),
			FormatDuration(s.DownloadP99),
		)
	}

	fmt.Fprintf(&b, "Uploads:             %d ok, %d failed\n", s.Uploads, s.UploadFails)
	fmt.Fprintf(&b, "Relayed Stderr:      %d lines\n", s.RelayLines)
	b.WriteString("\n")

	return b.String()
}

// FormatDuration renders a duration with sensible precision for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
