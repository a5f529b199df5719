// Package output provides terminal output utilities for pixelci.
//
// This package includes:
//   - Table rendering for runs, build legs, interpretation summaries and calibrations
//   - Progress bars for long-running operations
//   - Spinners for indeterminate operations
//   - Human-readable formatting for sizes, durations and dates
//
// All table rendering functions use ASCII characters and ANSI color codes for terminal output.
// Progress indicators are thread-safe and can be used from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/quarklab/pixelci/internal/ci"
	"github.com/quarklab/pixelci/internal/interpreter"
	"github.com/quarklab/pixelci/internal/store"
)

// ANSI color codes for pass/fail display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderLegTable renders the expanded matrix of a configuration.
func RenderLegTable(legs []ci.Leg) string {
	if len(legs) == 0 {
		return "No build legs.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-10s %s\n", "Leg", "Platform", "Environment"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, leg := range legs {
		sb.WriteString(fmt.Sprintf("%-5d %-10s %s\n",
			leg.Index,
			leg.Platform,
			formatEnv(leg.Env)))
	}

	return sb.String()
}

// RenderRunResult renders the outcome of a run, one line per leg plus a
// verdict line.
func RenderRunResult(run ci.RunResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-28s %-10s %-8s %s\n",
		"Leg", "Name", "Duration", "Exit", "Status"))
	sb.WriteString(strings.Repeat("─", 68))
	sb.WriteString("\n")

	for _, leg := range run.Legs {
		status := colorize(colorGreen, "pass")
		if leg.Failed() {
			status = colorize(colorRed, "FAIL")
		}
		sb.WriteString(fmt.Sprintf("%-5d %-28s %-10s %-8d %s\n",
			leg.Leg.Index,
			truncate(leg.Leg.Name(), 28),
			formatDuration(leg.Duration),
			leg.ExitCode,
			status))
	}

	sb.WriteString("\n")
	if run.Failed() {
		sb.WriteString(colorize(colorRed, fmt.Sprintf("Run failed (exit %d)", run.ExitCode())))
	} else {
		sb.WriteString(colorize(colorGreen, "Run passed"))
	}
	sb.WriteString(fmt.Sprintf(" in %s\n", formatDuration(run.Duration)))

	return sb.String()
}

// RenderRunHistory renders recorded runs, newest first.
func RenderRunHistory(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No recorded runs.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-24s %-13s %-10s %-6s %s\n",
		"ID", "Config", "Started", "Duration", "Legs", "Status"))
	sb.WriteString(strings.Repeat("─", 76))
	sb.WriteString("\n")

	for _, run := range runs {
		status := colorize(colorGreen, "pass")
		if run.ExitCode != 0 {
			status = colorize(colorRed, fmt.Sprintf("FAIL (%d)", run.ExitCode))
		}
		sb.WriteString(fmt.Sprintf("%-5d %-24s %-13s %-10s %-6d %s\n",
			run.ID,
			truncate(run.ConfigPath, 24),
			formatRelativeTime(run.StartedAt),
			formatDuration(run.Duration),
			run.LegCount,
			status))
	}

	return sb.String()
}

// RenderInterpretSummary renders word and event counters for an
// interpreted raw data file.
func RenderInterpretSummary(source string, sizeBytes int64, c interpreter.Counters, hitCount int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Source: %s (%s)\n\n", source, formatSize(sizeBytes)))
	sb.WriteString(fmt.Sprintf("%-18s %s\n", "Counter", "Count"))
	sb.WriteString(strings.Repeat("─", 32))
	sb.WriteString("\n")

	rows := []struct {
		name  string
		count int64
	}{
		{"words", c.Words},
		{"trigger words", c.TriggerWords},
		{"data headers", c.DataHeaders},
		{"data records", c.DataRecords},
		{"service records", c.ServiceRecords},
		{"address records", c.AddressRecords},
		{"value records", c.ValueRecords},
		{"unknown words", c.UnknownWords},
		{"events", c.Events},
		{"hits", int64(hitCount)},
	}
	for _, row := range rows {
		name := row.name
		if name == "unknown words" && row.count > 0 {
			name = colorize(colorYellow, name)
		}
		sb.WriteString(fmt.Sprintf("%-18s %d\n", name, row.count))
	}

	return sb.String()
}

// RenderScanHistory renders recorded scans, newest first.
func RenderScanHistory(scans []*store.Scan) string {
	if len(scans) == 0 {
		return "No recorded scans.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-28s %-13s %-10s %-8s %-8s %s\n",
		"ID", "Source", "Taken", "Words", "Events", "Hits", "Errors"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, scan := range scans {
		errStr := fmt.Sprintf("%d", scan.ErrorCount)
		if scan.ErrorCount > 0 {
			errStr = colorize(colorYellow, errStr)
		}
		sb.WriteString(fmt.Sprintf("%-5d %-28s %-13s %-10d %-8d %-8d %s\n",
			scan.ID,
			truncate(scan.Source, 28),
			formatRelativeTime(scan.TakenAt),
			scan.WordCount,
			scan.EventCount,
			scan.HitCount,
			errStr))
	}

	return sb.String()
}

// RenderCalibration renders a calibration fit with its points.
func RenderCalibration(result *store.CalibrationResult, points []store.CalibrationPoint) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Calibration #%d (%s)\n",
		result.ID, formatRelativeTime(result.CreatedAt)))
	sb.WriteString(fmt.Sprintf("  slope      %.6f ToT/DAC\n", result.Slope))
	sb.WriteString(fmt.Sprintf("  intercept  %.6f ToT\n", result.Intercept))
	sb.WriteString(fmt.Sprintf("  r²         %.6f\n", result.RSquared))
	sb.WriteString(fmt.Sprintf("  fit range  [%d, %d]\n", result.FitLow, result.FitHigh))

	if len(points) == 0 {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("\n%-8s %-10s %-10s %s\n", "PlsrDAC", "Mean ToT", "Std ToT", "Hits"))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")

	sorted := make([]store.CalibrationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PlsrDAC < sorted[j].PlsrDAC })

	for _, p := range sorted {
		sb.WriteString(fmt.Sprintf("%-8d %-10.3f %-10.3f %d\n",
			p.PlsrDAC, p.MeanTot, p.StdTot, p.HitCount))
	}

	return sb.String()
}

// RenderOccupancySummary renders one line per scan-parameter plane.
func RenderOccupancySummary(totals []int64, occupied []int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-12s %s\n", "Plane", "Hits", "Occupied Pixels"))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")
	for i := range totals {
		occ := 0
		if i < len(occupied) {
			occ = occupied[i]
		}
		sb.WriteString(fmt.Sprintf("%-8d %-12d %d\n", i, totals[i], occ))
	}
	return sb.String()
}

// formatEnv renders an environment map as sorted KEY=value pairs.
func formatEnv(env map[string]string) string {
	if len(env) == 0 {
		return "—"
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return strings.Join(parts, " ")
}

// formatDuration renders a duration compactly (ms under a second,
// tenths of seconds under a minute, minutes and seconds above).
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		mins := int(d.Minutes())
		secs := int(d.Seconds()) - mins*60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
}

// formatSize converts bytes to human-readable size (GB, MB, KB).
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
