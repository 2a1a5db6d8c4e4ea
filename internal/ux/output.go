// Package ux is the human-facing terminal channel: colors, headers, and the
// download progress display. Diagnostic logs go through zap instead.
package ux

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// ColorEnabled reports whether output decoration is active.
func ColorEnabled() bool { return colorEnabled }

// DisableColor turns off output decoration for the rest of the process.
func DisableColor() { colorEnabled = false }

// Paint wraps s in an ANSI code when colors are enabled.
func Paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + Reset
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// Header prints a timestamped section banner.
func Header(title string) {
	fmt.Printf("\n%s %s\n", Paint(Dim, "["+timestamp()+"]"), Paint(Bold+Cyan, "══ "+title+" ══"))
}

// Successf prints a green checkmark line.
func Successf(format string, args ...any) {
	fmt.Printf("%s %s\n", Paint(Green, "✓"), fmt.Sprintf(format, args...))
}

// Warnf prints a yellow warning line.
func Warnf(format string, args ...any) {
	fmt.Printf("%s %s\n", Paint(Yellow, "!"), fmt.Sprintf(format, args...))
}

// Failf prints a red failure line.
func Failf(format string, args ...any) {
	fmt.Printf("%s %s\n", Paint(Red, "✗"), fmt.Sprintf(format, args...))
}

// Infof prints a dim informational line.
func Infof(format string, args ...any) {
	fmt.Printf("  %s\n", Paint(Dim, fmt.Sprintf(format, args...)))
}

// KV prints aligned key/value pairs.
func KV(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		fmt.Printf("  %s  %s\n", Paint(Bold, fmt.Sprintf("%-*s", width, p[0])), p[1])
	}
}

// Bytes renders a byte count in binary units.
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ShortDuration renders a duration as 3m05s / 1h02m / 12s.
func ShortDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ProgressLine formats a one-line transfer status for a named job.
func ProgressLine(name string, done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%-40s %10s", truncate(name, 40), Bytes(done))
	}
	pct := done * 100 / total
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%-40s %10s / %-10s %3d%%", truncate(name, 40), Bytes(done), Bytes(total), pct)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
