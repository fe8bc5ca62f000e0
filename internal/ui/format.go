package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bamsammich/xcp/internal/stats"
)

// Speed returns quantity per second over elapsed. The branch is picked so the
// intermediate product cannot overflow for any elapsed magnitude; an
// unrepresentable case yields 0.
func Speed(quantity uint64, elapsed time.Duration) uint64 {
	switch {
	case elapsed > time.Second:
		return quantity / uint64(elapsed/time.Second)
	case elapsed > time.Microsecond && quantity < math.MaxUint64/1000:
		return quantity * 1000 / uint64(elapsed.Microseconds())
	case elapsed > time.Millisecond && quantity < math.MaxUint64/1_000_000:
		return quantity * 1_000_000 / uint64(elapsed.Milliseconds())
	case elapsed > time.Nanosecond && quantity < math.MaxUint64/1_000_000_000:
		return quantity * 1_000_000_000 / uint64(elapsed.Nanoseconds())
	default:
		return 0
	}
}

// FormatSpeed renders Speed as a human-readable byte count (callers append "/s").
func FormatSpeed(quantity uint64, elapsed time.Duration) string {
	return stats.FormatBytes(Speed(quantity, elapsed))
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b uint64) string {
	return stats.FormatBytes(b)
}

// FormatETA formats a duration as a human-readable ETA string.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return FormatDuration(d)
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ProgressBar renders a progress bar of the given width using ▪/□ characters.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = math.Max(0, math.Min(1, pct))
	filled := int(pct * float64(width))
	return strings.Repeat("▪", filled) + strings.Repeat("□", width-filled)
}

// SummaryLine is the single line printed once the run ends.
// Format: copied 3 files (60 B) in 2s 30 B/s
func SummaryLine(sum stats.Summary) string {
	return fmt.Sprintf("copied %d files (%s) in %s %s/s",
		sum.FilesTotal,
		FormatBytes(sum.BytesTotal),
		FormatDuration(sum.Elapsed),
		FormatSpeed(sum.BytesTotal, sum.Elapsed),
	)
}
