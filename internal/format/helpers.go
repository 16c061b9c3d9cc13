package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FmtValue formats a measured value compactly: plain notation for
// moderate magnitudes, scientific notation for fluxes and other extremes.
func FmtValue(v float64) string {
	if v == 0 {
		return "0"
	}
	a := math.Abs(v)
	if a >= 1e-3 && a < 1e5 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'e', 3, 64)
}

// FmtRange formats a value with its confidence bounds as "v [lo, hi]".
// Missing bounds (both zero) print the value alone.
func FmtRange(v, lo, hi float64) string {
	if lo == 0 && hi == 0 {
		return FmtValue(v)
	}
	return fmt.Sprintf("%s [%s, %s]", FmtValue(v), FmtValue(lo), FmtValue(hi))
}

// FmtDuration formats a duration as "Xm Ys" or "Ys".
func FmtDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// FmtSpan formats the time between two RFC 3339 timestamps, or "" when
// either is missing or unparsable.
func FmtSpan(start, end string) string {
	a, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return ""
	}
	b, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return ""
	}
	return FmtDuration(b.Sub(a))
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
