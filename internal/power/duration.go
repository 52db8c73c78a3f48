package power

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders an elapsed duration as "N days, N hours,
// N minutes, N seconds" with zero-valued magnitudes omitted, e.g.
// 90065s -> "1 days, 1 hours, 1 minutes, 5 seconds" and
// 30s -> "30 seconds". A zero duration renders as "0 seconds".
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())

	days := secs / 86400
	rem := secs % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	magnitudes := []struct {
		n    int
		unit string
	}{
		{days, "days"},
		{hours, "hours"},
		{minutes, "minutes"},
		{seconds, "seconds"},
	}

	parts := make([]string, 0, len(magnitudes))
	for _, m := range magnitudes {
		if m.n != 0 {
			parts = append(parts, fmt.Sprintf("%d %s", m.n, m.unit))
		}
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
