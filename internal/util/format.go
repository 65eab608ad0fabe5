// Package util holds small formatting helpers shared by the command-line tools.
package util //nolint:revive // package name util is kept short for CLI helpers

import "time"

// FormatElapsed renders how long a job has been (or was) in flight.
// Returns "-" for zero or negative durations and rounds to milliseconds above that.
func FormatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// JobElapsed returns the in-flight time of a job: up to now while it is running,
// up to its last update once it has finished.
func JobElapsed(created, updated time.Time, running bool, now time.Time) time.Duration {
	if created.IsZero() {
		return 0
	}
	if running {
		return now.Sub(created)
	}
	return updated.Sub(created)
}
