// internal/utils/deadline.go
package utils

import (
	"fmt"
	"time"
)

// Countdown describes how a pickup deadline relates to the current time.
// RemainingMS is negative once the deadline has passed.
type Countdown struct {
	RemainingMS int64 `json:"remaining_ms"`
	IsExpired   bool  `json:"is_expired"`
}

// EvaluateDeadline compares a deadline against now. Pure; safe to call on
// every read.
func EvaluateDeadline(deadline, now time.Time) Countdown {
	remaining := deadline.Sub(now)
	return Countdown{
		RemainingMS: remaining.Milliseconds(),
		IsExpired:   remaining <= 0,
	}
}

// FormatCountdown renders a countdown for display. Before the deadline it
// counts down ("23h 10m remaining"); after, it counts up ("2h 05m overdue").
func FormatCountdown(cd Countdown) string {
	ms := cd.RemainingMS
	suffix := "remaining"
	if ms < 0 {
		ms = -ms
		suffix = "overdue"
	}

	d := time.Duration(ms) * time.Millisecond
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours == 0 && minutes == 0 {
		if suffix == "remaining" {
			return "less than a minute remaining"
		}
		return "just expired"
	}

	return fmt.Sprintf("%dh %02dm %s", hours, minutes, suffix)
}
