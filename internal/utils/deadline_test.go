// internal/utils/deadline_test.go
package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateDeadline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("before deadline", func(t *testing.T) {
		cd := EvaluateDeadline(now.Add(48*time.Hour), now)
		assert.False(t, cd.IsExpired)
		assert.Equal(t, (48 * time.Hour).Milliseconds(), cd.RemainingMS)
	})

	t.Run("exactly at deadline", func(t *testing.T) {
		cd := EvaluateDeadline(now, now)
		assert.True(t, cd.IsExpired)
		assert.Equal(t, int64(0), cd.RemainingMS)
	})

	t.Run("past deadline", func(t *testing.T) {
		cd := EvaluateDeadline(now.Add(-2*time.Hour), now)
		assert.True(t, cd.IsExpired)
		assert.Equal(t, (-2 * time.Hour).Milliseconds(), cd.RemainingMS)
	})
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		name     string
		cd       Countdown
		expected string
	}{
		{"counts down", Countdown{RemainingMS: (23*time.Hour + 10*time.Minute).Milliseconds()}, "23h 10m remaining"},
		{"counts up after expiry", Countdown{RemainingMS: -(2*time.Hour + 5*time.Minute).Milliseconds(), IsExpired: true}, "2h 05m overdue"},
		{"under a minute left", Countdown{RemainingMS: 30_000}, "less than a minute remaining"},
		{"just past the deadline", Countdown{RemainingMS: -30_000, IsExpired: true}, "just expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCountdown(tt.cd))
		})
	}
}
