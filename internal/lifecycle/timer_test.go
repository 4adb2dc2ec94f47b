package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatElapsed(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{59 * time.Second, "00:00:59"},
		{time.Minute, "00:01:00"},
		{90 * time.Minute, "01:30:00"},
		{25*time.Hour + 4*time.Minute + 5*time.Second, "25:04:05"},
	}
	for _, tt := range tests {
		got := FormatElapsed(base, base.Add(tt.elapsed))
		assert.Equal(t, tt.want, got)
	}

	// A start time in the future clamps to zero.
	assert.Equal(t, "00:00:00", FormatElapsed(base.Add(time.Hour), base))
}

func TestFormatSetupDuration(t *testing.T) {
	assert.Equal(t, "0 hours 0 minutes", FormatSetupDuration(0))
	assert.Equal(t, "0 hours 45 minutes", FormatSetupDuration(45))
	assert.Equal(t, "2 hours 15 minutes", FormatSetupDuration(135))
}

func TestTimerSingleInstance(t *testing.T) {
	timer := NewSessionTimer()
	assert.False(t, timer.Running())
	assert.Equal(t, "00:00:00", timer.Elapsed())

	timer.Start(time.Now().Add(-time.Hour))
	assert.True(t, timer.Running())
	assert.Equal(t, "01:00:00", timer.Elapsed())

	// Starting again replaces the previous timer rather than stacking.
	timer.Start(time.Now().Add(-2 * time.Minute))
	assert.True(t, timer.Running())
	assert.Equal(t, "00:02:00", timer.Elapsed())

	timer.Stop()
	assert.False(t, timer.Running())
	assert.Equal(t, "00:00:00", timer.Elapsed())

	// Stopping twice is harmless.
	timer.Stop()
}

func TestTimerSubscribers(t *testing.T) {
	timer := NewSessionTimer()
	ch := timer.Subscribe()
	defer timer.Unsubscribe(ch)

	timer.Start(time.Now().Add(-30 * time.Second))
	defer timer.Stop()

	select {
	case display := <-ch:
		assert.Equal(t, "00:00:30", display)
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}
}
