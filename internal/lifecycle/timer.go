package lifecycle

import (
	"fmt"
	"sync"
	"time"
)

// FormatElapsed renders the time between start and now as zero-padded
// HH:MM:SS.
func FormatElapsed(start, now time.Time) string {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	h := int(elapsed / time.Hour)
	m := int(elapsed/time.Minute) % 60
	s := int(elapsed/time.Second) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatSetupDuration renders a minute count as "H hours M minutes".
func FormatSetupDuration(minutes int) string {
	return fmt.Sprintf("%d hours %d minutes", minutes/60, minutes%60)
}

// SessionTimer tracks elapsed time for the active work session and pushes a
// formatted display string to subscribers every second. At most one timer
// runs at a time; starting a new one cancels the previous. The timer is
// presentation only and never touches server state.
type SessionTimer struct {
	mu          sync.Mutex
	start       time.Time
	running     bool
	stop        chan struct{}
	subscribers map[chan string]struct{}
}

// NewSessionTimer creates a stopped timer.
func NewSessionTimer() *SessionTimer {
	return &SessionTimer{
		subscribers: make(map[chan string]struct{}),
	}
}

// Start begins ticking from the session's start time, cancelling any
// previously running timer.
func (t *SessionTimer) Start(sessionStart time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.start = sessionStart
	t.running = true
	t.stop = make(chan struct{})

	go t.run(t.stop)
	t.broadcastLocked(FormatElapsed(t.start, time.Now()))
}

// Stop cancels the timer. Safe to call when not running.
func (t *SessionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *SessionTimer) stopLocked() {
	if t.running {
		close(t.stop)
		t.running = false
	}
}

// Running reports whether the timer is ticking.
func (t *SessionTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the current display string, "00:00:00" when stopped.
func (t *SessionTimer) Elapsed() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return "00:00:00"
	}
	return FormatElapsed(t.start, time.Now())
}

// Subscribe returns a channel receiving the display string every tick. The
// caller must Unsubscribe when done.
func (t *SessionTimer) Subscribe() chan string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan string, 1)
	t.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber channel.
func (t *SessionTimer) Unsubscribe(ch chan string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, ch)
}

func (t *SessionTimer) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			t.mu.Lock()
			if t.running && t.stop == stop {
				t.broadcastLocked(FormatElapsed(t.start, now))
			}
			t.mu.Unlock()
		}
	}
}

// broadcastLocked pushes to all subscribers without blocking; a slow
// subscriber just misses ticks.
func (t *SessionTimer) broadcastLocked(display string) {
	for ch := range t.subscribers {
		select {
		case ch <- display:
		default:
		}
	}
}
