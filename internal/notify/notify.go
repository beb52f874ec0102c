package notify

import (
	"log"
	"sync"
)

// Notifier delivers human-readable progress notifications.
// Percent is -1 when a message carries no progress value.
type Notifier interface {
	Notify(message string, percent int) error
}

// LogNotifier writes notifications to the process log
type LogNotifier struct{}

// Notify logs the notification
func (LogNotifier) Notify(message string, percent int) error {
	if percent >= 0 {
		log.Printf("[Notify] %s (%d%%)", message, percent)
	} else {
		log.Printf("[Notify] %s", message)
	}
	return nil
}

// Recorder captures notifications for inspection in tests
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Entry is a single recorded notification
type Entry struct {
	Message string
	Percent int
}

// Notify records the notification
func (r *Recorder) Notify(message string, percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: message, Percent: percent})
	return nil
}

// Entries returns a copy of everything recorded so far
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Percents returns the recorded progress values, skipping plain messages
func (r *Recorder) Percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, e := range r.entries {
		if e.Percent >= 0 {
			out = append(out, e.Percent)
		}
	}
	return out
}
