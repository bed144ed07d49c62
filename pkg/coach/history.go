package coach

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds the rolling confidence chart.
const DefaultHistoryCapacity = 50

// Entry is one confidence observation for the dashboard chart.
type Entry struct {
	// Seq increases monotonically across the session, surviving
	// eviction so chart points keep stable x positions.
	Seq int `json:"seq"`

	// ConfidencePercent is the classifier confidence scaled to 0-100.
	ConfidencePercent float64 `json:"confidence_percent"`

	// ObservedAt is when the result arrived.
	ObservedAt time.Time `json:"observed_at"`
}

// History is a bounded, append-only sequence of confidence
// observations; the oldest entries are evicted past capacity.
type History struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	nextSeq  int
	now      func() time.Time
}

// NewHistory creates a history with the given capacity.
// Non-positive capacity falls back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append records a confidence observation in [0,1] and returns the
// stored entry.
func (h *History) Append(confidence float64) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := Entry{
		Seq:               h.nextSeq,
		ConfidencePercent: confidence * 100,
		ObservedAt:        h.now(),
	}
	h.nextSeq++

	h.entries = append(h.entries, e)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[1:]
	}
	return e
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear resets the history to its initial empty state, including the
// sequence counter. Called on session start and stop.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
	h.nextSeq = 0
}
