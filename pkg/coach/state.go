// Package coach coordinates remote shot classification and voice
// feedback for the capture pipeline.
//
// The coordinator is the single writer of the shared prediction state
// and the rolling confidence history; the dashboard reads both. An
// atomic in-flight guard enforces single-flight semantics on the
// classification call: ready signals arriving mid-request are dropped,
// not queued.
package coach

import (
	"sync"
	"time"

	"github.com/strokelab/strokecoach/pkg/classifier"
)

// Snapshot is one observed prediction. Zero value means no prediction
// has completed yet.
type Snapshot struct {
	Label      classifier.Label `json:"label"`
	Confidence float64          `json:"confidence"`
	Message    string           `json:"message"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Prediction holds the latest classification result.
// Single writer (the coordinator), many readers (the dashboard).
type Prediction struct {
	mu    sync.RWMutex
	snap  Snapshot
	valid bool
}

// NewPrediction creates an empty prediction holder.
func NewPrediction() *Prediction {
	return &Prediction{}
}

// Set replaces the current snapshot. Called only on successful
// inference completion.
func (p *Prediction) Set(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = snap
	p.valid = true
}

// Get returns the current snapshot and whether one exists.
func (p *Prediction) Get() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap, p.valid
}

// Reset clears the prediction to its initial empty state.
func (p *Prediction) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{}
	p.valid = false
}
