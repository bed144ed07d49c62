// Package classifier provides the client for the remote shot
// classification backend.
//
// The backend accepts a batch of base64-encoded JPEG frames and returns
// a binary shot quality label with a confidence score and a coaching
// message. Transient backend unavailability surfaces as a recoverable
// error; the capture pipeline retries on the next motion event.
package classifier

import "context"

// Label is the binary shot classification.
type Label string

const (
	// LabelHigh marks a well-executed shot.
	LabelHigh Label = "High"

	// LabelNotHigh marks a shot needing improvement.
	LabelNotHigh Label = "Not High"
)

// IsValid reports whether l is a recognized label.
func (l Label) IsValid() bool {
	return l == LabelHigh || l == LabelNotHigh
}

// Result is a completed classification.
type Result struct {
	// Label is the predicted shot class.
	Label Label

	// Confidence in [0,1], rounded server-side to 3 decimals.
	Confidence float64

	// Message is the coaching feedback generated for this result.
	Message string

	// LatencyMs is the round-trip time in milliseconds.
	LatencyMs int64
}

// Classifier is the interface the inference coordinator depends on.
type Classifier interface {
	// Classify sends a batch of JPEG-encoded frames and returns the
	// prediction. The batch must be non-empty; callers pad short
	// windows before submission.
	Classify(ctx context.Context, frames [][]byte) (*Result, error)

	// Health checks backend connectivity.
	Health(ctx context.Context) error

	// Close releases client resources.
	Close() error
}
