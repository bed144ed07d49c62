package classifier

import (
	"context"
	"sync"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked. When nil, a
	// fixed high-confidence result is returned.
	ClassifyFunc func(ctx context.Context, frames [][]byte) (*Result, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu         sync.Mutex
	classifies int
}

// NewMock creates a mock classifier.
func NewMock() *Mock {
	return &Mock{}
}

// Classify implements Classifier.
func (m *Mock) Classify(ctx context.Context, frames [][]byte) (*Result, error) {
	m.mu.Lock()
	m.classifies++
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, frames)
	}
	return &Result{
		Label:      LabelHigh,
		Confidence: 0.9,
		Message:    "Great shot!",
	}, nil
}

// Health implements Classifier.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close implements Classifier.
func (m *Mock) Close() error { return nil }

// Classifies returns how many times Classify was called.
func (m *Mock) Classifies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifies
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
