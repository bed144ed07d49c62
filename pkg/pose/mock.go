package pose

import (
	"image"
	"sync"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked. When nil, a
	// single centered keypoint is returned.
	DetectFunc func(frame image.Image) ([]Keypoint, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu      sync.Mutex
	detects int
	closed  bool
}

// NewMock creates a mock detector.
func NewMock() *Mock {
	return &Mock{}
}

// Detect implements Detector.
func (m *Mock) Detect(frame image.Image) ([]Keypoint, error) {
	m.mu.Lock()
	m.detects++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(frame)
	}
	return []Keypoint{{Name: "nose", X: 0.5, Y: 0.5, Score: 0.9}}, nil
}

// Close implements Detector.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Detects returns how many times Detect was called.
func (m *Mock) Detects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detects
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
