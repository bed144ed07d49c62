package capture

import (
	"image"
	"sync"
)

// MockSource implements Source for testing. Without a GrabFunc it
// serves the frames slice in order and repeats the last frame once
// exhausted.
type MockSource struct {
	GrabFunc func() (image.Image, error)

	Frames []image.Image

	mu     sync.Mutex
	grabs  int
	closed bool
}

var _ Source = (*MockSource)(nil)

// Grab implements Source.
func (m *MockSource) Grab() (image.Image, error) {
	m.mu.Lock()
	m.grabs++
	n := m.grabs
	m.mu.Unlock()

	if m.GrabFunc != nil {
		return m.GrabFunc()
	}
	if len(m.Frames) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	idx := n - 1
	if idx >= len(m.Frames) {
		idx = len(m.Frames) - 1
	}
	return m.Frames[idx], nil
}

// Close implements Source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Grabs reports how many times Grab was called.
func (m *MockSource) Grabs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grabs
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
