package speech

import (
	"context"
	"sync"

	"github.com/strokelab/strokecoach/pkg/classifier"
)

// MockSynthesizer implements Synthesizer for testing.
type MockSynthesizer struct {
	// SynthesizeFunc is called when Synthesize is invoked. When nil,
	// a fixed utterance is returned.
	SynthesizeFunc func(ctx context.Context, label classifier.Label, confidence float64) (*Utterance, error)

	mu    sync.Mutex
	calls int
}

// Synthesize implements Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, label classifier.Label, confidence float64) (*Utterance, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, label, confidence)
	}
	return &Utterance{Message: "Great shot!", Audio: []byte{0x49, 0x44, 0x33}}, nil
}

// Close implements Synthesizer.
func (m *MockSynthesizer) Close() error { return nil }

// Calls returns how many times Synthesize was invoked.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEngine implements Engine for testing. Playback blocks until the
// context is canceled or Release is called, so tests can hold an
// utterance open and observe mutual exclusion.
type MockEngine struct {
	// PlayErr, when set, makes PlayAudio fail immediately.
	PlayErr error

	// SpeakErr, when set, makes SpeakText fail immediately.
	SpeakErr error

	// Blocking makes PlayAudio and SpeakText wait for ctx
	// cancellation or Release.
	Blocking bool

	release chan struct{}

	mu          sync.Mutex
	plays       int
	speaks      int
	active      int
	maxActive   int
	interrupted int
}

// NewMockEngine creates a mock playback engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{release: make(chan struct{})}
}

// PlayAudio implements Engine.
func (m *MockEngine) PlayAudio(ctx context.Context, audio []byte) error {
	if m.PlayErr != nil {
		return m.PlayErr
	}
	return m.occupy(ctx, &m.plays)
}

// SpeakText implements Engine.
func (m *MockEngine) SpeakText(ctx context.Context, text string) error {
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	return m.occupy(ctx, &m.speaks)
}

func (m *MockEngine) occupy(ctx context.Context, counter *int) error {
	m.mu.Lock()
	*counter++
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	blocking := m.Blocking
	release := m.release
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if !blocking {
		return nil
	}

	select {
	case <-ctx.Done():
		m.mu.Lock()
		m.interrupted++
		m.mu.Unlock()
		return ctx.Err()
	case <-release:
		return nil
	}
}

// Release unblocks all pending playbacks.
func (m *MockEngine) Release() {
	close(m.release)
}

// Plays returns how many audio playbacks started.
func (m *MockEngine) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

// Speaks returns how many local synthesis calls started.
func (m *MockEngine) Speaks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaks
}

// MaxActive returns the peak number of concurrent playbacks.
func (m *MockEngine) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Interrupted returns how many playbacks were canceled mid-utterance.
func (m *MockEngine) Interrupted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interrupted
}

var (
	_ Synthesizer = (*MockSynthesizer)(nil)
	_ Engine      = (*MockEngine)(nil)
)
