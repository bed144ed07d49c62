// Package speech provides voice feedback playback for coaching results.
//
// The primary path fetches synthesized audio from the remote TTS
// backend; any failure falls back to local on-device synthesis of the
// same message text. The Player guarantees at most one utterance is
// audible at any time: starting a new one stops the previous one first,
// with no queueing and no mixing. Voice feedback is supplementary, so
// total audio failure is logged and never surfaced as a pipeline error.
package speech

import (
	"context"

	"github.com/strokelab/strokecoach/pkg/classifier"
)

// Utterance is a synthesized feedback message.
type Utterance struct {
	// Message is the coaching text that was synthesized.
	Message string

	// Audio is the compressed (MP3) audio payload.
	Audio []byte
}

// Synthesizer produces spoken audio for a classification result.
type Synthesizer interface {
	// Synthesize requests audio for the given result.
	Synthesize(ctx context.Context, label classifier.Label, confidence float64) (*Utterance, error)

	// Close releases resources.
	Close() error
}

// Engine plays audio on the local device.
type Engine interface {
	// PlayAudio plays a compressed audio payload, blocking until
	// playback completes or ctx is canceled.
	PlayAudio(ctx context.Context, audio []byte) error

	// SpeakText synthesizes and speaks text locally, blocking until
	// done or ctx is canceled. Used as the fallback path.
	SpeakText(ctx context.Context, text string) error
}
