package speech_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/strokelab/strokecoach/pkg/classifier"
	"github.com/strokelab/strokecoach/pkg/speech"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSpeakStopsPreviousUtterance(t *testing.T) {
	engine := speech.NewMockEngine()
	engine.Blocking = true
	player := speech.NewPlayer(&speech.MockSynthesizer{}, engine)
	ctx := context.Background()

	player.Speak(ctx, classifier.LabelHigh, 0.9, "first")
	waitFor(t, func() bool { return engine.Plays() == 1 }, "first playback never started")

	player.Speak(ctx, classifier.LabelNotHigh, 0.7, "second")
	waitFor(t, func() bool { return engine.Plays() == 2 }, "second playback never started")

	// The first utterance was cut before the second started.
	if engine.Interrupted() != 1 {
		t.Errorf("expected 1 interrupted playback, got %d", engine.Interrupted())
	}
	if engine.MaxActive() != 1 {
		t.Errorf("expected at most one active playback, got %d", engine.MaxActive())
	}
	if !player.Playing() {
		t.Error("expected the second utterance to be active")
	}

	player.Stop()
}

func TestFallbackOnSynthesisError(t *testing.T) {
	synth := &speech.MockSynthesizer{
		SynthesizeFunc: func(context.Context, classifier.Label, float64) (*speech.Utterance, error) {
			return nil, errors.New("tts unavailable")
		},
	}
	engine := speech.NewMockEngine()
	player := speech.NewPlayer(synth, engine)

	player.Speak(context.Background(), classifier.LabelHigh, 0.9, "keep it up")

	waitFor(t, func() bool { return engine.Speaks() == 1 }, "local fallback never ran")
	if engine.Plays() != 0 {
		t.Errorf("expected no audio playback, got %d", engine.Plays())
	}
}

func TestFallbackOnPlaybackError(t *testing.T) {
	engine := speech.NewMockEngine()
	engine.PlayErr = errors.New("decode failed")
	player := speech.NewPlayer(&speech.MockSynthesizer{}, engine)

	player.Speak(context.Background(), classifier.LabelHigh, 0.9, "keep it up")

	waitFor(t, func() bool { return engine.Speaks() == 1 }, "local fallback never ran")
}

func TestTotalAudioFailureIsSwallowed(t *testing.T) {
	engine := speech.NewMockEngine()
	engine.PlayErr = errors.New("no audio device")
	engine.SpeakErr = errors.New("no synthesizer")
	player := speech.NewPlayer(&speech.MockSynthesizer{}, engine)

	// Must not panic or block; failure is logged only.
	player.Speak(context.Background(), classifier.LabelHigh, 0.9, "msg")
	waitFor(t, func() bool { return !player.Playing() }, "playback never settled")
}

func TestStopIdempotent(t *testing.T) {
	player := speech.NewPlayer(&speech.MockSynthesizer{}, speech.NewMockEngine())

	// Stop with nothing playing is a no-op.
	player.Stop()
	player.Stop()

	engine := speech.NewMockEngine()
	engine.Blocking = true
	player = speech.NewPlayer(&speech.MockSynthesizer{}, engine)
	player.Speak(context.Background(), classifier.LabelHigh, 0.9, "msg")
	waitFor(t, func() bool { return engine.Plays() == 1 }, "playback never started")

	player.Stop()
	if player.Playing() {
		t.Error("expected playback stopped")
	}
	player.Stop()
}
