package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/strokelab/strokecoach/internal/metrics"
	"github.com/strokelab/strokecoach/pkg/classifier"
)

// playback is one transient audio session.
type playback struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

// Player drives voice feedback with at-most-one concurrent utterance.
type Player struct {
	synth  Synthesizer
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	current *playback
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerLogger sets a custom logger.
func WithPlayerLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) { p.logger = logger.With("component", "speech.player") }
}

// NewPlayer creates a player over a synthesizer and playback engine.
func NewPlayer(synth Synthesizer, engine Engine, opts ...PlayerOption) *Player {
	p := &Player{
		synth:  synth,
		engine: engine,
		logger: slog.Default().With("component", "speech.player"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Speak voices a feedback message. Any utterance still playing is
// stopped first, with no fade and no queueing. Playback proceeds in
// the background; errors fall back to local synthesis and are never
// returned to the caller.
func (p *Player) Speak(ctx context.Context, label classifier.Label, confidence float64, message string) {
	p.mu.Lock()
	p.stopLocked()

	// Playback outlives the triggering inference call, so the session
	// runs on its own context rather than the caller's.
	playCtx, cancel := context.WithCancel(context.Background())
	session := &playback{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.current = session
	p.mu.Unlock()

	go p.run(playCtx, session, label, confidence, message)
}

// run executes one utterance: remote synthesis first, local fallback
// on any failure.
func (p *Player) run(ctx context.Context, session *playback, label classifier.Label, confidence float64, message string) {
	defer session.cancel()
	defer close(session.done)

	logger := p.logger.With("session_id", session.id.String())

	err := p.synthAndPlay(ctx, label, confidence)
	if err == nil {
		metrics.Utterances.WithLabelValues("remote").Inc()
		return
	}
	if ctx.Err() != nil {
		// Stopped by a newer utterance or session teardown.
		return
	}

	logger.Warn("remote tts failed, using local synthesis", "error", err)

	if err := p.engine.SpeakText(ctx, message); err != nil {
		if ctx.Err() == nil {
			// Feedback is supplementary: log, never surface.
			metrics.Utterances.WithLabelValues("failed").Inc()
			logger.Warn("voice feedback unavailable", "error", err)
		}
		return
	}
	metrics.Utterances.WithLabelValues("local").Inc()
}

func (p *Player) synthAndPlay(ctx context.Context, label classifier.Label, confidence float64) error {
	utt, err := p.synth.Synthesize(ctx, label, confidence)
	if err != nil {
		return err
	}
	return p.engine.PlayAudio(ctx, utt.Audio)
}

// Stop cancels any active playback. Idempotent when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked cancels the current playback and waits for it to wind
// down. Caller must hold mu.
func (p *Player) stopLocked() {
	if p.current == nil {
		return
	}
	p.current.cancel()
	<-p.current.done
	p.current = nil
}

// Playing reports whether an utterance is currently active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	select {
	case <-p.current.done:
		return false
	default:
		return true
	}
}
