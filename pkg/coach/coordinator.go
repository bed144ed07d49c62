package coach

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strokelab/strokecoach/internal/metrics"
	"github.com/strokelab/strokecoach/pkg/classifier"
)

// MotionResetter clears the buffer's motion flag after an inference
// attempt so the same window is not re-submitted without new movement.
type MotionResetter interface {
	ResetMotion()
}

// Speaker voices a feedback message. Implementations must not block
// the caller beyond starting playback.
type Speaker interface {
	Speak(ctx context.Context, label classifier.Label, confidence float64, message string)
}

// Coordinator enforces single-flight inference, maintains the shared
// prediction state and confidence history, and triggers voice feedback
// exactly on label change.
type Coordinator struct {
	cls      classifier.Classifier
	motion   MotionResetter
	speaker  Speaker
	onError  func(error)
	onResult func(Snapshot, Entry)
	logger   *slog.Logger

	pred *Prediction
	hist *History

	inFlight atomic.Bool

	labelMu   sync.Mutex
	lastLabel classifier.Label
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithSpeaker wires voice feedback.
func WithSpeaker(s Speaker) CoordinatorOption {
	return func(c *Coordinator) { c.speaker = s }
}

// WithErrorHandler sets the callback that surfaces classification
// failures to the UI layer.
func WithErrorHandler(fn func(error)) CoordinatorOption {
	return func(c *Coordinator) { c.onError = fn }
}

// WithResultHook registers a callback invoked after each successful
// classification, once the shared state reflects it. Used to push live
// updates to dashboard clients.
func WithResultHook(fn func(Snapshot, Entry)) CoordinatorOption {
	return func(c *Coordinator) { c.onResult = fn }
}

// WithHistoryCapacity overrides the confidence history size.
func WithHistoryCapacity(n int) CoordinatorOption {
	return func(c *Coordinator) { c.hist = NewHistory(n) }
}

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger.With("component", "coach.coordinator") }
}

// NewCoordinator creates a coordinator over the given classifier and
// motion gate.
func NewCoordinator(cls classifier.Classifier, motion MotionResetter, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		cls:    cls,
		motion: motion,
		logger: slog.Default().With("component", "coach.coordinator"),
		pred:   NewPrediction(),
		hist:   NewHistory(DefaultHistoryCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetResultHook wires the result callback after construction, for
// consumers built after the coordinator. Call before any window fires.
func (c *Coordinator) SetResultHook(fn func(Snapshot, Entry)) { c.onResult = fn }

// SetErrorHandler wires the failure callback after construction. Call
// before any window fires.
func (c *Coordinator) SetErrorHandler(fn func(error)) { c.onError = fn }

// Prediction returns the shared prediction state for readers.
func (c *Coordinator) Prediction() *Prediction { return c.pred }

// History returns the shared confidence history for readers.
func (c *Coordinator) History() *History { return c.hist }

// InFlight reports whether a classification request is in progress.
func (c *Coordinator) InFlight() bool { return c.inFlight.Load() }

// OnWindowReady submits a frame batch for classification. If a request
// is already in flight the signal is dropped; the buffer's motion flag
// stays set, so readiness fires again on a later push.
func (c *Coordinator) OnWindowReady(ctx context.Context, frames [][]byte) {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.InferencesDropped.Inc()
		c.logger.Debug("window ready dropped, inference in flight")
		return
	}
	// Released exactly once per invocation regardless of exit path.
	defer c.inFlight.Store(false)

	// The motion flag resets on success and failure alike so a stuck
	// buffer cannot block future attempts.
	defer c.motion.ResetMotion()

	start := time.Now()
	result, err := c.cls.Classify(ctx, frames)
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			// Session teardown canceled the request mid-flight; not a
			// failure worth surfacing.
			metrics.Inferences.WithLabelValues("canceled").Inc()
			c.logger.Debug("classification canceled", "error", err)
			return
		}
		metrics.Inferences.WithLabelValues("error").Inc()
		c.logger.Warn("classification failed", "error", err)
		if c.onError != nil {
			c.onError(err)
		}
		return
	}

	if ctx.Err() != nil {
		// The session stopped while the response was in transit; its
		// state has already been reset and must stay empty.
		metrics.Inferences.WithLabelValues("canceled").Inc()
		return
	}

	metrics.Inferences.WithLabelValues("ok").Inc()
	c.logger.Info("classification complete",
		"label", result.Label,
		"confidence", result.Confidence,
		"latency_ms", result.LatencyMs,
	)

	snap := Snapshot{
		Label:      result.Label,
		Confidence: result.Confidence,
		Message:    result.Message,
		UpdatedAt:  time.Now(),
	}
	c.pred.Set(snap)
	entry := c.hist.Append(result.Confidence)

	if c.onResult != nil {
		c.onResult(snap, entry)
	}

	c.labelMu.Lock()
	changed := result.Label != c.lastLabel
	if changed {
		c.lastLabel = result.Label
	}
	c.labelMu.Unlock()

	if changed && c.speaker != nil {
		c.speaker.Speak(ctx, result.Label, result.Confidence, result.Message)
	}
}

// Reset returns the coordinator's shared state to its initial empty
// condition. Called on session start and stop.
func (c *Coordinator) Reset() {
	c.pred.Reset()
	c.hist.Clear()

	c.labelMu.Lock()
	c.lastLabel = ""
	c.labelMu.Unlock()
}
