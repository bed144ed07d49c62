package pose

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/strokelab/strokecoach/internal/metrics"
)

// Lifecycle lazily constructs a detector through an ordered fallback
// chain of model variants and disposes it deterministically.
//
// EnsureReady is idempotent and safe to call concurrently: overlapping
// callers await the same in-flight initialization attempt rather than
// starting a second one.
type Lifecycle struct {
	builders []Builder
	logger   *slog.Logger

	group singleflight.Group

	mu  sync.Mutex
	det Detector
}

// NewLifecycle creates a lifecycle over the given builders, tried in
// order. At least one builder is required.
func NewLifecycle(builders []Builder) (*Lifecycle, error) {
	if len(builders) == 0 {
		return nil, fmt.Errorf("pose: at least one model variant required")
	}
	return &Lifecycle{
		builders: builders,
		logger:   slog.Default().With("component", "pose.lifecycle"),
	}, nil
}

// NewLifecycleWithLogger creates a lifecycle with a custom logger.
func NewLifecycleWithLogger(logger *slog.Logger, builders []Builder) (*Lifecycle, error) {
	l, err := NewLifecycle(builders)
	if err != nil {
		return nil, err
	}
	l.logger = logger.With("component", "pose.lifecycle")
	return l, nil
}

// EnsureReady initializes the detector if it is not already live.
// Variants are attempted lightest-first; the first successful
// construction wins. After every variant fails the aggregate error is
// returned and a later call may retry from the top.
func (l *Lifecycle) EnsureReady(ctx context.Context) error {
	l.mu.Lock()
	ready := l.det != nil
	l.mu.Unlock()
	if ready {
		return nil
	}

	_, err, _ := l.group.Do("init", func() (any, error) {
		// A concurrent caller may have completed initialization
		// between the fast-path check and joining the group.
		l.mu.Lock()
		if l.det != nil {
			l.mu.Unlock()
			return nil, nil
		}
		l.mu.Unlock()

		var errs []error
		for _, b := range l.builders {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			det, err := b.New()
			if err == nil {
				l.mu.Lock()
				l.det = det
				l.mu.Unlock()
				l.logger.Info("pose detector ready", "variant", b.Variant)
				return nil, nil
			}

			errs = append(errs, fmt.Errorf("%s: %w", b.Variant, err))
			metrics.PoseInitFallbacks.Inc()
			l.logger.Warn("pose variant failed, trying next",
				"variant", b.Variant,
				"error", err,
			)
		}

		return nil, &InitError{Errors: errs}
	})
	return err
}

// Detect samples the subject's keypoints from the frame, initializing
// the detector on first use. Detection failures are non-fatal: the
// skeleton overlay simply skips a frame, so errors are logged and nil
// is returned instead of being surfaced to the caller.
func (l *Lifecycle) Detect(ctx context.Context, frame image.Image) []Keypoint {
	if err := l.EnsureReady(ctx); err != nil {
		metrics.PoseDetections.WithLabelValues("error").Inc()
		return nil
	}

	l.mu.Lock()
	det := l.det
	l.mu.Unlock()
	if det == nil {
		return nil
	}

	kps, err := det.Detect(frame)
	if err != nil {
		metrics.PoseDetections.WithLabelValues("error").Inc()
		l.logger.Debug("pose detection failed, skipping frame", "error", err)
		return nil
	}
	if len(kps) == 0 {
		metrics.PoseDetections.WithLabelValues("empty").Inc()
		return nil
	}

	metrics.PoseDetections.WithLabelValues("ok").Inc()
	return kps
}

// Ready reports whether a detector is currently live.
func (l *Lifecycle) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.det != nil
}

// Dispose releases the detector and resets the lifecycle so a later
// EnsureReady re-initializes from the first variant. Safe to call when
// never initialized, and safe to call repeatedly.
func (l *Lifecycle) Dispose() {
	l.mu.Lock()
	det := l.det
	l.det = nil
	l.mu.Unlock()

	if det != nil {
		if err := det.Close(); err != nil {
			l.logger.Warn("pose detector close failed", "error", err)
		}
	}
}

// InitError aggregates construction failures from every model variant.
type InitError struct {
	Errors []error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if len(e.Errors) == 0 {
		return "pose: initialization failed"
	}
	return fmt.Sprintf("pose: all %d model variants failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the cascade.
func (e *InitError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
