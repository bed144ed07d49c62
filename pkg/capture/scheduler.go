package capture

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/strokelab/strokecoach/internal/log"
	"github.com/strokelab/strokecoach/internal/metrics"
	"github.com/strokelab/strokecoach/pkg/framebuf"
)

const (
	// DefaultTickInterval approximates a 60Hz display cadence.
	DefaultTickInterval = 16 * time.Millisecond

	// DefaultPoseInterval throttles pose sampling independently of
	// the frame rate.
	DefaultPoseInterval = 100 * time.Millisecond
)

// Scheduler drives the capture loop. On every tick it grabs a frame,
// offers it to the window buffer, dispatches a downsampled copy to the
// pose sampler on its own cadence, and fires the window callback when
// the buffer reports ready.
//
// Pose sampling and the window callback run off the tick goroutine so a
// slow detector or inference round-trip never stalls capture.
type Scheduler struct {
	src    Source
	buf    *framebuf.Buffer
	logger *slog.Logger

	tickInterval time.Duration
	poseInterval time.Duration

	// onWindow receives the ready window's JPEG frames.
	onWindow func(ctx context.Context, frames [][]byte)

	// onPose receives frames at poseInterval. Optional.
	onPose func(ctx context.Context, frame image.Image)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets the capture cadence.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithPoseInterval sets the pose sampling cadence.
func WithPoseInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.poseInterval = d }
}

// WithPoseSampler registers the pose sampling callback.
func WithPoseSampler(fn func(ctx context.Context, frame image.Image)) SchedulerOption {
	return func(s *Scheduler) { s.onPose = fn }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// NewScheduler creates a scheduler over the given source and buffer.
// onWindow is invoked with the buffered JPEG frames each time the
// window becomes ready.
func NewScheduler(src Source, buf *framebuf.Buffer, onWindow func(ctx context.Context, frames [][]byte), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		src:          src,
		buf:          buf,
		onWindow:     onWindow,
		tickInterval: DefaultTickInterval,
		poseInterval: DefaultPoseInterval,
		logger:       log.Component("capture"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the capture loop. It returns immediately; the loop
// runs until Stop is called or ctx is canceled. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	poseCh := make(chan image.Image, 1)
	go s.poseWorker(loopCtx, poseCh)
	go s.loop(loopCtx, poseCh, done)
}

// Stop cancels the capture loop and waits for it to exit. Safe to call
// multiple times and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the capture loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, poseCh chan<- image.Image, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	var lastPose time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.src.Grab()
		if err != nil {
			s.logger.Warn("frame grab failed", "error", err)
			continue
		}
		metrics.FramesOffered.Inc()

		if s.onPose != nil && time.Since(lastPose) >= s.poseInterval {
			select {
			case poseCh <- frame:
				lastPose = time.Now()
			default:
				// Sampler still busy with the previous frame.
			}
		}

		if s.buf.Push(frame) {
			go s.onWindow(ctx, framebuf.JPEGs(s.buf.Frames()))
		}
	}
}

func (s *Scheduler) poseWorker(ctx context.Context, poseCh <-chan image.Image) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-poseCh:
			s.onPose(ctx, frame)
		}
	}
}
