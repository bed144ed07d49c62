// Package session owns the lifetime of a coaching run: the camera, the
// capture scheduler, the pose detector, the inference coordinator, and
// audio playback are acquired together and released together, in a
// fixed order.
package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/strokelab/strokecoach/internal/log"
	"github.com/strokelab/strokecoach/pkg/capture"
	"github.com/strokelab/strokecoach/pkg/framebuf"
	"github.com/strokelab/strokecoach/pkg/pose"
)

// Detector is the pose surface the session drives.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) []pose.Keypoint
	Dispose()
}

// Coordinator receives ready frame windows.
type Coordinator interface {
	OnWindowReady(ctx context.Context, frames [][]byte)
	Reset()
}

// Audio is the playback surface the session shuts down.
type Audio interface {
	Stop()
}

// Controller runs at most one session at a time. Start acquires the
// camera and launches the capture loop; Stop tears everything down in
// order: scheduler, camera, detector, audio.
type Controller struct {
	open   func() (capture.Source, error)
	buf    *framebuf.Buffer
	det    Detector
	coord  Coordinator
	audio  Audio
	logger *slog.Logger

	schedOpts []capture.SchedulerOption

	mu    sync.Mutex
	src   capture.Source
	sched *capture.Scheduler

	kpMu      sync.RWMutex
	keypoints []pose.Keypoint
}

// Option customizes a Controller.
type Option func(*Controller)

// WithAudio registers the playback surface to stop on teardown.
func WithAudio(a Audio) Option {
	return func(c *Controller) { c.audio = a }
}

// WithSchedulerOptions forwards options to the capture scheduler
// created on each Start.
func WithSchedulerOptions(opts ...capture.SchedulerOption) Option {
	return func(c *Controller) { c.schedOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController wires a session controller. open is called on each
// Start to acquire the camera.
func NewController(open func() (capture.Source, error), buf *framebuf.Buffer, det Detector, coord Coordinator, opts ...Option) *Controller {
	c := &Controller{
		open:   open,
		buf:    buf,
		det:    det,
		coord:  coord,
		logger: log.Component("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start acquires the camera and begins capturing. A session already in
// progress is stopped first, so restarting always yields fresh state.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	src, err := c.open()
	if err != nil {
		return fmt.Errorf("session: acquire camera: %w", err)
	}

	c.buf.Clear()
	c.coord.Reset()
	c.setKeypoints(nil)

	schedOpts := append([]capture.SchedulerOption{
		capture.WithPoseSampler(c.samplePose),
	}, c.schedOpts...)
	sched := capture.NewScheduler(src, c.buf, c.coord.OnWindowReady, schedOpts...)
	sched.Start(ctx)

	c.src = src
	c.sched = sched
	c.logger.Info("session started")
	return nil
}

// Stop ends the current session. Safe to call repeatedly and when no
// session is running.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched != nil
}

// Keypoints returns the most recent pose sample, or nil when the
// subject has not been seen.
func (c *Controller) Keypoints() []pose.Keypoint {
	c.kpMu.RLock()
	defer c.kpMu.RUnlock()
	if c.keypoints == nil {
		return nil
	}
	out := make([]pose.Keypoint, len(c.keypoints))
	copy(out, c.keypoints)
	return out
}

func (c *Controller) stopLocked() {
	if c.sched == nil && c.src == nil {
		return
	}

	if c.sched != nil {
		c.sched.Stop()
		c.sched = nil
	}
	if c.src != nil {
		if err := c.src.Close(); err != nil {
			c.logger.Warn("camera close failed", "error", err)
		}
		c.src = nil
	}
	c.det.Dispose()
	if c.audio != nil {
		c.audio.Stop()
	}

	// The window and the dashboard's prediction/history belong to the
	// session; a stopped session leaves nothing behind to serve.
	c.buf.Clear()
	c.coord.Reset()
	c.setKeypoints(nil)
	c.logger.Info("session stopped")
}

func (c *Controller) samplePose(ctx context.Context, frame image.Image) {
	if kps := c.det.Detect(ctx, frame); kps != nil {
		c.setKeypoints(kps)
	}
}

func (c *Controller) setKeypoints(kps []pose.Keypoint) {
	c.kpMu.Lock()
	c.keypoints = kps
	c.kpMu.Unlock()
}
