package session_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/strokelab/strokecoach/pkg/capture"
	"github.com/strokelab/strokecoach/pkg/framebuf"
	"github.com/strokelab/strokecoach/pkg/pose"
	"github.com/strokelab/strokecoach/pkg/session"
)

type fakeDetector struct {
	mu       sync.Mutex
	detects  int
	disposes int
	kps      []pose.Keypoint
}

func (d *fakeDetector) Detect(context.Context, image.Image) []pose.Keypoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detects++
	return d.kps
}

func (d *fakeDetector) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposes++
}

func (d *fakeDetector) Disposes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposes
}

type fakeCoordinator struct {
	mu      sync.Mutex
	windows int
	resets  int
}

func (c *fakeCoordinator) OnWindowReady(context.Context, [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows++
}

func (c *fakeCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *fakeCoordinator) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

type fakeAudio struct {
	mu    sync.Mutex
	stops int
}

func (a *fakeAudio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
}

func (a *fakeAudio) Stops() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

func newController(t *testing.T) (*session.Controller, *capture.MockSource, *fakeDetector, *fakeCoordinator, *fakeAudio) {
	t.Helper()
	src := &capture.MockSource{Frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 16, 16))}}
	det := &fakeDetector{}
	coord := &fakeCoordinator{}
	audio := &fakeAudio{}
	ctrl := session.NewController(
		func() (capture.Source, error) { return src, nil },
		framebuf.New(framebuf.Config{SampleWidth: 16, SampleHeight: 16}),
		det, coord,
		session.WithAudio(audio),
		session.WithSchedulerOptions(capture.WithTickInterval(time.Millisecond)),
	)
	return ctrl, src, det, coord, audio
}

func TestStartStopReleasesEverything(t *testing.T) {
	ctrl, src, det, coord, audio := newController(t)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ctrl.Active() {
		t.Fatal("session not active after Start")
	}
	if coord.Resets() != 1 {
		t.Errorf("expected coordinator reset on Start, got %d", coord.Resets())
	}

	ctrl.Stop()
	if ctrl.Active() {
		t.Fatal("session still active after Stop")
	}
	if !src.Closed() {
		t.Error("camera not released")
	}
	if det.Disposes() != 1 {
		t.Errorf("expected detector disposed once, got %d", det.Disposes())
	}
	if audio.Stops() != 1 {
		t.Errorf("expected audio stopped once, got %d", audio.Stops())
	}
	// Teardown clears the shared state too, so the dashboard stops
	// serving the dead session's prediction and history.
	if coord.Resets() != 2 {
		t.Errorf("expected coordinator reset on Stop, got %d resets", coord.Resets())
	}
	if ctrl.Keypoints() != nil {
		t.Error("expected keypoints cleared on Stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	ctrl, _, det, _, audio := newController(t)

	// Stop before any Start is a no-op.
	ctrl.Stop()
	if det.Disposes() != 0 || audio.Stops() != 0 {
		t.Fatal("teardown ran with no session")
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctrl.Stop()
	ctrl.Stop()
	if det.Disposes() != 1 {
		t.Errorf("expected one dispose, got %d", det.Disposes())
	}
	if audio.Stops() != 1 {
		t.Errorf("expected one audio stop, got %d", audio.Stops())
	}
}

func TestRestartReplacesSession(t *testing.T) {
	var opened []*capture.MockSource
	det := &fakeDetector{}
	coord := &fakeCoordinator{}
	ctrl := session.NewController(
		func() (capture.Source, error) {
			src := &capture.MockSource{Frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 16, 16))}}
			opened = append(opened, src)
			return src, nil
		},
		framebuf.New(framebuf.Config{SampleWidth: 16, SampleHeight: 16}),
		det, coord,
		session.WithSchedulerOptions(capture.WithTickInterval(time.Millisecond)),
	)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if len(opened) != 2 {
		t.Fatalf("expected 2 camera acquisitions, got %d", len(opened))
	}
	if !opened[0].Closed() {
		t.Error("first session's camera not released")
	}
	if opened[1].Closed() {
		t.Error("second session's camera should still be open")
	}
	// Three resets: fresh state for each Start plus the teardown of
	// the first session inside the second Start.
	if coord.Resets() != 3 {
		t.Errorf("expected 3 coordinator resets, got %d", coord.Resets())
	}

	ctrl.Stop()
}

func TestStopClearsFrameWindow(t *testing.T) {
	src := &capture.MockSource{Frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 16, 16))}}
	buf := framebuf.New(framebuf.Config{
		SampleWidth:  16,
		SampleHeight: 16,
		MinInterval:  time.Nanosecond,
	})
	ctrl := session.NewController(
		func() (capture.Source, error) { return src, nil },
		buf, &fakeDetector{}, &fakeCoordinator{},
		session.WithSchedulerOptions(capture.WithTickInterval(time.Millisecond)),
	)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for buf.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if buf.Len() == 0 {
		t.Fatal("no frames ever buffered")
	}

	ctrl.Stop()
	if buf.Len() != 0 {
		t.Errorf("expected empty window after Stop, got %d frames", buf.Len())
	}
}

func TestStartSurfacesCameraDenied(t *testing.T) {
	ctrl := session.NewController(
		func() (capture.Source, error) { return nil, capture.ErrCameraDenied },
		framebuf.New(framebuf.DefaultConfig()),
		&fakeDetector{}, &fakeCoordinator{},
	)

	err := ctrl.Start(context.Background())
	if !errors.Is(err, capture.ErrCameraDenied) {
		t.Fatalf("expected ErrCameraDenied, got %v", err)
	}
	if ctrl.Active() {
		t.Error("session active after failed Start")
	}
}

func TestKeypointsSnapshot(t *testing.T) {
	ctrl, _, det, _, _ := newController(t)
	det.kps = []pose.Keypoint{{Name: "nose", X: 0.5, Y: 0.2, Score: 0.9}}

	if got := ctrl.Keypoints(); got != nil {
		t.Fatalf("expected no keypoints before start, got %v", got)
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctrl.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if kps := ctrl.Keypoints(); len(kps) == 1 {
			if kps[0].Name != "nose" {
				t.Fatalf("unexpected keypoint %+v", kps[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("keypoints never published")
}
