package pose_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/strokelab/strokecoach/pkg/pose"
)

func builderOK(v pose.Variant, det pose.Detector, builds *atomic.Int32) pose.Builder {
	return pose.Builder{
		Variant: v,
		New: func() (pose.Detector, error) {
			if builds != nil {
				builds.Add(1)
			}
			return det, nil
		},
	}
}

func builderFail(v pose.Variant, err error) pose.Builder {
	return pose.Builder{
		Variant: v,
		New: func() (pose.Detector, error) {
			return nil, err
		},
	}
}

func TestNewLifecycleRequiresBuilders(t *testing.T) {
	if _, err := pose.NewLifecycle(nil); err == nil {
		t.Error("expected error for empty builder list")
	}
}

func TestFallbackCascade(t *testing.T) {
	det := pose.NewMock()
	lc, err := pose.NewLifecycle([]pose.Builder{
		builderFail(pose.VariantLightning, errors.New("model file not found")),
		builderOK(pose.VariantThunder, det, nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := lc.EnsureReady(context.Background()); err != nil {
		t.Fatalf("expected fallback variant to succeed, got %v", err)
	}
	if !lc.Ready() {
		t.Error("expected lifecycle to be ready")
	}
}

func TestAllVariantsFail(t *testing.T) {
	errA := errors.New("no lightning")
	errB := errors.New("no thunder")
	lc, _ := pose.NewLifecycle([]pose.Builder{
		builderFail(pose.VariantLightning, errA),
		builderFail(pose.VariantThunder, errB),
	})

	err := lc.EnsureReady(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error")
	}

	var initErr *pose.InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %T", err)
	}
	if len(initErr.Errors) != 2 {
		t.Errorf("expected 2 recorded failures, got %d", len(initErr.Errors))
	}
	if !errors.Is(err, errB) {
		t.Error("expected Unwrap to surface the last variant error")
	}
}

func TestEnsureReadyIdempotent(t *testing.T) {
	var builds atomic.Int32
	lc, _ := pose.NewLifecycle([]pose.Builder{
		builderOK(pose.VariantLightning, pose.NewMock(), &builds),
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := lc.EnsureReady(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if builds.Load() != 1 {
		t.Errorf("expected exactly 1 build, got %d", builds.Load())
	}
}

func TestConcurrentEnsureReadySingleFlight(t *testing.T) {
	var builds atomic.Int32
	release := make(chan struct{})
	lc, _ := pose.NewLifecycle([]pose.Builder{
		{
			Variant: pose.VariantLightning,
			New: func() (pose.Detector, error) {
				builds.Add(1)
				<-release
				return pose.NewMock(), nil
			},
		},
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lc.EnsureReady(ctx); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(release)
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("expected a single in-flight build, got %d", builds.Load())
	}
}

func TestDetectSwallowsFailures(t *testing.T) {
	det := pose.NewMock()
	det.DetectFunc = func(image.Image) ([]pose.Keypoint, error) {
		return nil, errors.New("backend hiccup")
	}
	lc, _ := pose.NewLifecycle([]pose.Builder{
		builderOK(pose.VariantLightning, det, nil),
	})

	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if kps := lc.Detect(context.Background(), frame); kps != nil {
		t.Errorf("expected nil keypoints on detection failure, got %v", kps)
	}
	if det.Detects() != 1 {
		t.Errorf("expected detector to be invoked once, got %d", det.Detects())
	}
}

func TestDetectInitializesLazily(t *testing.T) {
	var builds atomic.Int32
	lc, _ := pose.NewLifecycle([]pose.Builder{
		builderOK(pose.VariantLightning, pose.NewMock(), &builds),
	})

	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	kps := lc.Detect(context.Background(), frame)
	if len(kps) == 0 {
		t.Error("expected keypoints from lazy-initialized detector")
	}
	if builds.Load() != 1 {
		t.Errorf("expected lazy initialization, builds=%d", builds.Load())
	}
}

func TestDispose(t *testing.T) {
	det := pose.NewMock()
	var builds atomic.Int32
	lc, _ := pose.NewLifecycle([]pose.Builder{
		builderOK(pose.VariantLightning, det, &builds),
	})

	// Dispose before init is a no-op.
	lc.Dispose()

	ctx := context.Background()
	if err := lc.EnsureReady(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lc.Dispose()
	if !det.Closed() {
		t.Error("expected detector to be closed")
	}
	if lc.Ready() {
		t.Error("expected lifecycle reset to uninitialized")
	}

	// Dispose is idempotent, and a later EnsureReady re-initializes.
	lc.Dispose()
	if err := lc.EnsureReady(ctx); err != nil {
		t.Fatalf("unexpected error after re-init: %v", err)
	}
	if builds.Load() != 2 {
		t.Errorf("expected re-initialization, builds=%d", builds.Load())
	}
}
