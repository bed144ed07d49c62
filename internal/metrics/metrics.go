// Package metrics exposes Prometheus counters for the capture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FramesOffered counts frames the scheduler pulled from the camera.
	FramesOffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strokecoach_frames_offered_total",
		Help: "Frames offered to the motion-gated buffer",
	})

	// FramesBuffered counts frames accepted past the rate gate.
	FramesBuffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strokecoach_frames_buffered_total",
		Help: "Frames accepted into the capture window",
	})

	// MotionEvents counts window cycles in which motion was first observed.
	MotionEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strokecoach_motion_events_total",
		Help: "Times the motion flag transitioned to set",
	})

	// Inferences counts classification attempts by outcome.
	Inferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strokecoach_inferences_total",
		Help: "Remote classification requests by outcome",
	}, []string{"outcome"})

	// InferencesDropped counts ready signals discarded while a request
	// was already in flight.
	InferencesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strokecoach_inferences_dropped_total",
		Help: "Window-ready signals dropped by the single-flight guard",
	})

	// InferenceLatency tracks remote classification round-trip time.
	InferenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strokecoach_inference_latency_seconds",
		Help:    "Remote classification latency",
		Buckets: prometheus.DefBuckets,
	})

	// PoseDetections counts per-frame pose samples by result.
	PoseDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strokecoach_pose_detections_total",
		Help: "Pose detection samples by result (ok, empty, error)",
	}, []string{"result"})

	// PoseInitFallbacks counts model variants that failed to construct.
	PoseInitFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strokecoach_pose_init_fallbacks_total",
		Help: "Pose model variants skipped by the fallback cascade",
	})

	// Utterances counts spoken feedback by synthesis path.
	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strokecoach_utterances_total",
		Help: "Voice feedback playbacks by path (remote, local, failed)",
	}, []string{"path"})
)

// Serve starts a Prometheus metrics listener on addr.
// It blocks, so call it from a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
