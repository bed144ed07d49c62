// Package pose provides single-subject pose estimation for skeleton
// visualization.
//
// Detection backends are pluggable model variants tried lightest-first by
// a Lifecycle: construction failures cascade to the next variant, and
// only after every variant fails does initialization surface an error.
// Per-frame detection failures are never fatal to the capture pipeline.
package pose

import "image"

// Keypoint is one named skeleton landmark with normalized planar
// coordinates in [0,1] and a visibility score.
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Detector is the interface for pose estimation backends.
type Detector interface {
	// Detect finds the subject's keypoints in the frame.
	// Returns (nil, nil) when no subject is present.
	Detect(frame image.Image) ([]Keypoint, error)

	// Close releases backend resources.
	Close() error
}

// Variant identifies a pose model, ordered lightest/fastest to
// heaviest/most-compatible.
type Variant string

const (
	VariantLightning Variant = "movenet-lightning"
	VariantThunder   Variant = "movenet-thunder"
	VariantBlazePose Variant = "blazepose-full"
)

// Builder constructs a detector for one model variant.
// Any implementation exposing construct-then-detect satisfies the
// pipeline's needs; the Lifecycle treats builders as swappable
// strategies.
type Builder struct {
	Variant Variant
	New     func() (Detector, error)
}

// cocoKeypointNames are the 17 MoveNet/COCO landmark names in model
// output order.
var cocoKeypointNames = []string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}
