package pose

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// minSubjectScore is the mean keypoint score below which a frame is
// treated as having no subject.
const minSubjectScore = 0.2

// moveNetDetector runs a MoveNet single-pose ONNX model through the
// OpenCV DNN backend.
type moveNetDetector struct {
	net       gocv.Net
	inputSize int
	mu        sync.Mutex // protects inference
}

// newMoveNet loads a MoveNet variant. inputSize is 192 for lightning
// and 256 for thunder.
func newMoveNet(modelPath string, inputSize int) (Detector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", modelPath)
	}

	return &moveNetDetector{net: net, inputSize: inputSize}, nil
}

// Detect runs MoveNet on the frame. Output layout is [1,1,17,3] rows of
// (y, x, score) already normalized to [0,1].
func (d *moveNetDetector) Detect(frame image.Image) ([]Keypoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0,
		image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	rows := out.Reshape(1, len(cocoKeypointNames))
	defer rows.Close()

	kps := make([]Keypoint, 0, len(cocoKeypointNames))
	var total float64
	for r := 0; r < len(cocoKeypointNames); r++ {
		y := float64(rows.GetFloatAt(r, 0))
		x := float64(rows.GetFloatAt(r, 1))
		score := float64(rows.GetFloatAt(r, 2))
		total += score
		kps = append(kps, Keypoint{
			Name:  cocoKeypointNames[r],
			X:     clamp01(x),
			Y:     clamp01(y),
			Score: score,
		})
	}

	if total/float64(len(kps)) < minSubjectScore {
		return nil, nil
	}
	return kps, nil
}

// Close releases the network.
func (d *moveNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// blazePoseDetector runs a BlazePose full-body landmark ONNX model.
// Heavier than MoveNet but tolerant of partial occlusion, so it sits
// last in the default cascade.
type blazePoseDetector struct {
	net gocv.Net
	mu  sync.Mutex
}

// blazePose model constants: 256x256 input, landmark rows of
// (x, y, z, visibility, presence) in input-pixel coordinates. Exports
// vary by conversion: 33 body landmarks or 39 with auxiliary rows.
const (
	blazeInputSize = 256
	blazeFields    = 5
)

// blazeRows derives the landmark row count from the flat output size.
// The tensor must divide evenly into 5-value rows and carry at least
// the 17 COCO-equivalent landmarks.
func blazeRows(total int) (int, error) {
	if total <= 0 || total%blazeFields != 0 {
		return 0, fmt.Errorf("unexpected landmark tensor size %d", total)
	}
	rows := total / blazeFields
	if rows < len(cocoKeypointNames) {
		return 0, fmt.Errorf("landmark tensor has %d rows, need at least %d", rows, len(cocoKeypointNames))
	}
	return rows, nil
}

func newBlazePose(modelPath string) (Detector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", modelPath)
	}

	return &blazePoseDetector{net: net}, nil
}

func (d *blazePoseDetector) Detect(frame image.Image) ([]Keypoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(blazeInputSize, blazeInputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	nrows, err := blazeRows(out.Total())
	if err != nil {
		return nil, err
	}
	rows := out.Reshape(1, nrows)
	defer rows.Close()

	// Only the 17 COCO-equivalent landmarks are reported so both
	// backends produce the same skeleton shape for the dashboard.
	kps := make([]Keypoint, 0, len(cocoKeypointNames))
	var total float64
	for r := 0; r < len(cocoKeypointNames); r++ {
		x := float64(rows.GetFloatAt(r, 0)) / blazeInputSize
		y := float64(rows.GetFloatAt(r, 1)) / blazeInputSize
		vis := sigmoid(float64(rows.GetFloatAt(r, 3)))
		total += vis
		kps = append(kps, Keypoint{
			Name:  cocoKeypointNames[r],
			X:     clamp01(x),
			Y:     clamp01(y),
			Score: vis,
		})
	}

	if total/float64(len(kps)) < minSubjectScore {
		return nil, nil
	}
	return kps, nil
}

func (d *blazePoseDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// DefaultBuilders returns the standard variant cascade, lightest first.
func DefaultBuilders(modelDir string) []Builder {
	return []Builder{
		{
			Variant: VariantLightning,
			New: func() (Detector, error) {
				return newMoveNet(filepath.Join(modelDir, "movenet_lightning.onnx"), 192)
			},
		},
		{
			Variant: VariantThunder,
			New: func() (Detector, error) {
				return newMoveNet(filepath.Join(modelDir, "movenet_thunder.onnx"), 256)
			},
		},
		{
			Variant: VariantBlazePose,
			New: func() (Detector, error) {
				return newBlazePose(filepath.Join(modelDir, "blazepose_full.onnx"))
			},
		},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}
