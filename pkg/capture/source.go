// Package capture acquires webcam frames and drives the per-frame
// processing loop: pose sampling, buffer feeding, and firing inference
// when a frame window is ready.
package capture

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrCameraDenied is returned when the camera device cannot be
// acquired, typically because another process holds it or the OS
// refused access.
var ErrCameraDenied = errors.New("capture: camera access denied")

// Source produces frames one at a time. Grab blocks until the next
// frame is available or fails.
type Source interface {
	Grab() (image.Image, error)
	Close() error
}

// Webcam reads frames from a local camera device via OpenCV.
type Webcam struct {
	cam *gocv.VideoCapture
	mat gocv.Mat
}

var _ Source = (*Webcam)(nil)

// OpenWebcam acquires the camera device and requests the given frame
// size. A zero width or height leaves the driver default in place.
func OpenWebcam(deviceID, width, height int) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraDenied, deviceID, err)
	}
	if width > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		cam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Webcam{cam: cam, mat: gocv.NewMat()}, nil
}

// Grab reads the next frame. The returned image is a copy and stays
// valid after subsequent calls.
func (w *Webcam) Grab() (image.Image, error) {
	if ok := w.cam.Read(&w.mat); !ok {
		return nil, errors.New("capture: camera read failed")
	}
	if w.mat.Empty() {
		return nil, errors.New("capture: camera produced empty frame")
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("capture: convert frame: %w", err)
	}
	return img, nil
}

// Close releases the camera device.
func (w *Webcam) Close() error {
	if err := w.mat.Close(); err != nil {
		return err
	}
	return w.cam.Close()
}
