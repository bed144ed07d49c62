// Package framebuf implements the motion-gated frame window that feeds
// remote shot classification.
//
// The buffer holds a fixed-size window of recently captured frames and a
// motion flag. Frames are rate limited on the way in, scored for motion
// against their predecessor, and the window only reports ready for
// inference once it is full and motion has been observed. A static scene
// never triggers a remote call no matter how long the camera runs.
package framebuf

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/strokelab/strokecoach/internal/metrics"
)

// Record is one captured frame owned by the buffer.
type Record struct {
	// JPEG is the compressed frame as sent to the classifier.
	JPEG []byte

	// Raster is the downsampled pixel grid used for motion scoring.
	Raster *image.RGBA

	// SourceDims is the original frame size before downsampling.
	SourceDims image.Point

	// CapturedAt is when the frame was accepted.
	CapturedAt time.Time
}

// Config holds buffer tuning parameters.
type Config struct {
	// Capacity is the window size; batches sent to the classifier
	// always contain exactly this many frames.
	Capacity int

	// MinInterval is the minimum spacing between accepted frames.
	// Pushes arriving sooner are no-ops.
	MinInterval time.Duration

	// MotionRatio is the changed-pixel fraction above which a frame
	// pair counts as motion.
	MotionRatio float64

	// LumaDelta is the per-pixel luminance change (0-255 scale) above
	// which a pixel counts as changed.
	LumaDelta int

	// SampleWidth and SampleHeight are the downsampled raster
	// dimensions. The classifier backend expects 224x224 input.
	SampleWidth  int
	SampleHeight int

	// JPEGQuality for the encoded frame.
	JPEGQuality int

	// Now is the clock source; defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:     8,
		MinInterval:  200 * time.Millisecond,
		MotionRatio:  0.15,
		LumaDelta:    30,
		SampleWidth:  224,
		SampleHeight: 224,
		JPEGQuality:  85,
	}
}

// Buffer is a bounded window of captured frames with a motion gate.
// Safe for concurrent use: the capture loop pushes while the inference
// coordinator resets the motion flag from its own goroutine.
type Buffer struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	records    []Record
	lastAccept time.Time
	motionSeen bool
}

// New creates a buffer. Zero or negative config fields fall back to
// defaults.
func New(cfg Config) *Buffer {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.MotionRatio <= 0 {
		cfg.MotionRatio = def.MotionRatio
	}
	if cfg.LumaDelta <= 0 {
		cfg.LumaDelta = def.LumaDelta
	}
	if cfg.SampleWidth <= 0 {
		cfg.SampleWidth = def.SampleWidth
	}
	if cfg.SampleHeight <= 0 {
		cfg.SampleHeight = def.SampleHeight
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Buffer{
		cfg:     cfg,
		logger:  slog.Default().With("component", "framebuf"),
		records: make([]Record, 0, cfg.Capacity),
	}
}

// Push offers a frame to the window. It returns true when the window is
// ready for inference: full to capacity with motion observed since the
// last reset.
//
// Frames arriving within MinInterval of the previous accepted frame are
// dropped without being consumed.
func (b *Buffer) Push(frame image.Image) bool {
	now := b.cfg.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lastAccept.IsZero() && now.Sub(b.lastAccept) < b.cfg.MinInterval {
		return false
	}

	raster := b.downsample(frame)
	encoded, err := encodeJPEG(raster, b.cfg.JPEGQuality)
	if err != nil {
		// Encoding a valid RGBA raster should not fail; treat it as
		// a skipped frame rather than poisoning the window.
		b.logger.Warn("frame encode failed", "error", err)
		return false
	}

	srcDims := frame.Bounds().Size()
	if prev := b.last(); prev != nil {
		var score float64
		if prev.SourceDims != srcDims {
			// A mid-window resolution change is indistinguishable
			// from the whole scene changing.
			score = 1.0
		} else {
			score = motionScore(prev.Raster, raster, b.cfg.LumaDelta)
		}
		if score > b.cfg.MotionRatio {
			if !b.motionSeen {
				metrics.MotionEvents.Inc()
				b.logger.Debug("motion observed", "score", score)
			}
			b.motionSeen = true
		}
	}

	metrics.FramesBuffered.Inc()
	b.lastAccept = now
	b.records = append(b.records, Record{
		JPEG:       encoded,
		Raster:     raster,
		SourceDims: srcDims,
		CapturedAt: now,
	})
	if len(b.records) > b.cfg.Capacity {
		b.records = b.records[1:]
	}

	return len(b.records) == b.cfg.Capacity && b.motionSeen
}

// Frames returns the window contents oldest first, right-padded by
// duplicating the last record so the result always has exactly Capacity
// entries. An empty window returns nil.
func (b *Buffer) Frames() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}

	out := make([]Record, b.cfg.Capacity)
	copy(out, b.records)
	for i := len(b.records); i < b.cfg.Capacity; i++ {
		out[i] = b.records[len(b.records)-1]
	}
	return out
}

// Len returns the number of frames currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// MotionSeen reports whether motion has been observed since the last
// reset.
func (b *Buffer) MotionSeen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.motionSeen
}

// ResetMotion clears the motion flag without discarding frames. Called
// after an inference attempt so the same window is not re-submitted
// until new movement is seen.
func (b *Buffer) ResetMotion() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.motionSeen = false
}

// Clear empties the window and resets the motion flag and rate gate.
// Called on session start and stop.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = b.records[:0]
	b.motionSeen = false
	b.lastAccept = time.Time{}
}

// last returns the most recent record, or nil. Caller must hold mu.
func (b *Buffer) last() *Record {
	if len(b.records) == 0 {
		return nil
	}
	return &b.records[len(b.records)-1]
}

// downsample scales the frame to the configured sample dimensions.
func (b *Buffer) downsample(frame image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, b.cfg.SampleWidth, b.cfg.SampleHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JPEGs extracts the encoded payloads from a slice of records, in order.
func JPEGs(records []Record) [][]byte {
	out := make([][]byte, len(records))
	for i := range records {
		out[i] = records[i].JPEG
	}
	return out
}
