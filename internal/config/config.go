// Package config provides the configuration schema and loader for the
// strokecoach capture pipeline.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Values come from an optional
// YAML file with environment variable overrides applied on top.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Camera  CameraConfig  `yaml:"camera"`
	Capture CaptureConfig `yaml:"capture"`
	Pose    PoseConfig    `yaml:"pose"`
	Speech  SpeechConfig  `yaml:"speech"`
}

// ServerConfig holds settings for the dashboard and metrics listeners.
type ServerConfig struct {
	// DashboardAddr is the fiber dashboard listen address.
	DashboardAddr string `yaml:"dashboard_addr"`

	// MetricsAddr is the Prometheus listener address. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// BackendConfig locates the remote classification backend.
type BackendConfig struct {
	// BaseURL of the classifier API, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`

	// Timeout for a single classification round-trip.
	Timeout time.Duration `yaml:"timeout"`
}

// CameraConfig selects and shapes the local capture device.
type CameraConfig struct {
	// DeviceID is the video device index (0 = default webcam).
	DeviceID int `yaml:"device_id"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CaptureConfig tunes the frame pipeline cadences and motion gate.
type CaptureConfig struct {
	// WindowSize is the number of frames per classification batch.
	WindowSize int `yaml:"window_size"`

	// CaptureInterval is the minimum spacing between buffered frames.
	CaptureInterval time.Duration `yaml:"capture_interval"`

	// PoseInterval is the skeleton sampling cadence.
	PoseInterval time.Duration `yaml:"pose_interval"`

	// MotionRatio is the changed-pixel fraction that counts as motion.
	MotionRatio float64 `yaml:"motion_ratio"`
}

// PoseConfig locates the pose estimation models.
type PoseConfig struct {
	// ModelDir is the directory containing the ONNX model variants.
	ModelDir string `yaml:"model_dir"`
}

// SpeechConfig tunes voice feedback.
type SpeechConfig struct {
	// Disabled turns off audio feedback entirely.
	Disabled bool `yaml:"disabled"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			DashboardAddr: ":8080",
			MetricsAddr:   ":9090",
			LogLevel:      "info",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    1280,
			Height:   720,
		},
		Capture: CaptureConfig{
			WindowSize:      8,
			CaptureInterval: 200 * time.Millisecond,
			PoseInterval:    100 * time.Millisecond,
			MotionRatio:     0.15,
		},
		Pose: PoseConfig{
			ModelDir: "models",
		},
	}
}

// Load reads the YAML configuration file at path, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults plus environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: open %q: %w", path, err)
			}
		} else {
			defer f.Close()
			if err := decode(f, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of defaults.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		c.Server.DashboardAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("POSE_MODEL_DIR"); v != "" {
		c.Pose.ModelDir = v
	}
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if c.Capture.WindowSize <= 0 {
		return fmt.Errorf("config: capture.window_size must be positive, got %d", c.Capture.WindowSize)
	}
	if c.Capture.MotionRatio < 0 || c.Capture.MotionRatio > 1 {
		return fmt.Errorf("config: capture.motion_ratio must be in [0,1], got %v", c.Capture.MotionRatio)
	}
	switch c.Server.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: server.log_level %q is invalid; valid values: debug, info, warn, error", c.Server.LogLevel)
	}
	return nil
}
