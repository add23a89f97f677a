package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes the video device and its two operating profiles.
type CameraConfig struct {
	Device string `yaml:"device"` // e.g. /dev/video0

	PreviewWidth  int `yaml:"preview_width"`
	PreviewHeight int `yaml:"preview_height"`
	LoresWidth    int `yaml:"lores_width"` // auxiliary low-res stream for future analysis
	LoresHeight   int `yaml:"lores_height"`
	StillWidth    int `yaml:"still_width"`
	StillHeight   int `yaml:"still_height"`

	SettleDelayMs  int `yaml:"settle_delay_ms"`  // AE/AF stabilization after a resolution switch
	FrameTimeoutMs int `yaml:"frame_timeout_ms"` // max wait for a frame from the driver
}

// ButtonConfig describes the hardware shutter button.
type ButtonConfig struct {
	Pin        int  `yaml:"pin"`         // BCM pin number
	DebounceMs int  `yaml:"debounce_ms"` // collapse raw edges within this window
	Mock       bool `yaml:"mock"`        // use mock GPIO (dev/test off the Pi)
}

// StorageConfig describes where photos land.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// ClockConfig controls the startup NTP sanity check.
type ClockConfig struct {
	NTPServer   string `yaml:"ntp_server"`
	MaxOffsetMs int    `yaml:"max_offset_ms"`
	Skip        bool   `yaml:"skip"`
}

// Config aggregates all application configuration.
type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Button  ButtonConfig  `yaml:"button"`
	Storage StorageConfig `yaml:"storage"`
	Clock   ClockConfig   `yaml:"clock"`
}

// Default returns the configuration used when no file is given. The sizes
// match the Raspberry Pi HQ camera (IMX477): binned preview, full-sensor still.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:         "/dev/video0",
			PreviewWidth:   1640,
			PreviewHeight:  1232,
			LoresWidth:     640,
			LoresHeight:    480,
			StillWidth:     4056,
			StillHeight:    3040,
			SettleDelayMs:  1000,
			FrameTimeoutMs: 3000,
		},
		Button: ButtonConfig{
			Pin:        17,
			DebounceMs: 300,
		},
		Storage: StorageConfig{
			Dir: "photos",
		},
		Clock: ClockConfig{
			NTPServer:   "pool.ntp.org",
			MaxOffsetMs: 5000,
		},
	}
}

// Load reads a YAML file and returns the configuration. A missing file is not
// an error: the controller must run with zero setup, so defaults apply and
// only explicitly set fields override them.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Camera.Device == "" {
		return fmt.Errorf("camera.device is required")
	}
	if c.Camera.PreviewWidth <= 0 || c.Camera.PreviewHeight <= 0 {
		return fmt.Errorf("preview size must be positive, got %dx%d", c.Camera.PreviewWidth, c.Camera.PreviewHeight)
	}
	if c.Camera.StillWidth <= 0 || c.Camera.StillHeight <= 0 {
		return fmt.Errorf("still size must be positive, got %dx%d", c.Camera.StillWidth, c.Camera.StillHeight)
	}
	if c.Camera.SettleDelayMs < 0 {
		return fmt.Errorf("settle_delay_ms must be >= 0, got %d", c.Camera.SettleDelayMs)
	}
	if c.Button.Pin < 0 {
		return fmt.Errorf("button.pin must be >= 0, got %d", c.Button.Pin)
	}
	if c.Button.DebounceMs < 0 {
		return fmt.Errorf("button.debounce_ms must be >= 0, got %d", c.Button.DebounceMs)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	return nil
}

// SettleDelay returns the pause after a resolution switch.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Camera.SettleDelayMs) * time.Millisecond
}

// FrameTimeout returns the max wait for a single frame.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.Camera.FrameTimeoutMs) * time.Millisecond
}

// Debounce returns the button debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Button.DebounceMs) * time.Millisecond
}

// MaxClockOffset returns the tolerated NTP offset.
func (c *Config) MaxClockOffset() time.Duration {
	return time.Duration(c.Clock.MaxOffsetMs) * time.Millisecond
}
