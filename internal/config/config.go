// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and ARSTEADY_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TargetCount is the number of image targets the tracking engine reports on.
	TargetCount int `koanf:"target_count"`

	// UnmountedTargets lists target indexes that have no overlay entity in the scene.
	UnmountedTargets []int `koanf:"unmounted_targets"`

	// FrameQueueSize bounds the in-memory frame dispatch queue.
	FrameQueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many recent frame ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// LossToleranceFrames is the number of consecutive lost frames before an overlay hides.
	LossToleranceFrames uint `koanf:"loss_tolerance_frames"`

	// MinConfidenceThreshold and StabilityFrames are accepted and reported but
	// not used by the gate.
	MinConfidenceThreshold float64 `koanf:"min_confidence_threshold"`
	StabilityFrames        uint    `koanf:"stability_frames"`

	// SmoothingFactor is the exponential smoothing weight in (0,1]; 1 disables smoothing.
	SmoothingFactor float64 `koanf:"smoothing_factor"`

	// HapticPulseMS is the vibration length sent on show and click.
	HapticPulseMS int `koanf:"haptic_pulse_ms"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		TargetCount:            1,
		FrameQueueSize:         4096,
		DedupeSize:             65_536,
		LossToleranceFrames:    8,
		MinConfidenceThreshold: 0.5,
		StabilityFrames:        3,
		SmoothingFactor:        0.7,
		HapticPulseMS:          50,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TargetCount < 1:
		return fmt.Errorf("%w: target_count must be at least 1, got %d", ErrInvalidConfig, c.TargetCount)
	case c.FrameQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1, got %d", ErrInvalidConfig, c.FrameQueueSize)
	case c.LossToleranceFrames < 1:
		return fmt.Errorf("%w: loss_tolerance_frames must be at least 1", ErrInvalidConfig)
	case c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1:
		return fmt.Errorf("%w: min_confidence_threshold must be within [0,1], got %v", ErrInvalidConfig, c.MinConfidenceThreshold)
	case c.SmoothingFactor <= 0 || c.SmoothingFactor > 1:
		return fmt.Errorf("%w: smoothing_factor must be within (0,1], got %v", ErrInvalidConfig, c.SmoothingFactor)
	case c.HapticPulseMS < 0:
		return fmt.Errorf("%w: haptic_pulse_ms must not be negative", ErrInvalidConfig)
	}
	for _, idx := range c.UnmountedTargets {
		if idx < 0 || idx >= c.TargetCount {
			return fmt.Errorf("%w: unmounted target %d outside [0,%d)", ErrInvalidConfig, idx, c.TargetCount)
		}
	}
	return nil
}
