package service

import (
	"time"

	"github.com/okian/arsteady/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTargetCount sets how many image targets are tracked.
func WithTargetCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.targetCount = n
		}
	}
}

// WithUnmountedTargets leaves the given targets without an overlay entity.
func WithUnmountedTargets(targets ...int) Option {
	return func(s *Service) {
		s.unmounted = append(s.unmounted[:0], targets...)
	}
}

// WithQueueSize sets the maximum number of queued frames.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many frame IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLossToleranceFrames sets how many consecutive lost frames hide a target.
// Zero is passed through and rejected by Start.
func WithLossToleranceFrames(frames uint) Option {
	return func(s *Service) {
		s.lossToleranceFrames = frames
	}
}

// WithMinConfidenceThreshold records the gate's confidence threshold.
func WithMinConfidenceThreshold(threshold float64) Option {
	return func(s *Service) {
		s.minConfidenceThreshold = threshold
	}
}

// WithStabilityFrames records the gate's stability window.
func WithStabilityFrames(frames uint) Option {
	return func(s *Service) {
		s.stabilityFrames = frames
	}
}

// WithSmoothingFactor sets the pose smoothing factor. It is validated by Start.
func WithSmoothingFactor(factor float64) Option {
	return func(s *Service) {
		s.smoothingFactor = factor
	}
}

// WithHapticPulse sets the vibration length on show and click.
func WithHapticPulse(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.hapticPulse = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
