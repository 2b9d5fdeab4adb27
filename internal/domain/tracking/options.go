package tracking

import (
	"time"

	"github.com/okian/arsteady/internal/domain/gate"
	"github.com/okian/arsteady/internal/domain/smoothing"
	"github.com/okian/arsteady/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithGate sets the hysteresis gate shared by all targets.
func WithGate(g *gate.Gate) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.gate = g
		}
	}
}

// WithSmoother sets the pose smoother shared by all targets.
func WithSmoother(s *smoothing.Smoother) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.smoother = s
		}
	}
}

// WithHapticPulse sets the vibration length on show and click. Zero disables it.
func WithHapticPulse(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.hapticPulse = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
