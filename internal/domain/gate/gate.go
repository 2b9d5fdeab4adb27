// Package gate turns noisy per-frame found/lost signals into a stable
// show/hide decision for one tracked target.
//
// A target starts Hidden. One found signal shows it. It hides again only
// after LossToleranceFrames consecutive lost signals; any found signal in
// between resets the count without a transition.
package gate

import (
	"fmt"
	"math"
)

const (
	defaultLossToleranceFrames    = 8
	defaultMinConfidenceThreshold = 0.5
	defaultStabilityFrames        = 3

	foundConfidence = 1.0
	confidenceDecay = 0.1
)

// Transition is the visible effect of feeding one signal to the gate.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionShow
	TransitionHide
)

func (t Transition) String() string {
	switch t {
	case TransitionShow:
		return "show"
	case TransitionHide:
		return "hide"
	default:
		return "none"
	}
}

// State is the per-target gate state. The zero value is the initial state:
// hidden, zero confidence, zero frames since detection.
type State struct {
	IsTracking           bool    `json:"is_tracking"`
	Confidence           float64 `json:"confidence"`
	FramesSinceDetection uint    `json:"frames_since_detection"`
}

// Visibility names the state the gate is in.
func (s State) Visibility() string {
	if s.IsTracking {
		return "visible"
	}
	return "hidden"
}

// Gate holds the hysteresis configuration shared by all targets. It keeps no
// per-target data, so one Gate can drive any number of States.
type Gate struct {
	lossToleranceFrames    uint
	minConfidenceThreshold float64
	stabilityFrames        uint
}

// New creates a Gate. It fails with ErrInvalidConfig when the loss tolerance
// is zero or the confidence threshold is outside [0,1].
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		lossToleranceFrames:    defaultLossToleranceFrames,
		minConfidenceThreshold: defaultMinConfidenceThreshold,
		stabilityFrames:        defaultStabilityFrames,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.lossToleranceFrames == 0 {
		return nil, fmt.Errorf("%w: loss tolerance must be at least one frame", ErrInvalidConfig)
	}
	if g.minConfidenceThreshold < 0 || g.minConfidenceThreshold > 1 || math.IsNaN(g.minConfidenceThreshold) {
		return nil, fmt.Errorf("%w: min confidence threshold %v outside [0,1]", ErrInvalidConfig, g.minConfidenceThreshold)
	}
	return g, nil
}

// LossToleranceFrames returns the configured loss tolerance.
func (g *Gate) LossToleranceFrames() uint { return g.lossToleranceFrames }

// MinConfidenceThreshold returns the configured (unused) confidence threshold.
func (g *Gate) MinConfidenceThreshold() float64 { return g.minConfidenceThreshold }

// StabilityFrames returns the configured (unused) stability window.
func (g *Gate) StabilityFrames() uint { return g.stabilityFrames }

// OnFound records a found signal. It returns TransitionShow when the target
// was hidden and TransitionNone when it was already visible.
func (g *Gate) OnFound(s *State) Transition {
	s.FramesSinceDetection = 0
	s.Confidence = foundConfidence

	if s.IsTracking {
		return TransitionNone
	}
	s.IsTracking = true
	return TransitionShow
}

// OnLost records a lost signal. It returns TransitionHide exactly when the
// loss count reaches the tolerance while the target is visible.
//
// The loss counter only advances while the target is visible, so it stays
// bounded for targets that remain out of view.
func (g *Gate) OnLost(s *State) Transition {
	s.Confidence = math.Max(0, s.Confidence-confidenceDecay)

	if !s.IsTracking {
		return TransitionNone
	}
	s.FramesSinceDetection++
	if s.FramesSinceDetection >= g.lossToleranceFrames {
		s.IsTracking = false
		return TransitionHide
	}
	return TransitionNone
}
