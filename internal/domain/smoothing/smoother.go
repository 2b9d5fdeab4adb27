// Package smoothing implements a per-channel exponential moving average over
// overlay poses.
//
// Rotation is averaged component-wise in Euler degrees with no wraparound
// handling: averaging 350 and 10 moves through 180.
package smoothing

import (
	"fmt"
	"math"

	"github.com/okian/arsteady/internal/domain/model"
)

const defaultSmoothingFactor = 0.7

// State is the per-target smoothing memory.
type State struct {
	LastPosition    model.Vec3 `json:"last_position"`
	LastRotation    model.Vec3 `json:"last_rotation"`
	LastScale       model.Vec3 `json:"last_scale"`
	IsFirstFrame    bool       `json:"is_first_frame"`
	SmoothingFactor float64    `json:"smoothing_factor"`
}

// Smoother carries the shared factor and builds States from it.
type Smoother struct {
	factor float64
}

// New creates a Smoother. It fails with ErrInvalidConfig when the factor is
// outside (0,1].
func New(opts ...Option) (*Smoother, error) {
	s := &Smoother{factor: defaultSmoothingFactor}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.factor > 0 && s.factor <= 1) || math.IsNaN(s.factor) {
		return nil, fmt.Errorf("%w: smoothing factor %v outside (0,1]", ErrInvalidConfig, s.factor)
	}
	return s, nil
}

// Factor returns the configured smoothing factor.
func (s *Smoother) Factor() float64 { return s.factor }

// NewState returns a State waiting for its first frame.
func (s *Smoother) NewState() State {
	return State{IsFirstFrame: true, SmoothingFactor: s.factor}
}

// Smooth feeds one raw pose into st and returns the smoothed pose. Only the
// channels present in raw are updated and returned.
func (s *Smoother) Smooth(st *State, raw model.Pose) model.Pose {
	if st.IsFirstFrame {
		out := adopt(st, raw)
		st.IsFirstFrame = false
		return out
	}

	var out model.Pose
	if raw.Position != nil {
		st.LastPosition = blend(st.LastPosition, *raw.Position, st.SmoothingFactor)
		out.Position = vec(st.LastPosition)
	}
	if raw.Rotation != nil {
		st.LastRotation = blend(st.LastRotation, *raw.Rotation, st.SmoothingFactor)
		out.Rotation = vec(st.LastRotation)
	}
	if raw.Scale != nil {
		st.LastScale = blend(st.LastScale, *raw.Scale, st.SmoothingFactor)
		out.Scale = vec(st.LastScale)
	}
	return out
}

// Reset makes the next Smooth adopt its input verbatim. The last values are
// kept until then.
func (s *Smoother) Reset(st *State) {
	st.IsFirstFrame = true
}

func adopt(st *State, raw model.Pose) model.Pose {
	var out model.Pose
	if raw.Position != nil {
		st.LastPosition = *raw.Position
		out.Position = vec(st.LastPosition)
	}
	if raw.Rotation != nil {
		st.LastRotation = *raw.Rotation
		out.Rotation = vec(st.LastRotation)
	}
	if raw.Scale != nil {
		st.LastScale = *raw.Scale
		out.Scale = vec(st.LastScale)
	}
	return out
}

// last + (raw - last) * factor. A result that overflows is replaced by raw
// so the state never holds Inf or NaN.
func blend(last, raw model.Vec3, factor float64) model.Vec3 {
	if factor == 1 {
		return raw
	}
	out := last.Add(raw.Sub(last).Mul(factor))
	if !model.Finite(out) {
		return raw
	}
	return out
}

func vec(v model.Vec3) *model.Vec3 {
	return &v
}
