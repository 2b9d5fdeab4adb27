// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxPoseComponent bounds every reported pose component. Differences of two
// bounded values stay far from overflow when smoothed.
const MaxPoseComponent = 1e9

// Vec3 is an x,y,z triple. It marshals to JSON as a three element array.
type Vec3 = mgl64.Vec3

// Pose is a rendered transform in which every channel is optional.
// A nil channel means "not reported"; it is neither smoothed nor applied.
type Pose struct {
	Position *Vec3 `json:"position,omitempty"`
	Rotation *Vec3 `json:"rotation,omitempty"` // Euler degrees
	Scale    *Vec3 `json:"scale,omitempty"`
}

// V returns a pointer to a new Vec3, for filling optional pose channels.
func V(x, y, z float64) *Vec3 {
	v := Vec3{x, y, z}
	return &v
}

// IsEmpty reports whether no channel is present.
func (p Pose) IsEmpty() bool {
	return p.Position == nil && p.Rotation == nil && p.Scale == nil
}

// Validate reports ErrInvalidPose when a present channel has a NaN,
// infinite or out of range component.
func (p Pose) Validate() error {
	for _, ch := range []struct {
		name string
		v    *Vec3
	}{{"position", p.Position}, {"rotation", p.Rotation}, {"scale", p.Scale}} {
		if ch.v == nil {
			continue
		}
		for i, c := range ch.v {
			if math.IsNaN(c) || math.Abs(c) > MaxPoseComponent {
				return fmt.Errorf("%w: %s[%d] = %v", ErrInvalidPose, ch.name, i, c)
			}
		}
	}
	return nil
}

// Finite reports whether every component of v is a finite number.
func Finite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can keep the pose after the source changes.
func (p Pose) Clone() Pose {
	var out Pose
	if p.Position != nil {
		out.Position = V(p.Position.X(), p.Position.Y(), p.Position.Z())
	}
	if p.Rotation != nil {
		out.Rotation = V(p.Rotation.X(), p.Rotation.Y(), p.Rotation.Z())
	}
	if p.Scale != nil {
		out.Scale = V(p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	}
	return out
}
