package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/okian/arsteady/internal/domain/model"
)

// Renderer is the minimum capability the orchestrator needs from whatever
// draws the overlay. Implementations return ErrMissingEntity when the target
// has nothing mounted.
type Renderer interface {
	ApplyPose(ctx context.Context, target int, pose model.Pose) error
	SetVisible(ctx context.Context, target int, visible bool) error
}

// Animator is an optional Renderer capability for attribute animations.
type Animator interface {
	Animate(ctx context.Context, target int, anim model.Animation) error
	StopAnimation(ctx context.Context, target int, name string) error
}

// Haptics is an optional Renderer capability for device vibration.
type Haptics interface {
	Pulse(ctx context.Context, d time.Duration) error
}

// Fanout sends every call to each renderer in order. Optional capabilities
// are forwarded only to renderers that implement them. Errors are joined.
type Fanout []Renderer

var (
	_ Renderer = Fanout(nil)
	_ Animator = Fanout(nil)
	_ Haptics  = Fanout(nil)
)

func (f Fanout) ApplyPose(ctx context.Context, target int, pose model.Pose) error {
	var errs []error
	for _, r := range f {
		errs = append(errs, r.ApplyPose(ctx, target, pose))
	}
	return errors.Join(errs...)
}

func (f Fanout) SetVisible(ctx context.Context, target int, visible bool) error {
	var errs []error
	for _, r := range f {
		errs = append(errs, r.SetVisible(ctx, target, visible))
	}
	return errors.Join(errs...)
}

func (f Fanout) Animate(ctx context.Context, target int, anim model.Animation) error {
	var errs []error
	for _, r := range f {
		if a, ok := r.(Animator); ok {
			errs = append(errs, a.Animate(ctx, target, anim))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) StopAnimation(ctx context.Context, target int, name string) error {
	var errs []error
	for _, r := range f {
		if a, ok := r.(Animator); ok {
			errs = append(errs, a.StopAnimation(ctx, target, name))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Pulse(ctx context.Context, d time.Duration) error {
	var errs []error
	for _, r := range f {
		if h, ok := r.(Haptics); ok {
			errs = append(errs, h.Pulse(ctx, d))
		}
	}
	return errors.Join(errs...)
}

type nopRenderer struct{}

func (nopRenderer) ApplyPose(context.Context, int, model.Pose) error { return ErrMissingEntity }
func (nopRenderer) SetVisible(context.Context, int, bool) error      { return ErrMissingEntity }
