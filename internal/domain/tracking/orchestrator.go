// Package tracking drives overlay visibility and pose for a fixed set of
// image targets. Each target slot owns one gate state and one smoothing
// state; the orchestrator feeds them the engine's signals in delivered order
// and applies the outcome to a Renderer.
//
// Orchestrator methods are synchronous and must be called from one goroutine
// at a time.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/arsteady/internal/domain/gate"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/smoothing"
	"github.com/okian/arsteady/pkg/logger"
	"github.com/okian/arsteady/pkg/metrics"
)

const defaultHapticPulse = 50 * time.Millisecond

// Snapshot is a copy of one target slot.
type Snapshot struct {
	Target     int             `json:"target"`
	Visibility string          `json:"visibility"`
	Gate       gate.State      `json:"gate"`
	Smoothing  smoothing.State `json:"smoothing"`
	Pose       model.Pose      `json:"pose"`
}

type slot struct {
	gate      gate.State
	smoothing smoothing.State
	pose      model.Pose // last applied
}

// Orchestrator owns the per-target state and the renderer it drives.
type Orchestrator struct {
	gate     *gate.Gate
	smoother *smoothing.Smoother

	renderer Renderer
	animator Animator
	haptics  Haptics

	hapticPulse time.Duration
	slots       []slot
	visible     int

	logger logger.Logger
}

// New allocates targetCount slots, all hidden. A nil renderer is allowed and
// behaves as if no overlay entity exists.
func New(targetCount int, renderer Renderer, opts ...Option) (*Orchestrator, error) {
	if targetCount < 1 {
		return nil, fmt.Errorf("%w: target count %d", ErrInvalidConfig, targetCount)
	}

	o := &Orchestrator{
		hapticPulse: defaultHapticPulse,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.gate == nil {
		g, err := gate.New()
		if err != nil {
			return nil, err
		}
		o.gate = g
	}
	if o.smoother == nil {
		s, err := smoothing.New()
		if err != nil {
			return nil, err
		}
		o.smoother = s
	}

	if renderer == nil {
		renderer = nopRenderer{}
	}
	o.renderer = renderer
	o.animator, _ = renderer.(Animator)
	o.haptics, _ = renderer.(Haptics)

	o.slots = make([]slot, targetCount)
	for i := range o.slots {
		o.slots[i].smoothing = o.smoother.NewState()
	}
	return o, nil
}

// TargetCount returns the number of target slots.
func (o *Orchestrator) TargetCount() int { return len(o.slots) }

// Gate returns the shared gate, for reporting its configuration.
func (o *Orchestrator) Gate() *gate.Gate { return o.gate }

// Smoother returns the shared smoother.
func (o *Orchestrator) Smoother() *smoothing.Smoother { return o.smoother }

// OnFound feeds a found signal for target.
func (o *Orchestrator) OnFound(ctx context.Context, target int) error {
	s, err := o.slot(target)
	if err != nil {
		return err
	}
	metrics.RecordSignal(string(model.SignalFound))

	tr := o.gate.OnFound(&s.gate)
	o.recordConfidence(target, s)
	if tr == gate.TransitionShow {
		o.show(ctx, target, s)
	}
	return nil
}

// OnLost feeds a lost signal for target.
func (o *Orchestrator) OnLost(ctx context.Context, target int) error {
	s, err := o.slot(target)
	if err != nil {
		return err
	}
	metrics.RecordSignal(string(model.SignalLost))

	tr := o.gate.OnLost(&s.gate)
	o.recordConfidence(target, s)
	if tr == gate.TransitionHide {
		o.hide(ctx, target)
	}
	return nil
}

// OnPose smooths a raw pose for target and applies it. Poses for hidden
// targets are dropped without touching the smoothing state.
func (o *Orchestrator) OnPose(ctx context.Context, target int, raw model.Pose) error {
	s, err := o.slot(target)
	if err != nil {
		return err
	}
	if !s.gate.IsTracking || raw.IsEmpty() {
		return nil
	}

	smoothed := o.smoother.Smooth(&s.smoothing, raw)
	if raw.Position != nil && smoothed.Position != nil {
		metrics.RecordSmoothingCorrection(raw.Position.Sub(*smoothed.Position).Len())
	}
	merge(&s.pose, smoothed.Clone())

	o.check(ctx, target, "apply_pose", o.renderer.ApplyPose(ctx, target, smoothed))
	return nil
}

// HandleFrame feeds one ingested frame: the signal first, then the pose.
func (o *Orchestrator) HandleFrame(ctx context.Context, f model.Frame) error {
	switch f.Signal {
	case model.SignalFound:
		if err := o.OnFound(ctx, f.TargetID); err != nil {
			return err
		}
	case model.SignalLost:
		if err := o.OnLost(ctx, f.TargetID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", model.ErrUnknownSignal, f.Signal)
	}

	if f.Pose != nil {
		return o.OnPose(ctx, f.TargetID, *f.Pose)
	}
	return nil
}

// Click plays the click feedback on a visible target. It reports whether the
// click was accepted.
func (o *Orchestrator) Click(ctx context.Context, target int) (bool, error) {
	s, err := o.slot(target)
	if err != nil {
		return false, err
	}
	if !s.gate.IsTracking {
		metrics.RecordClick("ignored")
		return false, nil
	}

	metrics.RecordClick("accepted")
	o.animate(ctx, target, ClickAnimation())
	o.pulse(ctx, target)
	o.logger.Info(ctx, "overlay clicked", logger.Int("target", target))
	return true, nil
}

// Snapshot returns a copy of one slot.
func (o *Orchestrator) Snapshot(target int) (Snapshot, error) {
	s, err := o.slot(target)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshot(target, s), nil
}

// Snapshots returns a copy of every slot in target order.
func (o *Orchestrator) Snapshots() []Snapshot {
	out := make([]Snapshot, len(o.slots))
	for i := range o.slots {
		out[i] = snapshot(i, &o.slots[i])
	}
	return out
}

// Visible returns how many targets are currently shown.
func (o *Orchestrator) Visible() int { return o.visible }

func (o *Orchestrator) slot(target int) (*slot, error) {
	if target < 0 || target >= len(o.slots) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTarget, target)
	}
	return &o.slots[target], nil
}

func (o *Orchestrator) show(ctx context.Context, target int, s *slot) {
	o.smoother.Reset(&s.smoothing)
	o.visible++
	metrics.RecordTransition(gate.TransitionShow.String())
	metrics.UpdateVisibleTargets(o.visible)
	o.logger.Info(ctx, "target found", logger.Int("target", target))

	o.check(ctx, target, "set_visible", o.renderer.SetVisible(ctx, target, true))
	o.animate(ctx, target, EnterAnimation())
	o.animate(ctx, target, SpinAnimation())
	o.pulse(ctx, target)
}

func (o *Orchestrator) hide(ctx context.Context, target int) {
	o.visible--
	metrics.RecordTransition(gate.TransitionHide.String())
	metrics.UpdateVisibleTargets(o.visible)
	o.logger.Info(ctx, "target lost", logger.Int("target", target))

	if o.animator != nil {
		o.check(ctx, target, "stop_animation", o.animator.StopAnimation(ctx, target, AnimationSpin))
	}
	o.animate(ctx, target, ExitAnimation())
	o.check(ctx, target, "set_visible", o.renderer.SetVisible(ctx, target, false))
}

func (o *Orchestrator) animate(ctx context.Context, target int, anim model.Animation) {
	if o.animator == nil {
		return
	}
	o.check(ctx, target, "animate", o.animator.Animate(ctx, target, anim))
}

func (o *Orchestrator) pulse(ctx context.Context, target int) {
	if o.haptics == nil || o.hapticPulse == 0 {
		return
	}
	o.check(ctx, target, "pulse", o.haptics.Pulse(ctx, o.hapticPulse))
}

// check absorbs renderer errors. A missing entity is only counted.
func (o *Orchestrator) check(ctx context.Context, target int, op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrMissingEntity) {
		metrics.RecordMissingEntity()
		o.logger.Debug(ctx, "no overlay entity", logger.Int("target", target), logger.String("op", op))
		return
	}
	metrics.RecordRendererError()
	o.logger.Warn(ctx, "renderer call failed",
		logger.Int("target", target),
		logger.String("op", op),
		logger.Error(err),
	)
}

func (o *Orchestrator) recordConfidence(target int, s *slot) {
	metrics.UpdateTargetConfidence(strconv.Itoa(target), s.gate.Confidence)
}

func snapshot(target int, s *slot) Snapshot {
	return Snapshot{
		Target:     target,
		Visibility: s.gate.Visibility(),
		Gate:       s.gate,
		Smoothing:  s.smoothing,
		Pose:       s.pose.Clone(),
	}
}

func merge(dst *model.Pose, src model.Pose) {
	if src.Position != nil {
		dst.Position = src.Position
	}
	if src.Rotation != nil {
		dst.Rotation = src.Rotation
	}
	if src.Scale != nil {
		dst.Scale = src.Scale
	}
}
