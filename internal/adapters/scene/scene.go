// Package scene keeps an in-memory copy of the overlay entities the
// orchestrator renders to: one per mounted target, with its transform,
// visibility and running attribute animations.
package scene

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/pkg/logger"
)

// Entity is a copy of one overlay entity.
type Entity struct {
	Target     int                        `json:"target"`
	Visible    bool                       `json:"visible"`
	Position   model.Vec3                 `json:"position"`
	Rotation   model.Vec3                 `json:"rotation"`
	Scale      model.Vec3                 `json:"scale"`
	Animations map[string]model.Animation `json:"animations,omitempty"`
	Transform  mgl64.Mat4                 `json:"transform"`
}

type entity struct {
	visible    bool
	position   model.Vec3
	rotation   model.Vec3
	scale      model.Vec3
	animations map[string]model.Animation
}

func newEntity() *entity {
	return &entity{
		scale:      model.Vec3{1, 1, 1},
		animations: make(map[string]model.Animation),
	}
}

// transform composes translate, rotate X/Y/Z (degrees) and scale.
func (e *entity) transform() mgl64.Mat4 {
	m := mgl64.Translate3D(e.position[0], e.position[1], e.position[2])
	m = m.Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(e.rotation[0])))
	m = m.Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(e.rotation[1])))
	m = m.Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(e.rotation[2])))
	return m.Mul4(mgl64.Scale3D(e.scale[0], e.scale[1], e.scale[2]))
}

// Scene is a goroutine-safe overlay entity store. Calls for a target with no
// mounted entity fail with tracking.ErrMissingEntity.
type Scene struct {
	mu       sync.RWMutex
	entities map[int]*entity

	pulses    int
	lastPulse time.Duration

	logger logger.Logger
}

var (
	_ tracking.Renderer = (*Scene)(nil)
	_ tracking.Animator = (*Scene)(nil)
	_ tracking.Haptics  = (*Scene)(nil)
)

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		entities: make(map[int]*entity),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount adds a fresh entity for target, replacing any existing one.
func (s *Scene) Mount(target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[target] = newEntity()
}

// Unmount removes the entity for target. It reports whether one existed.
func (s *Scene) Unmount(target int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entities[target]
	delete(s.entities, target)
	return ok
}

// Entity returns a copy of the entity for target.
func (s *Scene) Entity(target int) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[target]
	if !ok {
		return Entity{}, false
	}
	return Entity{
		Target:     target,
		Visible:    e.visible,
		Position:   e.position,
		Rotation:   e.rotation,
		Scale:      e.scale,
		Animations: maps.Clone(e.animations),
		Transform:  e.transform(),
	}, true
}

// Pulses returns how many haptic pulses were requested and the last length.
func (s *Scene) Pulses() (int, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pulses, s.lastPulse
}

func (s *Scene) ApplyPose(_ context.Context, target int, pose model.Pose) error {
	return s.update(target, func(e *entity) {
		if pose.Position != nil {
			e.position = *pose.Position
		}
		if pose.Rotation != nil {
			e.rotation = *pose.Rotation
		}
		if pose.Scale != nil {
			e.scale = *pose.Scale
		}
	})
}

func (s *Scene) SetVisible(ctx context.Context, target int, visible bool) error {
	s.logger.Debug(ctx, "set visible", logger.Int("target", target), logger.Bool("visible", visible))
	return s.update(target, func(e *entity) {
		e.visible = visible
	})
}

func (s *Scene) Animate(_ context.Context, target int, anim model.Animation) error {
	return s.update(target, func(e *entity) {
		e.animations[anim.Name] = anim
	})
}

func (s *Scene) StopAnimation(_ context.Context, target int, name string) error {
	return s.update(target, func(e *entity) {
		delete(e.animations, name)
	})
}

func (s *Scene) Pulse(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses++
	s.lastPulse = d
	return nil
}

func (s *Scene) update(target int, fn func(*entity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[target]
	if !ok {
		return fmt.Errorf("%w: target %d", tracking.ErrMissingEntity, target)
	}
	fn(e)
	return nil
}
