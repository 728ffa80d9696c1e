package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
)

// Update starts pending components and runs OnUpdate over the active
// hierarchy in pre-order. A panicking hook aborts the phase with a
// *HookError; queued removals are applied either way.
func (s *Scene) Update(delta float32) error {
	if err := s.beginPhase(PhaseUpdate); err != nil {
		return err
	}
	err := s.walk(func(e *Entity) error { return e.update(delta) })
	return s.endPhase(err)
}

// Draw runs OnDraw over the active hierarchy.
func (s *Scene) Draw(ctx *render.Context) error {
	if err := s.beginPhase(PhaseDraw); err != nil {
		return err
	}
	err := s.walk(func(e *Entity) error { return e.draw(ctx, PhaseDraw) })
	return s.endPhase(err)
}

// DebugDraw runs OnDebugDraw over the active hierarchy.
func (s *Scene) DebugDraw(ctx *render.Context) error {
	if err := s.beginPhase(PhaseDebugDraw); err != nil {
		return err
	}
	err := s.walk(func(e *Entity) error { return e.draw(ctx, PhaseDebugDraw) })
	return s.endPhase(err)
}

func (s *Scene) beginPhase(p Phase) error {
	if s.closed {
		return ErrSceneClosed
	}
	if s.iterating {
		return fmt.Errorf("%w: %s requested during %s", ErrPhaseActive, p, s.phase)
	}
	s.iterating = true
	s.phase = p
	s.serial++
	return nil
}

// endPhase applies deferred component removals, then deferred destroys.
func (s *Scene) endPhase(err error) error {
	s.iterating = false
	s.phase = PhaseNone
	s.flushEvents()

	errs := []error{err}
	pending := s.pendingEntities
	s.pendingEntities = nil
	for _, e := range pending {
		if e.scene == nil {
			continue
		}
		errs = append(errs, e.drainPending())
	}

	destroy := s.pendingDestroy
	s.pendingDestroy = nil
	for _, h := range destroy {
		if err := s.Destroy(h); err != nil && !errors.Is(err, ErrEntityNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// walk visits enabled entities in pre-order, skipping disabled subtrees.
// Entities created while walking are picked up by the next phase, wherever
// they sit in the tree.
func (s *Scene) walk(fn func(*Entity) error) error {
	stack := []models.Handle{models.RootHandle}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := s.entities.get(h)
		if e == nil || !e.enabled || e.born == s.serial {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
		children := slices.Clone(e.children)
		slices.Reverse(children)
		stack = append(stack, children...)
	}
	return nil
}

// invoke runs a hook and converts a panic into a *HookError.
func (s *Scene) invoke(e *Entity, c Component, phase Phase, hook func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{
				Entity:    e.handle,
				Component: c.componentBase().name,
				Phase:     phase,
				Value:     r,
			}
		}
	}()
	hook()
	return nil
}
