package scene

import (
	"errors"
	"fmt"

	"github.com/fussion/engine/internal/core/models"
)

// Scene graph errors
var (
	// Lookup misses

	ErrEntityNotFound    = errors.New("entity not found")
	ErrComponentNotFound = errors.New("component not found")

	// Structural invariant violations

	ErrRootEntity      = errors.New("operation not allowed on the root entity")
	ErrParentCycle     = errors.New("parent would create a cycle")
	ErrForeignEntity   = errors.New("entity belongs to another scene")
	ErrEntityDestroyed = errors.New("entity is destroyed")
	ErrHandleInUse     = errors.New("handle already in use")

	// Components

	ErrComponentExists       = errors.New("component of this type already attached")
	ErrComponentAttached     = errors.New("component instance already attached")
	ErrUnregisteredComponent = errors.New("component type not registered")

	// Phases

	ErrPhaseActive = errors.New("operation not allowed while a phase is iterating")
	ErrSceneClosed = errors.New("scene is closed")
)

// Phase names the lifecycle step during which a hook runs.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseCreate
	PhaseStart
	PhaseUpdate
	PhaseDraw
	PhaseDebugDraw
	PhaseDestroy
	PhaseDeserialize
)

func (p Phase) String() string {
	switch p {
	case PhaseCreate:
		return "create"
	case PhaseStart:
		return "start"
	case PhaseUpdate:
		return "update"
	case PhaseDraw:
		return "draw"
	case PhaseDebugDraw:
		return "debug-draw"
	case PhaseDestroy:
		return "destroy"
	case PhaseDeserialize:
		return "deserialize"
	default:
		return "none"
	}
}

// HookError reports a panic raised by a component hook. It aborts the phase
// it happened in.
type HookError struct {
	Entity    models.Handle
	Component string
	Phase     Phase
	Value     any
}

func (e *HookError) Error() string {
	return fmt.Sprintf("component %s on entity %s panicked during %s: %v", e.Component, e.Entity, e.Phase, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *HookError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
