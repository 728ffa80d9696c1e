package scene

import (
	"fmt"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/reflection"
)

// Add attaches a new T built by the registered constructor, so it starts
// with the same defaults as a component added by id or loaded from a file.
// On a duplicate the existing component is returned with ErrComponentExists.
func Add[T any, PT interface {
	*T
	Component
}](e *Entity) (PT, error) {
	if e.scene == nil {
		return nil, ErrEntityDestroyed
	}
	id, ok := idOf[T](e.scene)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnregisteredComponent, PT(nil))
	}
	c, err := e.AddComponentByID(id)
	if c == nil {
		return nil, err
	}
	typed, ok := c.(PT)
	if !ok {
		return nil, fmt.Errorf("%w: constructor of %T returned %T", ErrUnregisteredComponent, PT(nil), c)
	}
	return typed, err
}

// Get returns e's T, or nil.
func Get[T any, PT interface {
	*T
	Component
}](e *Entity) PT {
	id, ok := idOf[T](e.scene)
	if !ok {
		return nil
	}
	c, _ := e.components[id].(PT)
	return c
}

func Has[T any](e *Entity) bool {
	id, ok := idOf[T](e.scene)
	return ok && e.HasComponent(id)
}

func Remove[T any](e *Entity) error {
	id, ok := idOf[T](e.scene)
	if !ok {
		return ErrUnregisteredComponent
	}
	return e.RemoveComponent(id)
}

// FindFirst returns the first T in s, or nil.
func FindFirst[T any, PT interface {
	*T
	Component
}](s *Scene) PT {
	id, ok := idOf[T](s)
	if !ok {
		return nil
	}
	c, _ := s.FindFirstComponent(id).(PT)
	return c
}

// ComponentIDOf returns the registered id of T in s's registry.
func ComponentIDOf[T any](s *Scene) (models.ComponentID, bool) {
	return idOf[T](s)
}

func idOf[T any](s *Scene) (models.ComponentID, bool) {
	if s == nil {
		return 0, false
	}
	info, ok := reflection.TypeOf[T](s.registry)
	if !ok {
		return 0, false
	}
	return info.ID, true
}
