package scene

import (
	"fmt"
	"reflect"

	"github.com/jinzhu/copier"

	"github.com/fussion/engine/internal/core/models"
)

// Duplicate deep-copies the subtree rooted at h next to the original. The
// copies get fresh handles and local ids; component fields are copied with
// copier and every copy goes through OnCreate like a new component.
func (s *Scene) Duplicate(h models.Handle) (*Entity, error) {
	if h.IsRoot() {
		return nil, ErrRootEntity
	}
	src := s.entities.get(h)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, h)
	}
	return s.duplicate(src, src.parent)
}

func (s *Scene) duplicate(src *Entity, parent models.Handle) (*Entity, error) {
	dst, err := s.CreateEntity(src.name, parent)
	if err != nil {
		return nil, err
	}
	dst.enabled = src.enabled
	dst.transform = src.transform

	for _, id := range src.order {
		c, err := cloneComponent(src.components[id])
		if err != nil {
			return dst, err
		}
		if _, err := dst.AddComponent(c); err != nil {
			return dst, err
		}
	}
	for _, child := range src.children {
		ce := s.entities.get(child)
		if ce == nil {
			continue
		}
		if _, err := s.duplicate(ce, dst.handle); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// cloneComponent returns a detached deep copy of c.
func cloneComponent(c Component) (Component, error) {
	src := c.componentBase()
	clone := reflect.New(reflect.TypeOf(c).Elem()).Interface().(Component)
	if err := copier.CopyWithOption(clone, c, copier.Option{DeepCopy: true, IgnoreEmpty: false}); err != nil {
		return nil, fmt.Errorf("copying %s: %w", src.name, err)
	}
	*clone.componentBase() = Base{disabled: src.disabled}
	return clone, nil
}
