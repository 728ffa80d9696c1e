// Package components provides the built-in component types.
package components

import (
	"reflect"

	"github.com/fussion/engine/internal/core/reflection"
)

const (
	CategoryRendering = "Rendering"
	CategoryPhysics   = "Physics"
	CategoryBehaviour = "Behaviour"
	CategoryScripting = "Scripting"
)

// RegisterAll adds every built-in component to r.
func RegisterAll(r *reflection.Registry) error {
	for _, info := range []reflection.TypeInfo{
		typeInfo("PointLight", CategoryRendering, NewPointLight),
		typeInfo("DirectionalLight", CategoryRendering, NewDirectionalLight),
		typeInfo("MeshRenderer", CategoryRendering, NewMeshRenderer),
		typeInfo("Environment", CategoryRendering, NewEnvironment),
		typeInfo("Collider", CategoryPhysics, NewCollider),
		typeInfo("Rotator", CategoryBehaviour, NewRotator),
		typeInfo("Script", CategoryScripting, func() *Script { return &Script{} }),
	} {
		if err := r.Register(info); err != nil {
			return err
		}
	}
	return nil
}

func typeInfo[T any](name, category string, ctor func() *T) reflection.TypeInfo {
	return reflection.TypeInfo{
		Name:     name,
		Category: category,
		Type:     reflect.TypeFor[T](),
		New:      func() any { return ctor() },
	}
}
