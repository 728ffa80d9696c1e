package scene

import (
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
)

// State is the lifecycle position of a component.
type State uint8

const (
	StateDetached State = iota
	StateCreated
	StateStarted
	StateDestroyed
)

// Component is implemented by every type that embeds Base. Behaviour is
// opted into through the capability interfaces below; a component may
// implement any subset of them, plus serialization.Serializable for
// persistent fields.
type Component interface {
	componentBase() *Base
}

type (
	// Creator runs once, right after the component is attached.
	Creator interface{ OnCreate() }
	// Starter runs once before the first OnUpdate, after every component
	// attached so far has been created.
	Starter interface{ OnStart() }
	// Updater runs every tick while the component and its entity are active.
	Updater interface{ OnUpdate(delta float32) }
	// Drawer contributes to the frame's render context.
	Drawer interface{ OnDraw(ctx *render.Context) }
	// DebugDrawer contributes editor gizmos.
	DebugDrawer interface{ OnDebugDraw(ctx *render.Context) }
	// Destroyer runs once before the component is unlinked.
	Destroyer interface{ OnDestroy() }
)

// Base carries the bookkeeping shared by all components. Embed it by value.
type Base struct {
	entity   *Entity
	id       models.ComponentID
	name     string
	state    State
	disabled bool
}

func (b *Base) componentBase() *Base { return b }

// Entity returns the owning entity, or nil once the component is detached.
func (b *Base) Entity() *Entity { return b.entity }

// Scene returns the scene of the owning entity.
func (b *Base) Scene() *Scene {
	if b.entity == nil {
		return nil
	}
	return b.entity.scene
}

func (b *Base) TypeID() models.ComponentID { return b.id }
func (b *Base) TypeName() string           { return b.name }
func (b *Base) State() State               { return b.state }
func (b *Base) Enabled() bool              { return !b.disabled }

func (b *Base) SetEnabled(enabled bool) {
	if b.disabled == !enabled {
		return
	}
	b.disabled = !enabled
	if s := b.Scene(); s != nil {
		s.SetDirty(true)
	}
}

// IsActive reports whether the component's hooks currently run.
func (b *Base) IsActive() bool {
	return !b.disabled && b.entity != nil && b.entity.IsActive()
}
