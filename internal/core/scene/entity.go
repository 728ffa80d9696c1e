package scene

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
)

// Entity is a node of the scene graph. It owns its components and names
// its parent and children by handle.
//
// An *Entity obtained from a Scene is borrowed: it stays valid until the
// entity is destroyed. Code that holds on to an entity across frames should
// keep its Handle (or an EntityRef) and re-resolve it.
type Entity struct {
	scene    *Scene
	handle   models.Handle
	ref      Ref
	parent   models.Handle
	children []models.Handle

	components map[models.ComponentID]Component
	// order holds the component ids ascending; fan-out follows it.
	order   []models.ComponentID
	pending []models.ComponentID

	name      string
	transform Transform
	enabled   bool
	localID   uint32

	// serial of the phase the entity was created in, 0 outside phases
	born  uint64
	dying bool
}

func newEntity(s *Scene, h models.Handle, name string) *Entity {
	return &Entity{
		scene:      s,
		handle:     h,
		components: make(map[models.ComponentID]Component),
		name:       name,
		transform:  Identity(),
		enabled:    true,
	}
}

func (e *Entity) Handle() models.Handle { return e.handle }
func (e *Entity) Ref() Ref              { return e.ref }
func (e *Entity) Scene() *Scene         { return e.scene }
func (e *Entity) Name() string          { return e.name }
func (e *Entity) IsRoot() bool          { return e.handle.IsRoot() }

// Alive reports whether the entity is still part of its scene.
func (e *Entity) Alive() bool { return e.scene != nil }

// LocalID is the scene-local id used by object picking; 0 for the root.
func (e *Entity) LocalID() uint32 { return e.localID }

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.name, e.handle)
}

func (e *Entity) SetName(name string) {
	if e.name == name {
		return
	}
	e.name = name
	e.touch()
}

func (e *Entity) Enabled() bool { return e.enabled }

func (e *Entity) SetEnabled(enabled bool) {
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	e.touch()
}

// IsActive reports whether the entity and all of its ancestors are enabled.
func (e *Entity) IsActive() bool {
	for p := e; p != nil; p = p.Parent() {
		if !p.enabled {
			return false
		}
	}
	return e.scene != nil
}

// ParentHandle returns the parent's handle. The root returns RootHandle.
func (e *Entity) ParentHandle() models.Handle { return e.parent }

// Parent returns the parent entity, or nil for the root.
func (e *Entity) Parent() *Entity {
	if e.IsRoot() || e.scene == nil {
		return nil
	}
	return e.scene.GetEntity(e.parent)
}

// Children returns a copy of the child handles in order.
func (e *Entity) Children() []models.Handle {
	return slices.Clone(e.children)
}

// ChildCount returns the number of direct children.
func (e *Entity) ChildCount() int { return len(e.children) }

// IsDescendantOf reports whether other is a strict ancestor of e.
func (e *Entity) IsDescendantOf(other *Entity) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p == other {
			return true
		}
	}
	return false
}

// SetParent moves e under parent; a nil parent means the scene root. The
// old parent's child list, the new parent's child list and e's parent
// handle are updated together.
func (e *Entity) SetParent(parent *Entity) error {
	if e.scene == nil {
		return ErrEntityDestroyed
	}
	if parent == nil {
		parent = e.scene.root
	}
	if e.IsRoot() {
		return ErrRootEntity
	}
	if parent.scene != e.scene {
		if parent.scene == nil {
			return ErrEntityDestroyed
		}
		return ErrForeignEntity
	}
	if parent == e || parent.IsDescendantOf(e) {
		return fmt.Errorf("%w: %s under %s", ErrParentCycle, e, parent)
	}
	if parent.handle == e.parent {
		return nil
	}

	old := e.parent
	if prev := e.scene.GetEntity(old); prev != nil {
		prev.removeChild(e.handle)
	}
	parent.children = append(parent.children, e.handle)
	e.parent = parent.handle
	e.scene.publish(EventEntityReparented, EntityEvent{Handle: e.handle, Parent: parent.handle, PreviousParent: old, Name: e.name})
	e.touch()
	return nil
}

func (e *Entity) removeChild(h models.Handle) {
	if i := slices.Index(e.children, h); i >= 0 {
		e.children = slices.Delete(e.children, i, i+1)
	}
}

// Transform returns a copy of the local transform.
func (e *Entity) Transform() Transform { return e.transform }

func (e *Entity) SetTransform(t Transform) {
	e.transform = t
	e.touch()
}

func (e *Entity) Position() mgl32.Vec3 { return e.transform.Position }
func (e *Entity) Rotation() mgl32.Vec3 { return e.transform.Rotation }
func (e *Entity) Scale() mgl32.Vec3    { return e.transform.Scale }

func (e *Entity) SetPosition(v mgl32.Vec3) {
	e.transform.Position = v
	e.touch()
}

func (e *Entity) SetRotation(v mgl32.Vec3) {
	e.transform.Rotation = v
	e.touch()
}

func (e *Entity) SetScale(v mgl32.Vec3) {
	e.transform.Scale = v
	e.touch()
}

// LocalMatrix is the transform relative to the parent.
func (e *Entity) LocalMatrix() mgl32.Mat4 { return e.transform.Matrix() }

// WorldMatrix walks the parent chain up to the root. O(depth), uncached.
func (e *Entity) WorldMatrix() mgl32.Mat4 {
	m := e.LocalMatrix()
	for p := e.Parent(); p != nil; p = p.Parent() {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldPosition is the translation column of WorldMatrix.
func (e *Entity) WorldPosition() mgl32.Vec3 {
	return e.WorldMatrix().Col(3).Vec3()
}

func (e *Entity) touch() {
	if e.scene != nil {
		e.scene.SetDirty(true)
	}
}

// AddComponent attaches c, a pointer to a registered component type, and
// runs its OnCreate hook. If a component of the same type is already
// attached, the existing instance is returned together with
// ErrComponentExists and c is left untouched.
func (e *Entity) AddComponent(c Component) (Component, error) {
	if e.scene == nil {
		return nil, ErrEntityDestroyed
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil component", ErrUnregisteredComponent)
	}
	info, ok := e.scene.registry.LookupType(reflect.TypeOf(c))
	if !ok || reflect.TypeOf(c).Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %T", ErrUnregisteredComponent, c)
	}
	if existing, ok := e.components[info.ID]; ok {
		return existing, fmt.Errorf("%w: %s on %s", ErrComponentExists, info.Name, e)
	}
	b := c.componentBase()
	if b.state != StateDetached {
		return nil, fmt.Errorf("%w: %s", ErrComponentAttached, info.Name)
	}

	b.entity = e
	b.id = info.ID
	b.name = info.Name
	b.state = StateCreated
	e.components[info.ID] = c
	pos, _ := slices.BinarySearch(e.order, info.ID)
	e.order = slices.Insert(e.order, pos, info.ID)

	if hook, ok := c.(Creator); ok {
		err := e.scene.invoke(e, c, PhaseCreate, hook.OnCreate)
		if err != nil && b.state == StateCreated {
			e.unlink(info.ID)
			b.entity = nil
			b.state = StateDetached
		}
		if err != nil {
			return nil, err
		}
	}
	// OnCreate may have destroyed the owner or removed c again.
	if e.scene == nil {
		return nil, ErrEntityDestroyed
	}
	if b.state == StateDestroyed {
		return nil, ErrComponentNotFound
	}

	e.scene.publish(EventComponentAdded, ComponentEvent{Entity: e.handle, Component: info.ID, Type: info.Name})
	e.touch()
	return c, nil
}

// AddComponentByID constructs and attaches the registered type id.
func (e *Entity) AddComponentByID(id models.ComponentID) (Component, error) {
	if e.scene == nil {
		return nil, ErrEntityDestroyed
	}
	v, err := e.scene.registry.New(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnregisteredComponent, err)
	}
	c, ok := v.(Component)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not embed scene.Base", ErrUnregisteredComponent, v)
	}
	return e.AddComponent(c)
}

func (e *Entity) HasComponent(id models.ComponentID) bool {
	_, ok := e.components[id]
	return ok
}

// GetComponent returns nil when no component of type id is attached.
func (e *Entity) GetComponent(id models.ComponentID) Component {
	return e.components[id]
}

// Components returns the attached components in fan-out order.
func (e *Entity) Components() []Component {
	out := make([]Component, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.components[id])
	}
	return out
}

func (e *Entity) ComponentCount() int { return len(e.components) }

// RemoveComponent destroys the component of type id. While a phase is
// iterating the removal is queued and applied when the phase ends, so the
// component stays visible to the rest of the phase.
func (e *Entity) RemoveComponent(id models.ComponentID) error {
	if e.scene == nil {
		return ErrEntityDestroyed
	}
	if _, ok := e.components[id]; !ok {
		return ErrComponentNotFound
	}
	if e.scene.iterating {
		if !slices.Contains(e.pending, id) {
			if len(e.pending) == 0 {
				e.scene.pendingEntities = append(e.scene.pendingEntities, e)
			}
			e.pending = append(e.pending, id)
		}
		return nil
	}
	return e.destroyComponent(id)
}

// IsPendingRemoval reports whether a removal of type id is queued.
func (e *Entity) IsPendingRemoval(id models.ComponentID) bool {
	return slices.Contains(e.pending, id)
}

// destroyComponent runs OnDestroy at most once. The component is marked
// destroyed before the hook so that a hook re-entering destruction skips it.
func (e *Entity) destroyComponent(id models.ComponentID) error {
	c, ok := e.components[id]
	if !ok {
		return nil
	}
	b := c.componentBase()
	if b.state == StateDestroyed {
		return nil
	}
	b.state = StateDestroyed
	s := e.scene
	var err error
	if hook, ok := c.(Destroyer); ok {
		err = s.invoke(e, c, PhaseDestroy, hook.OnDestroy)
	}
	e.unlink(id)
	b.entity = nil
	if e.scene != nil {
		e.scene.publish(EventComponentRemoved, ComponentEvent{Entity: e.handle, Component: id, Type: b.name})
		e.touch()
	}
	return err
}

func (e *Entity) unlink(id models.ComponentID) {
	delete(e.components, id)
	if i, found := slices.BinarySearch(e.order, id); found {
		e.order = slices.Delete(e.order, i, i+1)
	}
}

// drainPending applies queued removals.
func (e *Entity) drainPending() error {
	pending := e.pending
	e.pending = nil
	var errs []error
	for _, id := range pending {
		if err := e.destroyComponent(id); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// start runs OnStart for every created component. Components added by an
// OnStart hook are started in the same call.
func (e *Entity) start() error {
	for {
		started := false
		for _, id := range slices.Clone(e.order) {
			c, ok := e.components[id]
			if !ok {
				continue
			}
			b := c.componentBase()
			if b.state != StateCreated || b.disabled {
				continue
			}
			b.state = StateStarted
			started = true
			if hook, ok := c.(Starter); ok {
				if err := e.scene.invoke(e, c, PhaseStart, hook.OnStart); err != nil {
					return err
				}
			}
		}
		if !started {
			return nil
		}
	}
}

func (e *Entity) update(delta float32) error {
	if err := e.start(); err != nil {
		return err
	}
	for _, id := range slices.Clone(e.order) {
		c, ok := e.components[id]
		if !ok {
			continue
		}
		b := c.componentBase()
		if b.disabled || b.state != StateStarted {
			continue
		}
		if hook, ok := c.(Updater); ok {
			if err := e.scene.invoke(e, c, PhaseUpdate, func() { hook.OnUpdate(delta) }); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Entity) draw(ctx *render.Context, phase Phase) error {
	for _, id := range slices.Clone(e.order) {
		c, ok := e.components[id]
		if !ok || c.componentBase().disabled {
			continue
		}
		switch phase {
		case PhaseDraw:
			if hook, ok := c.(Drawer); ok {
				if err := e.scene.invoke(e, c, phase, func() { hook.OnDraw(ctx) }); err != nil {
					return err
				}
			}
		case PhaseDebugDraw:
			if hook, ok := c.(DebugDrawer); ok {
				if err := e.scene.invoke(e, c, phase, func() { hook.OnDebugDraw(ctx) }); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// destroyComponents runs OnDestroy for every component in fan-out order and
// unlinks them all.
func (e *Entity) destroyComponents() error {
	var errs []error
	for _, id := range slices.Clone(e.order) {
		if err := e.destroyComponent(id); err != nil {
			errs = append(errs, err)
		}
	}
	e.pending = nil
	return joinErrors(errs)
}
