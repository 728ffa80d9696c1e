// Package scene implements the entity hierarchy and the component lifecycle.
//
// A Scene owns a tree of entities rooted at the synthetic root (handle 0).
// Each entity owns at most one component per registered type. Components
// take part in the frame through optional hooks that the scene drives in a
// fixed order: OnCreate on attach, OnStart before the first OnUpdate,
// OnUpdate/OnDraw/OnDebugDraw every frame, OnDestroy before unlinking.
//
// Scenes are not safe for concurrent use. All calls, including hooks, run
// on the thread that drives the frame.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fussion/engine/internal/core/events/bus"
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/pkg/sequence"
)

type Scene struct {
	name     string
	asset    models.AssetHandle
	registry *reflection.Registry
	logger   log.Log
	events   bus.EventBus
	services []any

	entities *arena
	root     *Entity

	dirty     bool
	closed    bool
	muted     bool
	iterating bool
	phase     Phase
	serial    uint64

	// events raised while a phase iterates, published when it ends
	queued []bus.Event

	// deferred structural changes, applied when the running phase ends
	pendingEntities []*Entity
	pendingDestroy  []models.Handle
}

type Option func(*Scene)

func WithLogger(l log.Log) Option {
	return func(s *Scene) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBus publishes structural changes on b.
func WithEventBus(b bus.EventBus) Option {
	return func(s *Scene) { s.events = b }
}

// WithService makes svc available to components through ServiceOf.
func WithService(svc any) Option {
	return func(s *Scene) {
		if svc != nil {
			s.services = append(s.services, svc)
		}
	}
}

func WithAssetHandle(h models.AssetHandle) Option {
	return func(s *Scene) { s.asset = h }
}

// New returns an empty scene holding only the root entity.
func New(name string, registry *reflection.Registry, opts ...Option) *Scene {
	if registry == nil {
		registry = reflection.NewRegistry()
	}
	s := &Scene{
		name:     name,
		registry: registry,
		logger:   log.Nop(),
		entities: newArena(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.asset.IsNil() {
		s.asset = models.NewAssetHandle()
	}
	s.logger = s.logger.With(log.String("scene", name))
	s.root = newEntity(s, models.RootHandle, name)
	s.entities.insert(s.root)
	return s
}

func (s *Scene) Name() string { return s.name }

func (s *Scene) SetName(name string) {
	if s.name == name {
		return
	}
	s.name = name
	s.dirty = true
}

func (s *Scene) AssetHandle() models.AssetHandle { return s.asset }
func (s *Scene) AssetKind() models.AssetKind     { return models.AssetKindScene }

func (s *Scene) Registry() *reflection.Registry { return s.registry }
func (s *Scene) Logger() log.Log                { return s.logger }
func (s *Scene) Events() bus.EventBus           { return s.events }

// Root returns the root entity. It is never nil while the scene is open.
func (s *Scene) Root() *Entity { return s.root }

func (s *Scene) IsDirty() bool       { return s.dirty }
func (s *Scene) SetDirty(dirty bool) { s.dirty = dirty }
func (s *Scene) Closed() bool        { return s.closed }

// Phase returns the phase currently iterating, or PhaseNone.
func (s *Scene) Phase() Phase { return s.phase }

// CreateEntity adds an entity with a fresh handle under parent. RootHandle
// places it directly under the root.
func (s *Scene) CreateEntity(name string, parent models.Handle) (*Entity, error) {
	h := models.NewHandle()
	for s.entities.has(h) {
		h = models.NewHandle()
	}
	return s.CreateEntityWithID(h, name, parent)
}

// CreateEntityWithID adds an entity with a caller-chosen handle.
func (s *Scene) CreateEntityWithID(h models.Handle, name string, parent models.Handle) (*Entity, error) {
	if s.closed {
		return nil, ErrSceneClosed
	}
	if h.IsRoot() || s.entities.has(h) {
		return nil, fmt.Errorf("%w: %s", ErrHandleInUse, h)
	}
	p := s.entities.get(parent)
	if p == nil {
		return nil, fmt.Errorf("%w: parent %s", ErrEntityNotFound, parent)
	}

	e := newEntity(s, h, name)
	e.parent = p.handle
	if s.iterating {
		e.born = s.serial
	}
	s.entities.insert(e)
	p.children = append(p.children, h)
	s.dirty = true
	s.publish(EventEntityCreated, EntityEvent{Handle: h, Parent: p.handle, Name: name})
	return e, nil
}

// GetEntity returns the live entity for h, or nil.
func (s *Scene) GetEntity(h models.Handle) *Entity { return s.entities.get(h) }

func (s *Scene) HasEntity(h models.Handle) bool { return s.entities.has(h) }

// Resolve returns the entity in ref's slot if the slot was not reused since.
func (s *Scene) Resolve(ref Ref) *Entity { return s.entities.resolve(ref) }

// EntityByLocalID maps a picking id back to its entity.
func (s *Scene) EntityByLocalID(id uint32) *Entity {
	if id == 0 {
		return nil
	}
	return s.entities.byLocal(id)
}

// EntityCount includes the root.
func (s *Scene) EntityCount() int { return s.entities.len() }

// ForEachEntity visits every live entity, root included, in storage order
// until fn returns false.
func (s *Scene) ForEachEntity(fn func(*Entity) bool) {
	for i := 0; i < len(s.entities.slots); i++ {
		e := s.entities.slots[i].entity
		if e == nil {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// Entities returns a lazy iterator over ForEachEntity.
func (s *Scene) Entities() *sequence.Iterator[*Entity] {
	return sequence.FromSeq(s.ForEachEntity)
}

// FindEntityByName returns the first entity named name in storage order.
func (s *Scene) FindEntityByName(name string) *Entity {
	e, _ := s.Entities().Find(func(e *Entity) bool { return e.name == name })
	return e
}

// FindFirstComponent returns the first component of type id in storage order.
func (s *Scene) FindFirstComponent(id models.ComponentID) Component {
	var found Component
	s.ForEachEntity(func(e *Entity) bool {
		found = e.components[id]
		return found == nil
	})
	return found
}

// Destroy removes the subtree rooted at h. Children are destroyed before
// their parent, and every component receives OnDestroy before it is
// unlinked. Inside a phase the destroy is applied when the phase ends.
func (s *Scene) Destroy(h models.Handle) error {
	if h.IsRoot() {
		return ErrRootEntity
	}
	e := s.entities.get(h)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, h)
	}
	if e.dying {
		return nil
	}
	if s.iterating {
		if !slices.Contains(s.pendingDestroy, h) {
			s.pendingDestroy = append(s.pendingDestroy, h)
		}
		return nil
	}
	if p := s.entities.get(e.parent); p != nil {
		p.removeChild(h)
	}
	err := s.destroyTree(e)
	s.dirty = true
	return err
}

// IsPendingDestroy reports whether h is queued for destruction.
func (s *Scene) IsPendingDestroy(h models.Handle) bool {
	return slices.Contains(s.pendingDestroy, h)
}

// destroyTree tears e down. An OnDestroy hook that destroys an entity
// already being torn down is a no-op.
func (s *Scene) destroyTree(e *Entity) error {
	if e.dying {
		return nil
	}
	e.dying = true
	var errs []error
	for _, child := range slices.Clone(e.children) {
		if c := s.entities.get(child); c != nil {
			if err := s.destroyTree(c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	e.children = nil
	if err := e.destroyComponents(); err != nil {
		errs = append(errs, err)
	}
	if e.IsRoot() {
		e.dying = false
		return joinErrors(errs)
	}
	s.entities.remove(e.handle)
	s.publish(EventEntityDestroyed, EntityEvent{Handle: e.handle, Parent: e.parent, Name: e.name})
	e.scene = nil
	return joinErrors(errs)
}

// Clear destroys every entity below the root and the root's components.
func (s *Scene) Clear() error {
	if s.iterating {
		return ErrPhaseActive
	}
	err := s.destroyTree(s.root)
	s.dirty = true
	return err
}

// Close destroys the scene's content. A closed scene rejects new entities
// and phases.
func (s *Scene) Close() error {
	if s.closed {
		return nil
	}
	if s.iterating {
		return ErrPhaseActive
	}
	err := s.destroyTree(s.root)
	s.entities.clear()
	s.closed = true
	s.logger.Debug("scene closed")
	return err
}

// ServiceOf returns the first registered service assignable to T.
func ServiceOf[T any](s *Scene) (T, bool) {
	for _, svc := range s.services {
		if v, ok := svc.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
