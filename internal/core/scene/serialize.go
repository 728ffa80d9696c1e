package scene

import (
	"errors"
	"fmt"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/serialization"
)

// Serialize writes the scene name and every entity, parents before
// children. Each entity carries its handle, name, parent handle, enabled
// flag, transform and a list of {Type, Enabled, Data} component records.
func (s *Scene) Serialize(w serialization.Serializer) {
	w.Write("Name", s.name)
	w.BeginArray("Entities")
	_ = s.walkAll(func(e *Entity) error {
		e.serialize(w)
		return nil
	})
	w.EndArray()
}

// walkAll is walk without the enabled filter.
func (s *Scene) walkAll(fn func(*Entity) error) error {
	stack := []models.Handle{models.RootHandle}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := s.entities.get(h)
		if e == nil {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
		for i := len(e.children) - 1; i >= 0; i-- {
			stack = append(stack, e.children[i])
		}
	}
	return nil
}

func (e *Entity) serialize(w serialization.Serializer) {
	w.BeginObject("")
	w.Write("Handle", e.handle)
	w.Write("Name", e.name)
	w.Write("Parent", e.parent)
	w.Write("Enabled", e.enabled)
	w.BeginObject("Transform")
	e.transform.Serialize(w)
	w.EndObject()

	w.BeginArray("Components")
	for _, id := range e.order {
		c := e.components[id]
		b := c.componentBase()
		w.BeginObject("")
		w.Write("Type", b.name)
		w.Write("Enabled", !b.disabled)
		if data, ok := c.(serialization.Serializable); ok {
			w.BeginObject("Data")
			data.Serialize(w)
			w.EndObject()
		}
		w.EndObject()
	}
	w.EndArray()
	w.EndObject()
}

type entityRecord struct {
	handle     models.Handle
	name       string
	parent     models.Handle
	enabled    bool
	transform  Transform
	components []Component
	entity     *Entity
}

// Deserialize replaces the scene content with the entities in d.
//
// Loading is best effort: unknown component types and components whose
// Deserialize panics are skipped with a warning, a missing parent puts the
// entity under the root, and a parent cycle is broken at the first link
// that would close it. Handles are preserved; a duplicated handle is
// replaced by a fresh one.
func (s *Scene) Deserialize(d serialization.Deserializer) error {
	if s.iterating {
		return ErrPhaseActive
	}
	if s.closed {
		return ErrSceneClosed
	}
	// a load is announced once, by EventSceneLoaded
	s.muted = true
	defer func() { s.muted = false }()
	if err := s.Clear(); err != nil {
		s.logger.Warn("clearing scene before load", log.Error(err))
	}

	d.Read("Name", &s.name)

	var records []*entityRecord
	n, _ := d.BeginArray("Entities")
	for i := 0; i < n; i++ {
		if rec := s.readEntity(d); rec != nil {
			records = append(records, rec)
		}
	}
	d.EndArray()

	// pass 1: nodes under the root
	byHandle := make(map[models.Handle]*Entity, len(records))
	for _, rec := range records {
		if rec.handle.IsRoot() {
			if _, seen := byHandle[models.RootHandle]; seen {
				s.logger.Warn("duplicate root record ignored")
				continue
			}
			rec.entity = s.root
			s.root.name = rec.name
			s.root.enabled = rec.enabled
			s.root.transform = rec.transform
			byHandle[models.RootHandle] = s.root
			continue
		}

		h := rec.handle
		if s.entities.has(h) {
			fresh := models.NewHandle()
			s.logger.Warn("duplicate entity handle, assigning a new one",
				log.Stringer("handle", h),
				log.Stringer("replacement", fresh),
				log.String("entity", rec.name))
			h = fresh
		}
		e, err := s.CreateEntityWithID(h, rec.name, models.RootHandle)
		if err != nil {
			s.logger.Warn("skipping entity", log.String("entity", rec.name), log.Error(err))
			continue
		}
		e.enabled = rec.enabled
		e.transform = rec.transform
		rec.entity = e
		if _, seen := byHandle[rec.handle]; !seen {
			byHandle[rec.handle] = e
		}
	}

	// pass 2: hierarchy
	for _, rec := range records {
		if rec.entity == nil || rec.entity.IsRoot() || rec.parent.IsRoot() {
			continue
		}
		parent, ok := byHandle[rec.parent]
		if !ok {
			s.logger.Warn("parent not found, attaching to root",
				log.String("entity", rec.name),
				log.Stringer("parent", rec.parent))
			continue
		}
		if err := rec.entity.SetParent(parent); err != nil {
			s.logger.Warn("cannot restore parent, attaching to root",
				log.String("entity", rec.name),
				log.Error(err))
		}
	}

	// pass 3: components, which runs OnCreate with the hierarchy in place
	var hookErrs []error
	for _, rec := range records {
		if rec.entity == nil {
			continue
		}
		for _, c := range rec.components {
			if _, err := rec.entity.AddComponent(c); err != nil {
				s.logger.Warn("cannot attach component",
					log.String("entity", rec.name),
					log.Error(err))
				var hookErr *HookError
				if errors.As(err, &hookErr) {
					hookErrs = append(hookErrs, err)
				}
			}
		}
	}

	s.dirty = false
	s.muted = false
	s.publish(EventSceneLoaded, EntityEvent{Handle: models.RootHandle, Name: s.name})
	return joinErrors(hookErrs)
}

func (s *Scene) readEntity(d serialization.Deserializer) *entityRecord {
	defer d.EndObject()
	if !d.BeginObject("") {
		s.logger.Warn("entity record is not an object")
		return nil
	}
	rec := &entityRecord{enabled: true, transform: Identity()}
	if !d.Read("Handle", &rec.handle) {
		rec.handle = models.NewHandle()
	}
	d.Read("Name", &rec.name)
	d.Read("Parent", &rec.parent)
	d.Read("Enabled", &rec.enabled)
	d.BeginObject("Transform")
	rec.transform.Deserialize(d)
	d.EndObject()

	n, _ := d.BeginArray("Components")
	for i := 0; i < n; i++ {
		if c := s.readComponent(d, rec.name); c != nil {
			rec.components = append(rec.components, c)
		}
	}
	d.EndArray()
	return rec
}

func (s *Scene) readComponent(d serialization.Deserializer, entity string) (c Component) {
	defer d.EndObject()
	if !d.BeginObject("") {
		return nil
	}
	var typeName string
	d.Read("Type", &typeName)
	info, ok := s.registry.LookupName(typeName)
	if !ok {
		s.logger.Warn("unknown component type skipped",
			log.String("entity", entity),
			log.String("type", typeName))
		return nil
	}
	v := info.New()
	c, ok = v.(Component)
	if !ok {
		s.logger.Warn("registered type is not a component",
			log.String("type", typeName))
		return nil
	}
	enabled := true
	d.Read("Enabled", &enabled)
	c.componentBase().disabled = !enabled

	if data, ok := c.(serialization.Serializable); ok {
		if err := s.readData(d, data); err != nil {
			s.logger.Warn("component data unreadable, using defaults",
				log.String("entity", entity),
				log.String("type", typeName),
				log.Error(err))
			fresh, _ := info.New().(Component)
			fresh.componentBase().disabled = !enabled
			return fresh
		}
	}
	return c
}

// readData runs data.Deserialize inside the "Data" frame. A panic is
// reported as an error and the frames it left open are closed.
func (s *Scene) readData(d serialization.Deserializer, data serialization.Serializable) (err error) {
	depther, canUnwind := d.(interface{ Depth() int })
	depth := 0
	if canUnwind {
		depth = depther.Depth()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deserialize panicked: %v", r)
			if canUnwind {
				for depther.Depth() > depth+1 {
					d.EndObject()
				}
			}
		}
		d.EndObject()
	}()
	d.BeginObject("Data")
	data.Deserialize(d)
	return nil
}
