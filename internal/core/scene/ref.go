package scene

import (
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/serialization"
)

// EntityRef is a weak reference to an entity. It survives the entity's
// destruction and resolves to nil afterwards.
type EntityRef struct {
	Handle models.Handle
	ref    Ref
}

// RefTo returns a reference to e. A nil entity yields the empty reference.
func RefTo(e *Entity) EntityRef {
	if e == nil {
		return EntityRef{}
	}
	return EntityRef{Handle: e.handle, ref: e.ref}
}

// Get resolves the reference in s. The arena slot is tried first and the
// handle index is the fallback, so a reference restored from disk still
// resolves.
func (r EntityRef) Get(s *Scene) *Entity {
	if r.Handle.IsRoot() || s == nil {
		return nil
	}
	if e := s.entities.resolve(r.ref); e != nil && e.handle == r.Handle {
		return e
	}
	return s.entities.get(r.Handle)
}

func (r EntityRef) IsEmpty() bool { return r.Handle.IsRoot() }

func (r *EntityRef) Serialize(w serialization.Serializer) {
	w.Write("Handle", r.Handle)
}

func (r *EntityRef) Deserialize(d serialization.Deserializer) {
	if d.Read("Handle", &r.Handle) {
		r.ref = Ref{}
	}
}
