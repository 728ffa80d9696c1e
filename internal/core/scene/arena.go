package scene

import (
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/pkg/sequence"
)

// Ref addresses an arena slot. A stale Ref (slot reused) resolves to nothing.
type Ref struct {
	Index      uint32
	Generation uint32
}

type slot struct {
	entity     *Entity
	generation uint32
}

// arena stores entities in generational slots and indexes them by handle
// and by scene-local id.
type arena struct {
	slots    []slot
	free     []uint32
	byHandle map[models.Handle]Ref

	localIDs  map[uint32]models.Handle
	freeIDs   *sequence.PriorityQueue[uint32]
	nextLocal uint32
}

func newArena() *arena {
	return &arena{
		byHandle:  make(map[models.Handle]Ref),
		localIDs:  make(map[uint32]models.Handle),
		freeIDs:   sequence.NewMinQueue[uint32](),
		nextLocal: 1,
	}
}

func (a *arena) insert(e *Entity) Ref {
	var ref Ref
	if n := len(a.free); n > 0 {
		ref.Index = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[ref.Index].entity = e
		ref.Generation = a.slots[ref.Index].generation
	} else {
		ref.Index = uint32(len(a.slots))
		a.slots = append(a.slots, slot{entity: e, generation: 1})
		ref.Generation = 1
	}
	a.byHandle[e.handle] = ref
	e.ref = ref
	if !e.handle.IsRoot() {
		e.localID = a.acquireLocal(e.handle)
	}
	return ref
}

// acquireLocal returns the lowest released id, or a fresh one.
func (a *arena) acquireLocal(h models.Handle) uint32 {
	id, ok := a.freeIDs.Dequeue()
	if !ok {
		id = a.nextLocal
		a.nextLocal++
	}
	a.localIDs[id] = h
	return id
}

func (a *arena) remove(h models.Handle) *Entity {
	ref, ok := a.byHandle[h]
	if !ok {
		return nil
	}
	s := &a.slots[ref.Index]
	e := s.entity
	s.entity = nil
	s.generation++
	a.free = append(a.free, ref.Index)
	delete(a.byHandle, h)
	if e.localID != 0 {
		delete(a.localIDs, e.localID)
		a.freeIDs.Enqueue(e.localID)
	}
	return e
}

func (a *arena) get(h models.Handle) *Entity {
	ref, ok := a.byHandle[h]
	if !ok {
		return nil
	}
	return a.slots[ref.Index].entity
}

func (a *arena) resolve(ref Ref) *Entity {
	if int(ref.Index) >= len(a.slots) {
		return nil
	}
	s := a.slots[ref.Index]
	if s.generation != ref.Generation {
		return nil
	}
	return s.entity
}

func (a *arena) byLocal(id uint32) *Entity {
	h, ok := a.localIDs[id]
	if !ok {
		return nil
	}
	return a.get(h)
}

func (a *arena) has(h models.Handle) bool {
	_, ok := a.byHandle[h]
	return ok
}

func (a *arena) len() int { return len(a.byHandle) }

// clear drops everything, including released local ids.
func (a *arena) clear() {
	a.slots = nil
	a.free = nil
	clear(a.byHandle)
	clear(a.localIDs)
	a.freeIDs.Clear()
	a.nextLocal = 1
}
