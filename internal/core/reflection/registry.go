// Package reflection holds the registry of component types.
//
// The registry is an explicit value built once at start-up (see
// components.RegisterAll) and passed to everything that constructs
// components by type: scenes, deserializers and tooling.
package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fussion/engine/internal/core/models"
)

var (
	ErrAlreadyRegistered = errors.New("component type already registered")
	ErrNotRegistered     = errors.New("component type not registered")
	ErrInvalidType       = errors.New("invalid component type")
)

// FieldInfo describes one exported field of a registered type.
type FieldInfo struct {
	Name   string
	Type   reflect.Type
	Offset uintptr
	Tag    reflect.StructTag
}

// TypeInfo is the registration record of a component type.
type TypeInfo struct {
	Name     string
	Category string
	ID       models.ComponentID
	// Type is the struct type; New returns a pointer to a zero value of it.
	Type   reflect.Type
	New    func() any
	Fields []FieldInfo
}

// Registry maps component types to their TypeInfo by id, Go type and name.
type Registry struct {
	mu     sync.RWMutex
	byID   map[models.ComponentID]*TypeInfo
	byType map[reflect.Type]*TypeInfo
	byName map[string]*TypeInfo
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[models.ComponentID]*TypeInfo),
		byType: make(map[reflect.Type]*TypeInfo),
		byName: make(map[string]*TypeInfo),
	}
}

// Register adds info. ID and Fields are derived from Name and Type.
func (r *Registry) Register(info TypeInfo) error {
	if info.Name == "" || info.Type == nil || info.New == nil {
		return fmt.Errorf("%w: name, type and constructor are required", ErrInvalidType)
	}
	if info.Type.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s is not a struct", ErrInvalidType, info.Type)
	}
	info.ID = models.ComponentIDOf(info.Name)
	info.Fields = fieldsOf(info.Type)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[info.Name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, info.Name)
	}
	if _, ok := r.byType[info.Type]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, info.Type)
	}
	if other, ok := r.byID[info.ID]; ok {
		return fmt.Errorf("%w: id of %s collides with %s", ErrAlreadyRegistered, info.Name, other.Name)
	}
	stored := info
	r.byID[info.ID] = &stored
	r.byType[info.Type] = &stored
	r.byName[info.Name] = &stored
	return nil
}

// Register registers struct type T under name.
func Register[T any](r *Registry, name, category string) error {
	return r.Register(TypeInfo{
		Name:     name,
		Category: category,
		Type:     reflect.TypeFor[T](),
		New:      func() any { return new(T) },
	})
}

// MustRegister is Register for start-up code that cannot continue on error.
func MustRegister[T any](r *Registry, name, category string) {
	if err := Register[T](r, name, category); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(id models.ComponentID) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byID[id]
	return info, ok
}

// LookupType accepts both the struct type and a pointer to it.
func (r *Registry) LookupType(t reflect.Type) (*TypeInfo, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byType[t]
	return info, ok
}

func (r *Registry) LookupName(name string) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byName[name]
	return info, ok
}

// TypeOf returns the registration of T.
func TypeOf[T any](r *Registry) (*TypeInfo, bool) {
	return r.LookupType(reflect.TypeFor[T]())
}

// New constructs a zero value of the type registered under id.
func (r *Registry) New(id models.ComponentID) (any, error) {
	info, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %x", ErrNotRegistered, uint64(id))
	}
	return info.New(), nil
}

// Types returns all registrations sorted by name.
func (r *Registry) Types() []*TypeInfo {
	r.mu.RLock()
	out := make([]*TypeInfo, 0, len(r.byName))
	for _, info := range r.byName {
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// fieldsOf lists exported, non-embedded fields. A field tagged
// `editor:"-"` is skipped.
func fieldsOf(t reflect.Type) []FieldInfo {
	var out []FieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("editor"); ok && strings.TrimSpace(tag) == "-" {
			continue
		}
		out = append(out, FieldInfo{Name: f.Name, Type: f.Type, Offset: f.Offset, Tag: f.Tag})
	}
	return out
}
