package components

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

var ErrUnknownScriptClass = errors.New("unknown script class")

// ScriptEngine creates script instances by class name. A scene exposes its
// engine as a service (scene.WithService).
type ScriptEngine interface {
	Instantiate(class string, owner *scene.Entity, props map[string]string) (ScriptInstance, error)
}

// ScriptInstance is the per-component state of a script.
type ScriptInstance interface {
	Start()
	Update(delta float32)
	Destroy()
}

// Script forwards the component lifecycle to an instance of Class. Without
// an engine, or with an unknown class, it stays inert.
type Script struct {
	scene.Base `copier:"-"`

	Class      string
	Properties map[string]string

	instance ScriptInstance
}

func (s *Script) Instance() ScriptInstance { return s.instance }

func (s *Script) OnCreate() {
	if s.Class == "" {
		return
	}
	sc := s.Scene()
	engine, ok := scene.ServiceOf[ScriptEngine](sc)
	if !ok {
		sc.Logger().Warn("no script engine, script inert",
			log.String("class", s.Class),
			log.String("entity", s.Entity().Name()))
		return
	}
	inst, err := engine.Instantiate(s.Class, s.Entity(), maps.Clone(s.Properties))
	if err != nil {
		sc.Logger().Warn("script instantiation failed",
			log.String("class", s.Class),
			log.String("entity", s.Entity().Name()),
			log.Error(err))
		return
	}
	s.instance = inst
}

func (s *Script) OnStart() {
	if s.instance != nil {
		s.instance.Start()
	}
}

func (s *Script) OnUpdate(delta float32) {
	if s.instance != nil {
		s.instance.Update(delta)
	}
}

func (s *Script) OnDestroy() {
	if s.instance != nil {
		s.instance.Destroy()
		s.instance = nil
	}
}

func (s *Script) Serialize(w serialization.Serializer) {
	w.Write("Class", s.Class)
	w.BeginArray("Properties")
	for _, k := range slices.Sorted(maps.Keys(s.Properties)) {
		w.BeginObject("")
		w.Write("Key", k)
		w.Write("Value", s.Properties[k])
		w.EndObject()
	}
	w.EndArray()
}

func (s *Script) Deserialize(d serialization.Deserializer) {
	d.Read("Class", &s.Class)
	n, ok := d.BeginArray("Properties")
	if ok && s.Properties == nil {
		s.Properties = make(map[string]string, n)
	}
	for i := 0; i < n; i++ {
		var k, v string
		d.BeginObject("")
		if d.Read("Key", &k) {
			d.Read("Value", &v)
			s.Properties[k] = v
		}
		d.EndObject()
	}
	d.EndArray()
}

// ScriptFuncs adapts plain functions to ScriptInstance. Nil hooks are skipped.
type ScriptFuncs struct {
	OnStart   func()
	OnUpdate  func(delta float32)
	OnDestroy func()
}

func (f *ScriptFuncs) Start() {
	if f.OnStart != nil {
		f.OnStart()
	}
}

func (f *ScriptFuncs) Update(delta float32) {
	if f.OnUpdate != nil {
		f.OnUpdate(delta)
	}
}

func (f *ScriptFuncs) Destroy() {
	if f.OnDestroy != nil {
		f.OnDestroy()
	}
}

// ScriptFactory builds the instance of one class for owner.
type ScriptFactory func(owner *scene.Entity, props map[string]string) (ScriptInstance, error)

// FuncEngine is a ScriptEngine backed by Go factories registered by class
// name. It is safe to register classes from any goroutine.
type FuncEngine struct {
	mu        sync.RWMutex
	factories map[string]ScriptFactory
}

func NewFuncEngine() *FuncEngine {
	return &FuncEngine{factories: make(map[string]ScriptFactory)}
}

// Register binds class to factory, replacing an earlier binding.
func (e *FuncEngine) Register(class string, factory ScriptFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[class] = factory
}

func (e *FuncEngine) Classes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.factories))
}

func (e *FuncEngine) Instantiate(class string, owner *scene.Entity, props map[string]string) (ScriptInstance, error) {
	e.mu.RLock()
	factory, ok := e.factories[class]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScriptClass, class)
	}
	return factory(owner, props)
}
