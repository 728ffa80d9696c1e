package scene

import (
	"github.com/fussion/engine/internal/core/events/bus"
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/observability/log"
)

// Events published on the scene's bus.
const (
	EventEntityCreated    bus.EventType = "scene.entity.created"
	EventEntityDestroyed  bus.EventType = "scene.entity.destroyed"
	EventEntityReparented bus.EventType = "scene.entity.reparented"
	EventComponentAdded   bus.EventType = "scene.component.added"
	EventComponentRemoved bus.EventType = "scene.component.removed"
	EventSceneLoaded      bus.EventType = "scene.loaded"
)

// EntityEvent is the payload of entity events.
type EntityEvent struct {
	Handle         models.Handle
	Parent         models.Handle
	PreviousParent models.Handle
	Name           string
}

// ComponentEvent is the payload of component events.
type ComponentEvent struct {
	Entity    models.Handle
	Component models.ComponentID
	Type      string
}

// publish delivers an event right away outside phases. Inside a phase it is
// queued so that handlers never run in the middle of an iteration.
func (s *Scene) publish(typ bus.EventType, data any) {
	if s.events == nil || s.muted {
		return
	}
	event := bus.NewEvent(typ, s.name, data)
	if s.iterating {
		s.queued = append(s.queued, event)
		return
	}
	if err := s.events.Publish(event); err != nil {
		s.logger.Warn("scene event handler failed",
			log.String("event", string(typ)),
			log.Error(err))
	}
}

func (s *Scene) flushEvents() {
	if len(s.queued) == 0 {
		return
	}
	queued := s.queued
	s.queued = nil
	if err := s.events.PublishBatch(queued...); err != nil {
		s.logger.Warn("scene event handlers failed",
			log.Int("events", len(queued)),
			log.Error(err))
	}
}
