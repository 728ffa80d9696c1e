package bus

import "time"

// EventBus is an in-process pub/sub bus for scene-graph notifications.
//
// Delivery is synchronous: Publish calls handlers in the publisher's
// goroutine, in subscription order. The scene publishes from the main
// thread, so handlers observe the graph in a consistent state but must not
// block. Subscribing and cancelling are safe from any goroutine.
type EventBus interface {
	// Publish delivers event to all active subscribers of event.Type().
	// Handler errors are joined and returned.
	Publish(event Event) error
	// PublishBatch publishes events in order and joins their errors.
	PublishBatch(events ...Event) error

	Subscribe(eventType EventType, handler EventHandler) (Subscription, error)
	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) (Subscription, error)
	// Unsubscribe cancels s. A nil subscription is ignored.
	Unsubscribe(s Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics is collected only while at least one observer is registered.
	GetMetrics() EventBusMetrics
}

// EventType is the routing key of an event.
type EventType string

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() EventType
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

type Subscription interface {
	ID() string
	EventType() EventType
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries; observers should return quickly.
type EventBusObserver interface {
	OnPublish(eventType EventType, event Event)
	OnDelivered(eventType EventType, handlers int, err error, durationMicros int64)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
