// Package events is the in-process publish/subscribe bus connecting the
// pipeline to the API, the status LED and the display pause logic.
package events

import (
	"github.com/kelindar/event"
)

// Publisher is the publishing side of the bus.
type Publisher interface {
	Publish(ev Event)
}

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(ClientConnectedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type, so dispatch by switch.
	switch e := ev.(type) {
	case ClientConnectedEvent:
		event.Publish(b.dispatcher, e)
	case ClientDisconnectedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	case PhotoSavedEvent:
		event.Publish(b.dispatcher, e)
	case SettingsChangedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineStatsEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter.
// It returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e ClientConnectedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ClientConnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClientDisconnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PhotoSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
