// Package events provides a typed publish/subscribe bus for renderer
// lifecycle notifications. Host applications subscribe to frame, skip,
// capture, and device events without polling the renderer.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(FrameRenderedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use a type switch to call the generic Publish with the concrete type.
	switch e := ev.(type) {
	case FrameRenderedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelSkippedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureCompletedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceLostEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e FrameRenderedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameRenderedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceLostEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unrecognized handler type: nothing will ever be delivered.
		return func() {}
	}
}
