// Package ports defines the EventBus interface for event-driven communication.
// The event bus decouples the playback core from its collaborators.
package ports

import (
	"github.com/narratix/hark/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The event bus decouples event producers (the playback core) from event
// consumers (persistence, "now playing" tracking, logging). Multiple
// subscribers can listen to the same event, and subscribers don't know about
// publishers.
//
// Thread-safety: implementations must be thread-safe as events may be
// published and subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	// In the controller: publish an event
//	bus.Publish(domain.NewPartStartedEvent(info))
//
//	// In a collaborator: subscribe to events
//	subID := bus.Subscribe(domain.EventPartStarted, func(event domain.Event) {
//	    e := event.(domain.PartStartedEvent)
//	    nowPlaying.Set(e.Entry)
//	})
//
//	// Later: unsubscribe
//	bus.Unsubscribe(subID)
type EventBus interface {
	// Publish publishes an event to all subscribers of that event type.
	// Handlers should process events quickly or dispatch to a background
	// goroutine if long processing is needed.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// The same handler can be registered multiple times, resulting in
	// multiple calls. Each subscription gets a unique SubscriptionID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of
	// type. Useful for logging, debugging, or analytics.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions for
	// the given event type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus. After Close, no more events are
	// delivered.
	Close() error
}
