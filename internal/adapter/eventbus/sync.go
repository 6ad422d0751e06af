// Package eventbus delivers playback, library and restore events from the
// engine core to its observers.
package eventbus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// SyncEventBus delivers events on the publisher's goroutine, in subscription
// order, type-specific handlers before wildcard ones. A slow handler stalls
// the publisher, so anything expensive belongs on its own goroutine.
//
// Safe for concurrent use.
type SyncEventBus struct {
	mu       sync.RWMutex
	byType   map[domain.EventType][]handlerEntry
	wildcard []handlerEntry
	closed   bool

	log *slog.Logger
}

type handlerEntry struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

var _ ports.EventBus = (*SyncEventBus)(nil)

// NewSyncEventBus returns an empty bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{byType: make(map[domain.EventType][]handlerEntry)}
}

// SetLogger attaches the logger that reports handler panics.
func (b *SyncEventBus) SetLogger(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = log
}

// Publish delivers the event to every matching handler. A nil event and a
// closed bus are both no-ops. A panicking handler is logged and does not
// stop delivery to the remaining handlers.
func (b *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]handlerEntry, 0, len(b.byType[event.Type()])+len(b.wildcard))
	targets = append(targets, b.byType[event.Type()]...)
	targets = append(targets, b.wildcard...)
	log := b.log
	b.mu.RUnlock()

	for _, entry := range targets {
		deliver(log, entry.handler, event)
	}
}

func deliver(log *slog.Logger, handler domain.EventHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event", string(event.Type())))
		}
	}()
	handler(event)
}

// Subscribe registers a handler for one event type and returns the ID that
// removes it again. Subscribing the same handler twice yields two deliveries.
func (b *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return b.register(handler, func(e handlerEntry) {
		b.byType[eventType] = append(b.byType[eventType], e)
	})
}

// SubscribeAll registers a handler that sees every event, whatever its type.
func (b *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return b.register(handler, func(e handlerEntry) {
		b.wildcard = append(b.wildcard, e)
	})
}

func (b *SyncEventBus) register(handler domain.EventHandler, add func(handlerEntry)) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("eventbus: subscribe on closed bus")
	}
	entry := handlerEntry{
		id:      domain.SubscriptionID(uuid.NewString()),
		handler: handler,
	}
	add(entry)
	return entry.id
}

// Unsubscribe drops the handler registered under id. Unknown IDs are ignored.
func (b *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, entries := range b.byType {
		if pruned, found := without(entries, id); found {
			b.byType[eventType] = pruned
			return
		}
	}
	b.wildcard, _ = without(b.wildcard, id)
}

// without removes the entry with the given id in place, preserving order so
// delivery order keeps matching subscription order.
func without(entries []handlerEntry, id domain.SubscriptionID) ([]handlerEntry, bool) {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

// HasSubscribers reports whether publishing the given type reaches anyone.
func (b *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[eventType]) > 0 || len(b.wildcard) > 0
}

// SubscriberCount returns the total number of live subscriptions.
func (b *SyncEventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.wildcard)
	for _, entries := range b.byType {
		n += len(entries)
	}
	return n
}

// Close drops every subscription and turns further publishes into no-ops.
func (b *SyncEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("eventbus: already closed")
	}
	b.closed = true
	b.byType = make(map[domain.EventType][]handlerEntry)
	b.wildcard = nil
	return nil
}
