// Package domain defines events for the event-driven architecture.
// Events decouple the playback core from ViewModel-level collaborators such as
// bookmark persistence and "now playing" tracking.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Transport events
	EventPartStarted  EventType = "part.started"
	EventPartPaused   EventType = "part.paused"
	EventPartStopped  EventType = "part.stopped"
	EventPartComplete EventType = "part.completed"
	EventPartProgress EventType = "part.progress"
	EventPartError    EventType = "part.error"

	// Audiobook events
	EventPartCreated  EventType = "book.part_created"
	EventBookCreated  EventType = "book.created"
	EventPartAdvanced EventType = "book.part_advanced"

	// Playlist events
	EventPlaylistChanged EventType = "playlist.changed"

	// Volume / mode events
	EventVolumeChanged EventType = "volume.changed"
	EventMuteToggled   EventType = "mute.toggled"
	EventLoopToggled   EventType = "loop.toggled"

	// Restore events
	EventRestoreStarted   EventType = "restore.started"
	EventRestoreProgress  EventType = "restore.progress"
	EventRestoreComplete  EventType = "restore.completed"
	EventRestoreCancelled EventType = "restore.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// ChangeAction describes how a playlist mutation altered the collection.
type ChangeAction int

const (
	// ChangeAdd indicates entries were added or inserted.
	ChangeAdd ChangeAction = iota

	// ChangeRemove indicates entries were removed.
	ChangeRemove

	// ChangeReplace indicates an entry was replaced in place.
	ChangeReplace
)

// String returns a human-readable representation of the change action.
func (a ChangeAction) String() string {
	switch a {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// EntryInfo is a lightweight description of a playlist entry carried inside
// events, so that event consumers never hold live references into the core.
type EntryInfo struct {
	ID   string
	Name string
	Path string
	Kind EntryKind
}

// baseEvent provides common event functionality.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PartStartedEvent is published when playback of a part starts or resumes.
type PartStartedEvent struct {
	baseEvent
	Entry EntryInfo
}

// Type returns the event type.
func (e PartStartedEvent) Type() EventType { return EventPartStarted }

// NewPartStartedEvent creates a new PartStartedEvent.
func NewPartStartedEvent(entry EntryInfo) PartStartedEvent {
	return PartStartedEvent{baseEvent: newBaseEvent(), Entry: entry}
}

// PartPausedEvent is published when playback is paused.
type PartPausedEvent struct {
	baseEvent
	Entry    EntryInfo
	Position time.Duration
}

// Type returns the event type.
func (e PartPausedEvent) Type() EventType { return EventPartPaused }

// NewPartPausedEvent creates a new PartPausedEvent.
func NewPartPausedEvent(entry EntryInfo, position time.Duration) PartPausedEvent {
	return PartPausedEvent{baseEvent: newBaseEvent(), Entry: entry, Position: position}
}

// PartStoppedEvent is published when playback is stopped.
type PartStoppedEvent struct {
	baseEvent
	Entry EntryInfo
}

// Type returns the event type.
func (e PartStoppedEvent) Type() EventType { return EventPartStopped }

// NewPartStoppedEvent creates a new PartStoppedEvent.
func NewPartStoppedEvent(entry EntryInfo) PartStoppedEvent {
	return PartStoppedEvent{baseEvent: newBaseEvent(), Entry: entry}
}

// PartCompletedEvent is published when an entity reaches end-of-media with no
// loop active.
type PartCompletedEvent struct {
	baseEvent
	Entry EntryInfo
}

// Type returns the event type.
func (e PartCompletedEvent) Type() EventType { return EventPartComplete }

// NewPartCompletedEvent creates a new PartCompletedEvent.
func NewPartCompletedEvent(entry EntryInfo) PartCompletedEvent {
	return PartCompletedEvent{baseEvent: newBaseEvent(), Entry: entry}
}

// PartProgressEvent is published periodically while a part is playing.
type PartProgressEvent struct {
	baseEvent
	Entry    EntryInfo
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e PartProgressEvent) Type() EventType { return EventPartProgress }

// NewPartProgressEvent creates a new PartProgressEvent.
func NewPartProgressEvent(entry EntryInfo, position, duration time.Duration) PartProgressEvent {
	return PartProgressEvent{baseEvent: newBaseEvent(), Entry: entry, Position: position, Duration: duration}
}

// PartErrorEvent is published when a transport operation fails for a part.
type PartErrorEvent struct {
	baseEvent
	Entry EntryInfo
	Err   error
}

// Type returns the event type.
func (e PartErrorEvent) Type() EventType { return EventPartError }

// NewPartErrorEvent creates a new PartErrorEvent.
func NewPartErrorEvent(entry EntryInfo, err error) PartErrorEvent {
	return PartErrorEvent{baseEvent: newBaseEvent(), Entry: entry, Err: err}
}

// PartCreatedEvent is published each time an audiobook part finishes
// materializing.
type PartCreatedEvent struct {
	baseEvent
	Book      EntryInfo
	PartIndex int
	PartName  string
}

// Type returns the event type.
func (e PartCreatedEvent) Type() EventType { return EventPartCreated }

// NewPartCreatedEvent creates a new PartCreatedEvent.
func NewPartCreatedEvent(book EntryInfo, partIndex int, partName string) PartCreatedEvent {
	return PartCreatedEvent{baseEvent: newBaseEvent(), Book: book, PartIndex: partIndex, PartName: partName}
}

// BookCreatedEvent is published when the last pending part of an audiobook
// finishes materializing.
type BookCreatedEvent struct {
	baseEvent
	Book EntryInfo
}

// Type returns the event type.
func (e BookCreatedEvent) Type() EventType { return EventBookCreated }

// NewBookCreatedEvent creates a new BookCreatedEvent.
func NewBookCreatedEvent(book EntryInfo) BookCreatedEvent {
	return BookCreatedEvent{baseEvent: newBaseEvent(), Book: book}
}

// PartAdvancedEvent is published when continuous play moves an audiobook from
// a completed part to the next one.
type PartAdvancedEvent struct {
	baseEvent
	Book      EntryInfo
	FromIndex int
	ToIndex   int
}

// Type returns the event type.
func (e PartAdvancedEvent) Type() EventType { return EventPartAdvanced }

// NewPartAdvancedEvent creates a new PartAdvancedEvent.
func NewPartAdvancedEvent(book EntryInfo, fromIndex, toIndex int) PartAdvancedEvent {
	return PartAdvancedEvent{baseEvent: newBaseEvent(), Book: book, FromIndex: fromIndex, ToIndex: toIndex}
}

// PlaylistChangedEvent is the structured change notification emitted by every
// mutating playlist operation. The controller mirrors it into its node table.
type PlaylistChangedEvent struct {
	baseEvent
	Action  ChangeAction
	Entries []EntryInfo
	Index   int
}

// Type returns the event type.
func (e PlaylistChangedEvent) Type() EventType { return EventPlaylistChanged }

// NewPlaylistChangedEvent creates a new PlaylistChangedEvent.
func NewPlaylistChangedEvent(action ChangeAction, entries []EntryInfo, index int) PlaylistChangedEvent {
	return PlaylistChangedEvent{baseEvent: newBaseEvent(), Action: action, Entries: entries, Index: index}
}

// VolumeChangedEvent is published when an entry's volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Entry  EntryInfo
	Volume float64
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType { return EventVolumeChanged }

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(entry EntryInfo, volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{baseEvent: newBaseEvent(), Entry: entry, Volume: volume}
}

// MuteToggledEvent is published when an entry's mute state flips.
type MuteToggledEvent struct {
	baseEvent
	Entry EntryInfo
	Muted bool
}

// Type returns the event type.
func (e MuteToggledEvent) Type() EventType { return EventMuteToggled }

// NewMuteToggledEvent creates a new MuteToggledEvent.
func NewMuteToggledEvent(entry EntryInfo, muted bool) MuteToggledEvent {
	return MuteToggledEvent{baseEvent: newBaseEvent(), Entry: entry, Muted: muted}
}

// LoopToggledEvent is published when an entry's loop mode flips.
type LoopToggledEvent struct {
	baseEvent
	Entry   EntryInfo
	Enabled bool
}

// Type returns the event type.
func (e LoopToggledEvent) Type() EventType { return EventLoopToggled }

// NewLoopToggledEvent creates a new LoopToggledEvent.
func NewLoopToggledEvent(entry EntryInfo, enabled bool) LoopToggledEvent {
	return LoopToggledEvent{baseEvent: newBaseEvent(), Entry: entry, Enabled: enabled}
}

// RestoreStartedEvent is published when a bulk playlist restore begins.
type RestoreStartedEvent struct {
	baseEvent
	EntryCount int
}

// Type returns the event type.
func (e RestoreStartedEvent) Type() EventType { return EventRestoreStarted }

// NewRestoreStartedEvent creates a new RestoreStartedEvent.
func NewRestoreStartedEvent(entryCount int) RestoreStartedEvent {
	return RestoreStartedEvent{baseEvent: newBaseEvent(), EntryCount: entryCount}
}

// RestoreProgressEvent is published as each persisted entry materializes.
type RestoreProgressEvent struct {
	baseEvent
	Entry    EntryInfo
	Restored int
	Total    int
}

// Type returns the event type.
func (e RestoreProgressEvent) Type() EventType { return EventRestoreProgress }

// NewRestoreProgressEvent creates a new RestoreProgressEvent.
func NewRestoreProgressEvent(entry EntryInfo, restored, total int) RestoreProgressEvent {
	return RestoreProgressEvent{baseEvent: newBaseEvent(), Entry: entry, Restored: restored, Total: total}
}

// RestoreCompletedEvent is published when every persisted entry has been
// materialized.
type RestoreCompletedEvent struct {
	baseEvent
	Restored int
}

// Type returns the event type.
func (e RestoreCompletedEvent) Type() EventType { return EventRestoreComplete }

// NewRestoreCompletedEvent creates a new RestoreCompletedEvent.
func NewRestoreCompletedEvent(restored int) RestoreCompletedEvent {
	return RestoreCompletedEvent{baseEvent: newBaseEvent(), Restored: restored}
}

// RestoreCancelledEvent is published when a restore is cancelled.
type RestoreCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e RestoreCancelledEvent) Type() EventType { return EventRestoreCancelled }

// NewRestoreCancelledEvent creates a new RestoreCancelledEvent.
func NewRestoreCancelledEvent(reason string) RestoreCancelledEvent {
	return RestoreCancelledEvent{baseEvent: newBaseEvent(), Reason: reason}
}
