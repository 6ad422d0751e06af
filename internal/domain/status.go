// Package domain contains the core value objects of the Hark playback engine.
// It has no dependencies on adapters or services.
package domain

// Status is the playback state of a playable entity.
//
// Exactly one status is active at a time. This replaces the four
// mutually-clearing boolean flags of classic player implementations: deriving
// IsPlaying/IsPaused/IsStopped/IsCompleted from a single field makes the
// mutual-exclusion invariant hold by construction.
type Status int

const (
	// StatusStopped is the initial state. Entering it resets the position to zero.
	StatusStopped Status = iota

	// StatusPlaying indicates the entity is actively rendering audio.
	StatusPlaying

	// StatusPaused indicates playback is suspended with position preserved.
	StatusPaused

	// StatusCompleted indicates the entity reached end-of-media with no loop
	// active. Terminal unless playback is explicitly restarted.
	StatusCompleted
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Direction records how playback navigation moved between playlist or
// audiobook part indices.
type Direction int

const (
	// DirectionUndefined means no navigation has happened yet.
	DirectionUndefined Direction = iota

	// DirectionPrevious means navigation moved to a lower index.
	DirectionPrevious

	// DirectionNext means navigation moved to a higher index.
	DirectionNext

	// DirectionCurrent means navigation resolved to the same index.
	DirectionCurrent

	// DirectionCompleted means the whole sequence finished.
	DirectionCompleted
)

// String returns a human-readable representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionPrevious:
		return "previous"
	case DirectionNext:
		return "next"
	case DirectionCurrent:
		return "current"
	case DirectionCompleted:
		return "completed"
	default:
		return "undefined"
	}
}

// EntryKind identifies the concrete variant behind a playlist entry.
type EntryKind int

const (
	// KindFile is a single standalone audio file.
	KindFile EntryKind = iota

	// KindBook is a multi-part audiobook backed by a folder.
	KindBook

	// KindStream is a remote URL rendered outside the audio graph.
	KindStream
)

// String returns a human-readable representation of the entry kind.
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindBook:
		return "book"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// NodeHandle is an opaque identifier for an input node in the audio graph.
type NodeHandle int64

// InvalidNodeHandle represents an absent or uninitialized graph node.
const InvalidNodeHandle NodeHandle = 0
