package ports

import (
	"github.com/narratix/hark/internal/domain"
)

// SnapshotRepository persists playlist snapshots between sessions.
// The serialization format is an adapter concern; the core only guarantees
// that a saved snapshot round-trips through Load unchanged.
type SnapshotRepository interface {
	// SaveSnapshot stores the snapshot, replacing any previous one.
	SaveSnapshot(snapshot domain.PlaylistSnapshot) error

	// LoadSnapshot returns the stored snapshot. The boolean is false when no
	// snapshot has been saved yet.
	LoadSnapshot() (domain.PlaylistSnapshot, bool, error)

	// Clear removes the stored snapshot.
	Clear() error
}
