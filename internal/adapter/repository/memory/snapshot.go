// Package memory provides an in-memory SnapshotRepository, used in tests and
// as the fallback when no state file is configured.
package memory

import (
	"sync"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// SnapshotRepository keeps the latest playlist snapshot in memory.
//
// Thread-safe: all operations are protected by a sync.RWMutex.
type SnapshotRepository struct {
	mu   sync.RWMutex
	snap domain.PlaylistSnapshot
	has  bool
}

// NewSnapshotRepository creates an empty repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// SaveSnapshot implements ports.SnapshotRepository.
func (r *SnapshotRepository) SaveSnapshot(snapshot domain.PlaylistSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snapshot
	r.has = true
	return nil
}

// LoadSnapshot implements ports.SnapshotRepository.
func (r *SnapshotRepository) LoadSnapshot() (domain.PlaylistSnapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, r.has, nil
}

// Clear implements ports.SnapshotRepository.
func (r *SnapshotRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = domain.PlaylistSnapshot{}
	r.has = false
	return nil
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)
