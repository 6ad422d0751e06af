// Package jsonfile persists playlist snapshots as a JSON file on an afero
// filesystem.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// SnapshotRepository stores the snapshot at a fixed path, creating parent
// directories on first save.
type SnapshotRepository struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewSnapshotRepository creates a repository writing to path on fs.
func NewSnapshotRepository(fs afero.Fs, path string) *SnapshotRepository {
	return &SnapshotRepository{fs: fs, path: path}
}

// SaveSnapshot implements ports.SnapshotRepository.
func (r *SnapshotRepository) SaveSnapshot(snapshot domain.PlaylistSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return domain.NewServiceError("SnapshotRepository", "SaveSnapshot", "failed to marshal snapshot", err)
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return domain.NewServiceError("SnapshotRepository", "SaveSnapshot", "failed to create state directory", err)
	}
	if err := afero.WriteFile(r.fs, r.path, data, 0o644); err != nil {
		return domain.NewServiceError("SnapshotRepository", "SaveSnapshot", "failed to write state file", err)
	}
	return nil
}

// LoadSnapshot implements ports.SnapshotRepository.
func (r *SnapshotRepository) LoadSnapshot() (domain.PlaylistSnapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PlaylistSnapshot{}, false, nil
		}
		return domain.PlaylistSnapshot{}, false, domain.NewServiceError("SnapshotRepository", "LoadSnapshot", "failed to read state file", err)
	}
	var snap domain.PlaylistSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PlaylistSnapshot{}, false, domain.NewServiceError("SnapshotRepository", "LoadSnapshot", "failed to unmarshal snapshot", err)
	}
	return snap, true, nil
}

// Clear implements ports.SnapshotRepository.
func (r *SnapshotRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fs.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return domain.NewServiceError("SnapshotRepository", "Clear", "failed to remove state file", err)
	}
	return nil
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)
