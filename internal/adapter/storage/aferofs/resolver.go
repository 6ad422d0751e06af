// Package aferofs implements the StorageResolver port on top of an afero
// filesystem. Tokens are random UUIDs minted per registered path; the same
// path always maps to the same token, which keeps persisted playlists stable
// across registrations.
package aferofs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// Resolver resolves opaque tokens to files on an afero filesystem.
type Resolver struct {
	log *slog.Logger
	fs  afero.Fs

	mu     sync.Mutex
	byTok  map[string]string
	byPath map[string]string
}

// New returns a resolver over the given filesystem.
func New(fs afero.Fs, log *slog.Logger) *Resolver {
	return &Resolver{
		log:    log,
		fs:     fs,
		byTok:  make(map[string]string),
		byPath: make(map[string]string),
	}
}

// RegisterPath implements ports.StorageResolver.
func (r *Resolver) RegisterPath(path string) (string, error) {
	path = filepath.Clean(path)
	if _, err := r.fs.Stat(path); err != nil {
		return "", fmt.Errorf("%q: %w", path, domain.ErrStorageNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.byPath[path]; ok {
		return token, nil
	}
	token := uuid.NewString()
	r.byTok[token] = path
	r.byPath[path] = token
	r.log.Debug("path registered", "path", path, "token", token)
	return token, nil
}

// ResolveFile implements ports.StorageResolver.
func (r *Resolver) ResolveFile(ctx context.Context, token string) (ports.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := r.PathFor(token)
	if !ok {
		return nil, domain.ErrStorageNotFound
	}
	return r.open(path)
}

// ResolveInFolder implements ports.StorageResolver.
func (r *Resolver) ResolveInFolder(ctx context.Context, folderToken, name string) (ports.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, ok := r.PathFor(folderToken)
	if !ok {
		return nil, domain.ErrStorageNotFound
	}
	return r.open(filepath.Join(dir, filepath.Base(name)))
}

// ListFolder implements ports.StorageResolver.
func (r *Resolver) ListFolder(ctx context.Context, folderToken string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, ok := r.PathFor(folderToken)
	if !ok {
		return nil, domain.ErrStorageNotFound
	}
	infos, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", dir, domain.ErrStorageNotFound)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// PathFor implements ports.StorageResolver.
func (r *Resolver) PathFor(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.byTok[token]
	return path, ok
}

// Revoke implements ports.StorageResolver.
func (r *Resolver) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path, ok := r.byTok[token]; ok {
		delete(r.byTok, token)
		delete(r.byPath, path)
	}
}

func (r *Resolver) open(path string) (ports.File, error) {
	file, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, domain.ErrStorageNotFound)
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%q: %w", path, domain.ErrStorageNotFound)
	}
	return file, nil
}

var _ ports.StorageResolver = (*Resolver)(nil)
