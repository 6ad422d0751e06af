// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/narratix/hark/internal/adapter/eventbus"
	beepgraph "github.com/narratix/hark/internal/adapter/graph/beep"
	mockgraph "github.com/narratix/hark/internal/adapter/graph/mock"
	"github.com/narratix/hark/internal/adapter/metadata/tagmeta"
	"github.com/narratix/hark/internal/adapter/repository/jsonfile"
	"github.com/narratix/hark/internal/adapter/repository/memory"
	"github.com/narratix/hark/internal/adapter/storage/aferofs"
	"github.com/narratix/hark/internal/library"
	"github.com/narratix/hark/internal/logger"
	"github.com/narratix/hark/internal/playback"
	"github.com/narratix/hark/internal/ports"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	log *slog.Logger
	cfg Config

	fs       afero.Fs
	bus      ports.EventBus
	graph    ports.AudioGraph
	resolver *aferofs.Resolver
	queue    *library.WorkQueue
	builder  *library.Builder
	playlist *playback.Playlist
	repo     ports.SnapshotRepository

	controller *playback.Controller
}

// Option customizes application construction. Options exist for the pieces
// tests need to substitute.
type Option func(*Application)

// WithFilesystem substitutes the filesystem behind storage resolution and
// state persistence. Defaults to the OS filesystem.
func WithFilesystem(fs afero.Fs) Option {
	return func(a *Application) { a.fs = fs }
}

// WithGraph substitutes the audio graph.
func WithGraph(g ports.AudioGraph) Option {
	return func(a *Application) { a.graph = g }
}

// New creates an application with all dependencies wired.
func New(cfg Config, opts ...Option) (*Application, error) {
	a := &Application{cfg: cfg}

	a.log = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel, logger.DefaultConfig().Level),
		Format: cfg.LogFormat,
	})
	a.log.Info("initializing", slog.String("version", GetVersionInfo().FullString()))

	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}

	syncBus := eventbus.NewSyncEventBus()
	syncBus.SetLogger(a.log.With(slog.String("component", "eventbus")))
	a.bus = syncBus

	if a.graph == nil {
		if cfg.UseMockGraph {
			a.graph = mockgraph.New()
		} else {
			a.graph = beepgraph.New(a.log.With(slog.String("component", "graph")))
		}
	}

	a.resolver = aferofs.New(a.fs, a.log.With(slog.String("component", "storage")))

	workers := cfg.QueueWorkers
	if workers <= 0 {
		workers = DefaultConfig().QueueWorkers
	}
	a.queue = library.NewWorkQueue(workers)
	a.builder = library.NewBuilder(
		a.resolver,
		tagmeta.New(a.log.With(slog.String("component", "metadata"))),
		a.bus,
		a.queue,
		a.log.With(slog.String("component", "library")),
	)

	if cfg.StateFile != "" {
		a.repo = jsonfile.NewSnapshotRepository(a.fs, cfg.StateFile)
	} else {
		a.repo = memory.NewSnapshotRepository()
	}

	a.playlist = playback.NewPlaylist()
	a.controller = playback.NewController(
		a.graph,
		a.resolver,
		a.bus,
		a.playlist,
		a.log.With(slog.String("component", "playback")),
		playback.WithPollInterval(cfg.PollInterval),
	)

	return a, nil
}

// Controller exposes the playback controller.
func (a *Application) Controller() *playback.Controller { return a.controller }

// Builder exposes the entry builder.
func (a *Application) Builder() *library.Builder { return a.builder }

// Playlist exposes the playlist.
func (a *Application) Playlist() *playback.Playlist { return a.playlist }

// EventBus exposes the event bus for subscriptions.
func (a *Application) EventBus() ports.EventBus { return a.bus }

// AddPath registers a file or folder and appends the resulting entry to the
// playlist. Folders become audiobooks, files become flat entries.
func (a *Application) AddPath(ctx context.Context, path string) (playback.Entry, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	token, err := a.resolver.RegisterPath(path)
	if err != nil {
		return nil, err
	}

	var entry playback.Entry
	if info.IsDir() {
		book, err := a.builder.TryCreateBook(ctx, token, 0)
		if err != nil {
			return nil, err
		}
		book.SetContinuousPlay(a.cfg.ContinuousPlay)
		entry = book
	} else {
		part, err := a.builder.TryCreateFile(ctx, token)
		if err != nil {
			return nil, err
		}
		entry = part
	}

	if err := a.controller.AddToPlaylist(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AddStream appends a stream entry to the playlist.
func (a *Application) AddStream(url, title string) (playback.Entry, error) {
	stream := a.builder.TryCreateStream(url, title)
	if err := a.controller.AddToPlaylist(stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// Play resumes the last played entry, or starts the first playlist entry. A
// selected audiobook that is still materializing gets its remaining parts
// moved to the front of the work queue before playback starts.
func (a *Application) Play(ctx context.Context) error {
	entry, ok := a.playlist.TryLastPlayedItem()
	if !ok {
		entry, ok = a.playlist.TryItemAt(0)
	}
	if ok {
		a.prioritizeIfCreating(entry)
	}
	return a.controller.Play(ctx)
}

// PlayEntry starts the given playlist entry, prioritizing its materialization
// first when it is an audiobook under construction.
func (a *Application) PlayEntry(ctx context.Context, entry playback.Entry) error {
	a.prioritizeIfCreating(entry)
	return a.controller.PlayEntry(ctx, entry)
}

func (a *Application) prioritizeIfCreating(entry playback.Entry) {
	if book, isBook := entry.(*playback.Audiobook); isBook && book.PlayState().IsCreating() {
		a.builder.Prioritize(book)
	}
}

// RestoreSession rebuilds the playlist from the persisted snapshot. A missing
// snapshot is not an error.
func (a *Application) RestoreSession(ctx context.Context) error {
	snap, ok, err := a.repo.LoadSnapshot()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	restored, err := a.builder.RestorePlaylist(ctx, snap, a.playlist)
	if err != nil {
		return err
	}
	a.log.Info("session restored", slog.Int("entries", restored))
	return nil
}

// SaveSession persists the current playlist snapshot.
func (a *Application) SaveSession() error {
	return a.repo.SaveSnapshot(playback.SnapshotPlaylist(a.playlist))
}

// Shutdown saves the session and releases every resource. Safe to defer from
// main.
func (a *Application) Shutdown() {
	a.log.Info("shutting down")

	if err := a.SaveSession(); err != nil {
		a.log.Warn("failed to save session", slog.Any("error", err))
	}
	if err := a.controller.Close(); err != nil {
		a.log.Warn("failed to close playback", slog.Any("error", err))
	}
	a.queue.Close()
	if err := a.bus.Close(); err != nil {
		a.log.Warn("failed to close event bus", slog.Any("error", err))
	}

	a.log.Info("shutdown complete")
}
