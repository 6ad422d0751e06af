package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/playback"
	"github.com/narratix/hark/internal/ports"
)

// Builder materializes playlist entries from storage tokens. Single files are
// built synchronously; audiobooks get their starting part synchronously and
// the rest through the shared work queue, so a hundred-part book becomes
// playable after one metadata read.
type Builder struct {
	log      *slog.Logger
	resolver ports.StorageResolver
	meta     ports.MetadataProvider
	bus      ports.EventBus
	queue    *WorkQueue
}

// NewBuilder wires a builder to its collaborators.
func NewBuilder(resolver ports.StorageResolver, meta ports.MetadataProvider, bus ports.EventBus, queue *WorkQueue, log *slog.Logger) *Builder {
	return &Builder{
		log:      log,
		resolver: resolver,
		meta:     meta,
		bus:      bus,
		queue:    queue,
	}
}

// TryCreateFile builds a standalone entry from a file token.
func (b *Builder) TryCreateFile(ctx context.Context, token string) (*playback.Part, error) {
	file, err := b.resolver.ResolveFile(ctx, token)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := filepath.Base(file.Name())
	if !IsSupported(name) {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnsupportedFileType)
	}
	tag := b.readTag(file, name)
	path, _ := b.resolver.PathFor(token)

	return playback.NewPart(path, name, token, tag), nil
}

// TryCreateStream builds a stream entry for a URL. No network access happens
// here; the URL is validated lazily by whatever renders it.
func (b *Builder) TryCreateStream(url, title string) *playback.Stream {
	if title == "" {
		title = url
	}
	return playback.NewStream(url, domain.MediaTag{Title: title})
}

// TryCreateBook builds an audiobook from a folder token. The part order
// follows an m3u manifest when the folder carries a valid one, and folder
// enumeration order otherwise. The part at startIndex materializes before
// TryCreateBook returns; every other part is queued.
func (b *Builder) TryCreateBook(ctx context.Context, folderToken string, startIndex int) (*playback.Audiobook, error) {
	names, err := b.resolver.ListFolder(ctx, folderToken)
	if err != nil {
		return nil, err
	}

	audio := lo.Filter(names, func(n string, _ int) bool { return IsSupported(n) })
	if len(audio) == 0 {
		return nil, domain.ErrEmptyFolder
	}
	sort.Strings(audio)
	ordered := OrderByManifest(audio, b.manifestOrder(ctx, folderToken, names))

	path, _ := b.resolver.PathFor(folderToken)
	book := playback.NewAudiobook(path, filepath.Base(path), folderToken, len(ordered))

	if startIndex < 0 || startIndex >= len(ordered) {
		startIndex = 0
	}
	if err := b.attachPart(ctx, book, folderToken, ordered[startIndex], startIndex); err != nil {
		return nil, err
	}
	if book.PlayState().IsCreated() {
		b.bus.Publish(domain.NewBookCreatedEvent(book.Info()))
		return book, nil
	}

	for i, name := range ordered {
		if i == startIndex {
			continue
		}
		i, name := i, name
		b.queue.Submit(book, func() {
			if ctx.Err() != nil {
				return
			}
			if err := b.attachPart(ctx, book, folderToken, name, i); err != nil {
				b.log.Warn("part materialization failed",
					"book", book.PlayState().Name(), "part", name, "error", err)
				return
			}
			if book.PlayState().IsCreated() {
				b.bus.Publish(domain.NewBookCreatedEvent(book.Info()))
			}
		})
	}
	return book, nil
}

// Prioritize moves a book's pending part tasks to the front of the queue.
// Called when the user selects a book that is still materializing.
func (b *Builder) Prioritize(book *playback.Audiobook) {
	b.queue.Prioritize(book)
}

// RestorePlaylist rebuilds persisted entries into the playlist. Entries whose
// storage has vanished are skipped silently; cancellation stops the restore
// between entries and keeps what was already rebuilt.
func (b *Builder) RestorePlaylist(ctx context.Context, snap domain.PlaylistSnapshot, pl *playback.Playlist) (int, error) {
	b.bus.Publish(domain.NewRestoreStartedEvent(len(snap.Entries)))

	restored := 0
	for _, es := range snap.Entries {
		select {
		case <-ctx.Done():
			b.bus.Publish(domain.NewRestoreCancelledEvent(ctx.Err().Error()))
			return restored, domain.ErrRestoreCancelled
		default:
		}

		entry, err := b.restoreEntry(ctx, es)
		if err != nil {
			b.log.Warn("skipping unrestorable entry", "name", es.Name, "error", err)
			continue
		}
		playback.ApplyEntrySnapshot(entry, es)
		if !pl.TryAdd(entry) {
			continue
		}
		restored++
		b.bus.Publish(domain.NewRestoreProgressEvent(entry.Info(), restored, len(snap.Entries)))
	}

	playback.ApplyPlaylistSnapshot(pl, snap)
	b.bus.Publish(domain.NewRestoreCompletedEvent(restored))
	return restored, nil
}

func (b *Builder) restoreEntry(ctx context.Context, es domain.EntrySnapshot) (playback.Entry, error) {
	switch es.Kind {
	case domain.KindFile:
		entry, err := b.TryCreateFile(ctx, es.Token)
		if err != nil {
			if token, ok := b.reregister(es, err); ok {
				return b.TryCreateFile(ctx, token)
			}
			return nil, err
		}
		return entry, nil
	case domain.KindBook:
		entry, err := b.TryCreateBook(ctx, es.FolderToken, es.CurrentPartIndex)
		if err != nil {
			if token, ok := b.reregister(es, err); ok {
				return b.TryCreateBook(ctx, token, es.CurrentPartIndex)
			}
			return nil, err
		}
		return entry, nil
	case domain.KindStream:
		return b.TryCreateStream(es.URL, es.Tag.Title), nil
	default:
		return nil, fmt.Errorf("unknown entry kind %v", es.Kind)
	}
}

// reregister mints a fresh token from the persisted path. Tokens live only as
// long as their resolver, so a snapshot loaded after a restart carries stale
// ones; the path still identifies the resource.
func (b *Builder) reregister(es domain.EntrySnapshot, cause error) (string, bool) {
	if !errors.Is(cause, domain.ErrStorageNotFound) || es.Path == "" {
		return "", false
	}
	token, err := b.resolver.RegisterPath(es.Path)
	if err != nil {
		return "", false
	}
	return token, true
}

// attachPart materializes one part and attaches it to its slot.
func (b *Builder) attachPart(ctx context.Context, book *playback.Audiobook, folderToken, name string, index int) error {
	file, err := b.resolver.ResolveInFolder(ctx, folderToken, name)
	if err != nil {
		return err
	}
	defer file.Close()

	tag := b.readTag(file, name)
	path := filepath.Join(book.PlayState().Path(), name)
	part := playback.NewBookPart(path, name, folderToken, tag)

	if _, err := book.AttachPart(index, part); err != nil {
		return err
	}
	b.bus.Publish(domain.NewPartCreatedEvent(book.Info(), index, name))
	return nil
}

// readTag extracts metadata, falling back to the file name as title when the
// container cannot be parsed. A missing tag never blocks ingestion.
func (b *Builder) readTag(file ports.File, name string) domain.MediaTag {
	tag, err := b.meta.Read(file)
	if err != nil {
		b.log.Debug("metadata read failed, using file name", "file", name, "error", err)
		tag = domain.MediaTag{}
	}
	if tag.Title == "" {
		tag.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return tag
}

// manifestOrder finds and parses the folder's m3u manifest. Any failure means
// no manifest: a nil result keeps the enumeration order.
func (b *Builder) manifestOrder(ctx context.Context, folderToken string, names []string) []string {
	manifestName, found := lo.Find(names, func(n string) bool {
		ext := strings.ToLower(filepath.Ext(n))
		return ext == ".m3u" || ext == ".m3u8"
	})
	if !found {
		return nil
	}

	file, err := b.resolver.ResolveInFolder(ctx, folderToken, manifestName)
	if err != nil {
		return nil
	}
	defer file.Close()

	entries, ok := ParseManifest(file)
	if !ok {
		return nil
	}
	return entries
}
