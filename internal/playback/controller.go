package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

const defaultPollInterval = 500 * time.Millisecond

// Controller is the transport facade. It owns the mapping between playback
// states and audio graph nodes, drives the position poll, reacts to node
// completion and publishes playback events.
//
// The audio graph is started lazily on the first play request so that a
// missing audio device does not break playlist management.
type Controller struct {
	log      *slog.Logger
	graph    ports.AudioGraph
	resolver ports.StorageResolver
	bus      ports.EventBus
	playlist *Playlist

	mu            sync.Mutex
	nodes         map[*State]domain.NodeHandle
	byNode        map[domain.NodeHandle]*State
	owners        map[*State]Entry
	current       Entry
	disablingLoop bool
	closed        bool

	pollInterval time.Duration
	stop         chan struct{}
	completions  chan domain.NodeHandle
	wg           sync.WaitGroup
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithPollInterval overrides the position poll interval.
func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewController wires the controller to its collaborators and starts the
// poll and completion goroutines. Call Close to stop them.
func NewController(graph ports.AudioGraph, resolver ports.StorageResolver, bus ports.EventBus, playlist *Playlist, log *slog.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		log:          log,
		graph:        graph,
		resolver:     resolver,
		bus:          bus,
		playlist:     playlist,
		nodes:        make(map[*State]domain.NodeHandle),
		byNode:       make(map[domain.NodeHandle]*State),
		owners:       make(map[*State]Entry),
		pollInterval: defaultPollInterval,
		stop:         make(chan struct{}),
		completions:  make(chan domain.NodeHandle, 16),
	}
	for _, opt := range opts {
		opt(c)
	}

	playlist.OnChange(func(action domain.ChangeAction, entries []domain.EntryInfo, index int) {
		bus.Publish(domain.NewPlaylistChangedEvent(action, entries, index))
	})
	graph.OnNodeCompleted(c.enqueueCompletion)

	c.wg.Add(2)
	go c.pollLoop()
	go c.completionLoop()
	return c
}

// Playlist returns the playlist the controller plays through.
func (c *Controller) Playlist() *Playlist { return c.playlist }

// Current returns the entry playback currently targets.
func (c *Controller) Current() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

// Close stops the background goroutines, tears down every node and closes
// the graph. Safe to call once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	c.wg.Wait()
	return c.graph.Close()
}

// Play resumes the last played entry, or starts the first playlist entry if
// nothing has been played yet.
func (c *Controller) Play(ctx context.Context) error {
	entry, ok := c.playlist.TryLastPlayedItem()
	if !ok {
		if entry, ok = c.playlist.TryItemAt(0); !ok {
			return domain.ErrPartNotFound
		}
	}
	return c.PlayEntry(ctx, entry)
}

// PlayIndex starts the playlist entry at the given index.
func (c *Controller) PlayIndex(ctx context.Context, index int) error {
	entry, ok := c.playlist.TryItemAt(index)
	if !ok {
		return domain.ErrInvalidIndex
	}
	return c.PlayEntry(ctx, entry)
}

// PlayEntry starts the given playlist entry, stopping whatever plays now.
func (c *Controller) PlayEntry(ctx context.Context, entry Entry) error {
	if _, ok := c.playlist.IndexOf(entry); !ok {
		return domain.ErrNotInPlaylist
	}
	return c.playEntry(ctx, entry, true)
}

// PlayAlone plays an entry without touching playlist bookkeeping. Used for
// one-off playback of items outside the playlist.
func (c *Controller) PlayAlone(ctx context.Context, entry Entry) error {
	return c.playEntry(ctx, entry, false)
}

// PlayBookmark navigates the entry to a bookmark and plays from there. For
// audiobooks the bookmark's part must already be materialized.
func (c *Controller) PlayBookmark(ctx context.Context, entry Entry, bm domain.Bookmark) error {
	switch e := entry.(type) {
	case *Audiobook:
		if _, ok := e.TryMoveToBookmarkedPart(bm); !ok {
			return domain.ErrPartNotCreated
		}
	default:
		state := entry.PlayState()
		if bm.Position < 0 || bm.Position > state.Duration() {
			return domain.ErrInvalidPosition
		}
		state.restorePosition(bm.Position)
	}
	inPlaylist := false
	if _, ok := c.playlist.IndexOf(entry); ok {
		inPlaylist = true
	}
	return c.playEntry(ctx, entry, inPlaylist)
}

// Next starts the next playlist entry, wrapping only when playlist looping
// is enabled.
func (c *Controller) Next(ctx context.Context) error {
	entry, ok := c.playlist.TryNextItem()
	if !ok {
		return domain.ErrPartNotFound
	}
	return c.PlayEntry(ctx, entry)
}

// Previous starts the previous playlist entry, wrapping only when playlist
// looping is enabled.
func (c *Controller) Previous(ctx context.Context) error {
	entry, ok := c.playlist.TryPreviousItem()
	if !ok {
		return domain.ErrPartNotFound
	}
	return c.PlayEntry(ctx, entry)
}

// Pause pauses the current entry, snapshotting the live node position so
// Resume continues exactly where playback halted.
func (c *Controller) Pause() error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	return c.pauseEntry(entry)
}

// PauseAll pauses every entry that is currently playing.
func (c *Controller) PauseAll() {
	for _, entry := range c.boundEntries() {
		if entry.PlayState().IsPlaying() {
			if err := c.pauseEntry(entry); err != nil {
				c.log.Warn("pause failed", "entry", entry.Info().Name, "error", err)
			}
		}
	}
}

// Resume restarts the current paused entry from its saved position.
func (c *Controller) Resume(ctx context.Context) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	if !entry.PlayState().IsPaused() {
		return nil
	}
	inPlaylist := false
	if _, inList := c.playlist.IndexOf(entry); inList {
		inPlaylist = true
	}
	return c.playEntry(ctx, entry, inPlaylist)
}

// Stop stops the current entry and resets its position to zero. Audiobooks
// additionally rewind to their first part.
func (c *Controller) Stop() error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	return c.stopEntry(entry)
}

// StopAll stops every bound entry.
func (c *Controller) StopAll() {
	for _, entry := range c.boundEntries() {
		if err := c.stopEntry(entry); err != nil {
			c.log.Warn("stop failed", "entry", entry.Info().Name, "error", err)
		}
	}
}

// SkipForward moves playback one unit ahead: an audiobook advances to its
// next part, anything else moves to the next playlist entry. A book already
// on its last part falls through to the playlist as well.
func (c *Controller) SkipForward(ctx context.Context) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	if book, isBook := entry.(*Audiobook); isBook {
		if part, moved := book.TryMoveToNextPart(); moved {
			return c.switchToPart(ctx, book, part, part.PlayState().Position(), book.PlayState().IsPlaying())
		}
	}
	return c.Next(ctx)
}

// SkipBack moves playback one unit back: an audiobook steps to its previous
// part, falling through to the previous playlist entry at the first part.
func (c *Controller) SkipBack(ctx context.Context) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	if book, isBook := entry.(*Audiobook); isBook {
		if part, moved := book.TryMoveToPreviousPart(); moved {
			return c.switchToPart(ctx, book, part, part.PlayState().Position(), book.PlayState().IsPlaying())
		}
	}
	return c.Previous(ctx)
}

// JumpToPosition seeks the current entry. For audiobooks the position is
// absolute across the whole book and may switch parts; while a loop window is
// active, targets outside it wrap to the window's begin boundary.
func (c *Controller) JumpToPosition(position time.Duration) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}

	if book, isBook := entry.(*Audiobook); isBook {
		prev, _ := book.CurrentPart()
		relative, part, moved := book.TryMoveToPartAtAbsolutePosition(position)
		if !moved {
			return domain.ErrInvalidPosition
		}
		if part != prev {
			return c.switchToPart(context.Background(), book, part, relative, book.PlayState().IsPlaying())
		}
		return c.seekLeaf(part.PlayState(), relative)
	}

	state := entry.PlayState()
	if position > state.Duration() {
		return domain.ErrInvalidPosition
	}
	if leaf, hasLeaf := entry.Leaf(); hasLeaf {
		return c.seekLeaf(leaf.PlayState(), position)
	}
	// Streams only track the position in state.
	_, err := state.SeekTo(position)
	return err
}

// JumpToPart switches an audiobook to the part at the given index, keeping
// the current playing/paused status.
func (c *Controller) JumpToPart(ctx context.Context, index int) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	book, isBook := entry.(*Audiobook)
	if !isBook {
		return domain.ErrPartNotFound
	}
	part, found := book.TryPartAt(index)
	if !found {
		return domain.ErrInvalidIndex
	}
	if !part.PlayState().IsCreated() {
		return domain.ErrPartNotCreated
	}
	if cur, has := book.CurrentPart(); has && cur == part {
		return nil
	}
	if !book.TryMoveToPart(part) {
		return domain.ErrPartNotCreated
	}
	return c.switchToPart(ctx, book, part, part.PlayState().Position(), book.PlayState().IsPlaying())
}

// NextPart advances an audiobook to its next part.
func (c *Controller) NextPart(ctx context.Context) error {
	return c.stepPart(ctx, func(b *Audiobook) (*Part, bool) { return b.TryMoveToNextPart() })
}

// PreviousPart steps an audiobook back to its previous part.
func (c *Controller) PreviousPart(ctx context.Context) error {
	return c.stepPart(ctx, func(b *Audiobook) (*Part, bool) { return b.TryMoveToPreviousPart() })
}

func (c *Controller) stepPart(ctx context.Context, move func(*Audiobook) (*Part, bool)) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	book, isBook := entry.(*Audiobook)
	if !isBook {
		return domain.ErrPartNotFound
	}
	part, moved := move(book)
	if !moved {
		return domain.ErrPartNotFound
	}
	return c.switchToPart(ctx, book, part, part.PlayState().Position(), book.PlayState().IsPlaying())
}

// SetVolume sets the current entry's volume. Zero mutes; for audiobooks the
// volume propagates onto the active part.
func (c *Controller) SetVolume(volume float64) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	state, leafState := c.statePair(entry)
	if leafState != state {
		if _, err := state.SetVolume(volume); err != nil {
			return err
		}
	}
	effects, err := leafState.SetVolume(volume)
	if err != nil {
		return err
	}
	if err := c.applyToLeaf(leafState, effects); err != nil {
		return err
	}
	c.bus.Publish(domain.NewVolumeChangedEvent(entry.Info(), volume))
	return nil
}

// ToggleMute mutes the current entry, or restores the volume it had before
// muting.
func (c *Controller) ToggleMute() error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	state, leafState := c.statePair(entry)
	muted := !state.IsMuted()
	if leafState != state {
		state.SetMuted(muted)
	}
	if err := c.applyToLeaf(leafState, leafState.SetMuted(muted)); err != nil {
		return err
	}
	c.bus.Publish(domain.NewMuteToggledEvent(entry.Info(), muted))
	return nil
}

// SetSpeed sets the playback-speed multiplier of the current entry.
func (c *Controller) SetSpeed(speed float64) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	if speed <= 0 {
		return domain.NewValidationError("speed", fmt.Sprintf("%v", speed), "must be positive")
	}
	state, leafState := c.statePair(entry)
	if leafState != state {
		state.SetSpeed(speed)
	}
	return c.applyToLeaf(leafState, leafState.SetSpeed(speed))
}

// SetLoopCount configures how many times the loop window repeats. None loops
// forever.
func (c *Controller) SetLoopCount(count mo.Option[int]) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	state, leafState := c.statePair(entry)
	if leafState != state {
		state.SetLoopCount(count)
	}
	return c.applyToLeaf(leafState, leafState.SetLoopCount(count))
}

// SetLoopEnabled toggles looping on the current entry.
func (c *Controller) SetLoopEnabled(enabled bool) error {
	if !enabled {
		return c.DisableLoop()
	}
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	state, leafState := c.statePair(entry)
	if leafState != state {
		state.SetLoopEnabled(true)
	}
	if err := c.applyToLeaf(leafState, leafState.SetLoopEnabled(true)); err != nil {
		return err
	}
	c.bus.Publish(domain.NewLoopToggledEvent(entry.Info(), true))
	return nil
}

// StartLoopRange enables looping over [begin, end) on the current entry and
// (re)starts playback when the entry is not already playing. The entry must
// be a playlist member.
func (c *Controller) StartLoopRange(ctx context.Context, begin, end time.Duration) error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	if _, inList := c.playlist.IndexOf(entry); !inList {
		return domain.ErrNotInPlaylist
	}
	state, leafState := c.statePair(entry)
	if begin < 0 || end <= begin || end > leafState.Duration() {
		return domain.ErrInvalidPosition
	}
	r := domain.LoopRange{Begin: begin, End: end}
	if leafState != state {
		state.SetLoopRange(r)
		state.SetLoopEnabled(true)
	}
	effects := append(leafState.SetLoopRange(r), leafState.SetLoopEnabled(true)...)
	if err := c.applyToLeaf(leafState, effects); err != nil {
		return err
	}
	if !leafState.IsPlaying() {
		if err := c.playEntry(ctx, entry, true); err != nil {
			return err
		}
	}
	c.bus.Publish(domain.NewLoopToggledEvent(entry.Info(), true))
	return nil
}

// DisableLoop turns looping off on the current entry. Dropping the node's
// loop count can make a node sitting at the loop boundary report completion;
// that spurious completion is suppressed.
func (c *Controller) DisableLoop() error {
	entry, ok := c.Current()
	if !ok {
		return domain.ErrPartNotFound
	}
	state, leafState := c.statePair(entry)

	// A node sitting at the loop's end boundary reports completion the moment
	// its loop count drops to zero. Arm suppression only for that case; the
	// next completion consumes the flag.
	if r := leafState.LoopRange(); leafState.IsLoopEnabled() && r.IsSet() && leafState.Position() >= r.End {
		c.mu.Lock()
		c.disablingLoop = true
		c.mu.Unlock()
	}

	if leafState != state {
		state.SetLoopEnabled(false)
	}
	if err := c.applyToLeaf(leafState, leafState.SetLoopEnabled(false)); err != nil {
		return err
	}
	c.bus.Publish(domain.NewLoopToggledEvent(entry.Info(), false))
	return nil
}

// AddToPlaylist appends an entry to the playlist.
func (c *Controller) AddToPlaylist(entry Entry) error {
	if !c.playlist.TryAdd(entry) {
		return domain.ErrDuplicateEntry
	}
	return nil
}

// AddRangeToPlaylist appends several entries atomically.
func (c *Controller) AddRangeToPlaylist(entries []Entry) error {
	if !c.playlist.TryAddRange(entries) {
		return domain.ErrDuplicateEntry
	}
	return nil
}

// InsertIntoPlaylist inserts an entry at the given index; out-of-bounds
// indices append.
func (c *Controller) InsertIntoPlaylist(index int, entry Entry) error {
	if !c.playlist.TryInsert(index, entry) {
		return domain.ErrDuplicateEntry
	}
	return nil
}

// RemoveFromPlaylist removes an entry. Removing the entry that currently
// plays stops it and releases its node first.
func (c *Controller) RemoveFromPlaylist(entry Entry) error {
	if cur, ok := c.Current(); ok && cur == entry {
		if err := c.stopEntry(entry); err != nil {
			c.log.Warn("stop before remove failed", "error", err)
		}
		c.releaseEntry(entry)
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
	}
	if !c.playlist.TryRemove(entry) {
		return domain.ErrNotInPlaylist
	}
	return nil
}

// CreateBookmark captures the current entry's position as a bookmark and
// attaches it to the entry. For audiobooks the bookmark stores both the
// absolute book position and the part-relative one.
func (c *Controller) CreateBookmark() (domain.Bookmark, error) {
	entry, ok := c.Current()
	if !ok {
		return domain.Bookmark{}, domain.ErrPartNotFound
	}
	state := entry.PlayState()

	var bm domain.Bookmark
	state.Sync(func() {
		if book, isBook := entry.(*Audiobook); isBook {
			relative := time.Duration(0)
			if leaf, hasLeaf := book.CurrentPart(); hasLeaf {
				relative = leaf.PlayState().Position()
			}
			bm = domain.NewBookmark(state.Position(), relative, book.CurrentPartIndex(), state.Tag())
			return
		}
		bm = domain.NewBookmark(state.Position(), state.Position(), -1, state.Tag())
	})

	if !state.TryAddBookmark(bm) {
		return domain.Bookmark{}, domain.ErrInvalidPosition
	}
	return bm, nil
}

// --- internal machinery ---

func (c *Controller) ensureStarted() error {
	if c.graph.IsStarted() {
		return nil
	}
	if err := c.graph.Start(); err != nil {
		gerr := domain.NewGraphError("start", "audio graph failed to start", true, err)
		c.bus.Publish(domain.NewPartErrorEvent(domain.EntryInfo{}, gerr))
		return gerr
	}
	return nil
}

func (c *Controller) playEntry(ctx context.Context, entry Entry, inPlaylist bool) error {
	state := entry.PlayState()

	// Streams are not decoded locally; transport only mutates state.
	if state.Kind() == domain.KindStream {
		c.stopOthers(entry)
		state.BeginPlay()
		c.setCurrent(entry)
		if inPlaylist {
			c.playlist.UpdateLastPlayed(entry)
		}
		c.bus.Publish(domain.NewPartStartedEvent(entry.Info()))
		return nil
	}

	if err := c.ensureStarted(); err != nil {
		return err
	}

	leaf, hasLeaf := entry.Leaf()
	if !hasLeaf {
		return domain.ErrPartNotCreated
	}

	c.stopOthers(entry)

	handle, err := c.bindLeaf(ctx, entry, leaf)
	if err != nil {
		// A vanished resource is a silent no-op, not a failure.
		if errors.Is(err, domain.ErrStorageNotFound) {
			c.log.Warn("resource unavailable, skipping play", "entry", entry.Info().Name)
			return nil
		}
		c.bus.Publish(domain.NewPartErrorEvent(entry.Info(), err))
		return err
	}

	leafState := leaf.PlayState()
	effects := leafState.BeginPlay()
	if pos := leafState.Position(); pos > 0 {
		effects = append([]domain.Effect{domain.SeekEffect(pos)}, effects...)
	}
	if err := c.graph.Apply(handle, effects...); err != nil {
		c.bus.Publish(domain.NewPartErrorEvent(entry.Info(), err))
		return err
	}

	if book, isBook := entry.(*Audiobook); isBook {
		book.PlayState().BeginPlay()
		book.SyncFromLeaf(leafState.Position())
	} else if entry != Entry(leaf) {
		state.BeginPlay()
	}

	c.setCurrent(entry)
	if inPlaylist {
		c.playlist.UpdateLastPlayed(entry)
	}
	c.bus.Publish(domain.NewPartStartedEvent(entry.Info()))
	return nil
}

func (c *Controller) pauseEntry(entry Entry) error {
	state := entry.PlayState()
	if state.Kind() == domain.KindStream {
		state.BeginPause(state.Position())
		c.bus.Publish(domain.NewPartPausedEvent(entry.Info(), state.Position()))
		return nil
	}

	leaf, hasLeaf := entry.Leaf()
	if !hasLeaf {
		return domain.ErrPartNotCreated
	}
	leafState := leaf.PlayState()

	handle, bound := c.handleFor(leafState)
	pos := leafState.Position()
	if bound {
		if p, err := c.graph.NodePosition(handle); err == nil {
			pos = p
		}
	}

	effects := leafState.BeginPause(pos)
	if bound && len(effects) > 0 {
		if err := c.graph.Apply(handle, effects...); err != nil {
			return err
		}
	}

	if book, isBook := entry.(*Audiobook); isBook {
		abs := book.SyncFromLeaf(pos)
		book.PlayState().BeginPause(abs)
		pos = abs
	}
	c.bus.Publish(domain.NewPartPausedEvent(entry.Info(), pos))
	return nil
}

func (c *Controller) stopEntry(entry Entry) error {
	state := entry.PlayState()
	if state.Kind() == domain.KindStream {
		state.BeginStop()
		c.bus.Publish(domain.NewPartStoppedEvent(entry.Info()))
		return nil
	}

	leaf, hasLeaf := entry.Leaf()
	if !hasLeaf {
		return domain.ErrPartNotCreated
	}
	leafState := leaf.PlayState()

	effects := leafState.BeginStop()
	if handle, bound := c.handleFor(leafState); bound {
		if err := c.graph.Apply(handle, effects...); err != nil {
			return err
		}
	}

	if book, isBook := entry.(*Audiobook); isBook {
		book.PlayState().BeginStop()
		book.ResetToFirstPart()
		// The rewound first part becomes the bound leaf on the next play.
		c.releaseLeafState(leafState)
	}
	c.bus.Publish(domain.NewPartStoppedEvent(entry.Info()))
	return nil
}

// stopOthers pauses nothing; it hard-stops every bound entry other than the
// one about to play. One audible source at a time.
func (c *Controller) stopOthers(next Entry) {
	for _, entry := range c.boundEntries() {
		if entry == next {
			continue
		}
		if entry.PlayState().IsPlaying() {
			if err := c.stopEntry(entry); err != nil {
				c.log.Warn("stop before switch failed", "entry", entry.Info().Name, "error", err)
			}
		}
		c.releaseEntry(entry)
	}
}

func (c *Controller) seekLeaf(leafState *State, position time.Duration) error {
	effects, err := leafState.SeekTo(position)
	if err != nil {
		return err
	}
	return c.applyToLeaf(leafState, effects)
}

// switchToPart rebinds an audiobook from its old part's node to a new one,
// seeks to the given relative position and optionally starts playback.
func (c *Controller) switchToPart(ctx context.Context, book *Audiobook, part *Part, relative time.Duration, play bool) error {
	fromIdx := -1
	c.mu.Lock()
	for state, owner := range c.owners {
		if owner == Entry(book) && state != part.PlayState() {
			if idx, ok := book.IndexOf(c.partOf(state, book)); ok {
				fromIdx = idx
			}
			handle := c.nodes[state]
			delete(c.nodes, state)
			delete(c.byNode, handle)
			delete(c.owners, state)
			if err := c.graph.RemoveNode(handle); err != nil && !errors.Is(err, domain.ErrInvalidNodeHandle) {
				c.log.Warn("node removal failed", "error", err)
			}
		}
	}
	c.mu.Unlock()

	handle, err := c.bindLeaf(ctx, book, part)
	if err != nil {
		c.bus.Publish(domain.NewPartErrorEvent(book.Info(), err))
		return err
	}

	leafState := part.PlayState()
	effects, err := leafState.SeekTo(relative)
	if err != nil {
		return err
	}
	if play {
		effects = append(effects, leafState.BeginPlay()...)
	}
	if err := c.graph.Apply(handle, effects...); err != nil {
		return err
	}

	toIdx := book.CurrentPartIndex()
	book.SyncFromLeaf(leafState.Position())
	c.bus.Publish(domain.NewPartAdvancedEvent(book.Info(), fromIdx, toIdx))
	return nil
}

// partOf resolves which part of a book a bound state belongs to.
func (c *Controller) partOf(state *State, book *Audiobook) *Part {
	for _, p := range book.Parts() {
		if p != nil && p.PlayState() == state {
			return p
		}
	}
	return nil
}

// bindLeaf ensures the leaf part has a graph node, creating one by resolving
// the part's backing file through the storage resolver.
func (c *Controller) bindLeaf(ctx context.Context, owner Entry, leaf *Part) (domain.NodeHandle, error) {
	leafState := leaf.PlayState()
	c.mu.Lock()
	if handle, ok := c.nodes[leafState]; ok {
		c.mu.Unlock()
		return handle, nil
	}
	c.mu.Unlock()

	var (
		file ports.File
		err  error
	)
	if folder := leafState.FolderToken(); folder != "" {
		file, err = c.resolver.ResolveInFolder(ctx, folder, leafState.Name())
	} else {
		file, err = c.resolver.ResolveFile(ctx, leafState.Token())
	}
	if err != nil {
		return domain.InvalidNodeHandle, fmt.Errorf("resolving %q: %w", leafState.Name(), err)
	}

	handle, err := c.graph.CreateNode(file)
	if err != nil {
		file.Close()
		return domain.InvalidNodeHandle, err
	}

	if leafState.Duration() == 0 {
		if d, derr := c.graph.NodeDuration(handle); derr == nil {
			leafState.SetDuration(d)
		}
	}

	c.mu.Lock()
	c.nodes[leafState] = handle
	c.byNode[handle] = leafState
	c.owners[leafState] = owner
	c.mu.Unlock()
	return handle, nil
}

// releaseEntry unbinds every node owned by the entry.
func (c *Controller) releaseEntry(entry Entry) {
	c.mu.Lock()
	var handles []domain.NodeHandle
	for state, owner := range c.owners {
		if owner == entry {
			handles = append(handles, c.nodes[state])
			delete(c.byNode, c.nodes[state])
			delete(c.nodes, state)
			delete(c.owners, state)
		}
	}
	c.mu.Unlock()

	for _, h := range handles {
		if err := c.graph.RemoveNode(h); err != nil && !errors.Is(err, domain.ErrInvalidNodeHandle) {
			c.log.Warn("node removal failed", "error", err)
		}
	}
}

func (c *Controller) releaseLeafState(leafState *State) {
	c.mu.Lock()
	handle, ok := c.nodes[leafState]
	if ok {
		delete(c.nodes, leafState)
		delete(c.byNode, handle)
		delete(c.owners, leafState)
	}
	c.mu.Unlock()
	if ok {
		if err := c.graph.RemoveNode(handle); err != nil && !errors.Is(err, domain.ErrInvalidNodeHandle) {
			c.log.Warn("node removal failed", "error", err)
		}
	}
}

func (c *Controller) applyToLeaf(leafState *State, effects []domain.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	handle, bound := c.handleFor(leafState)
	if !bound {
		// Effects are re-derived from state when the node is created.
		return nil
	}
	return c.graph.Apply(handle, effects...)
}

func (c *Controller) handleFor(leafState *State) (domain.NodeHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, ok := c.nodes[leafState]
	return handle, ok
}

func (c *Controller) setCurrent(entry Entry) {
	c.mu.Lock()
	c.current = entry
	c.mu.Unlock()
}

func (c *Controller) boundEntries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[Entry]struct{})
	var out []Entry
	if c.current != nil {
		seen[c.current] = struct{}{}
		out = append(out, c.current)
	}
	for _, owner := range c.owners {
		if _, ok := seen[owner]; !ok {
			seen[owner] = struct{}{}
			out = append(out, owner)
		}
	}
	return out
}

// pollLoop samples bound node positions on a fixed interval and publishes
// progress for states that are actually playing.
func (c *Controller) pollLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

func (c *Controller) pollOnce() {
	c.mu.Lock()
	type sample struct {
		state  *State
		handle domain.NodeHandle
		owner  Entry
	}
	samples := make([]sample, 0, len(c.nodes))
	for state, handle := range c.nodes {
		samples = append(samples, sample{state, handle, c.owners[state]})
	}
	c.mu.Unlock()

	for _, s := range samples {
		if !s.state.IsPlaying() {
			continue
		}
		pos, err := c.graph.NodePosition(s.handle)
		if err != nil {
			continue
		}
		if !s.state.UpdatePosition(pos) {
			continue
		}
		info := s.owner.Info()
		reportPos, reportDur := pos, s.state.Duration()
		if book, isBook := s.owner.(*Audiobook); isBook {
			reportPos = book.SyncFromLeaf(pos)
			reportDur = book.PlayState().Duration()
		}
		c.bus.Publish(domain.NewPartProgressEvent(info, reportPos, reportDur))
	}
}

// enqueueCompletion is invoked from the audio goroutine and must not block.
func (c *Controller) enqueueCompletion(handle domain.NodeHandle) {
	select {
	case c.completions <- handle:
	default:
		c.log.Warn("completion queue full, dropping", "handle", handle)
	}
}

func (c *Controller) completionLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case handle := <-c.completions:
			c.handleCompletion(handle)
		}
	}
}

func (c *Controller) handleCompletion(handle domain.NodeHandle) {
	c.mu.Lock()
	state := c.byNode[handle]
	owner := c.owners[state]
	suppressed := c.disablingLoop
	if suppressed {
		c.disablingLoop = false
	}
	c.mu.Unlock()

	if state == nil || suppressed {
		return
	}

	// While the part loops, reaching the window's end is the node rewinding,
	// not the part finishing. The node stays bound and keeps playing.
	if state.IsLoopEnabled() {
		return
	}

	state.Complete()

	if book, isBook := owner.(*Audiobook); isBook {
		c.handleBookCompletion(book)
		return
	}
	c.handleFlatCompletion(owner)
}

// handleBookCompletion advances a book to its next part when continuous play
// is on, or completes the whole book.
func (c *Controller) handleBookCompletion(book *Audiobook) {
	if book.ContinuousPlay() {
		if next, ok := book.TryMoveToNextPart(); ok {
			next.PlayState().restorePosition(0)
			if err := c.switchToPart(context.Background(), book, next, 0, true); err != nil {
				c.log.Error("advancing to next part failed", "book", book.PlayState().Name(), "error", err)
			}
			return
		}
	}
	book.PlayState().Complete()
	c.releaseEntry(book)
	c.bus.Publish(domain.NewPartCompletedEvent(book.Info()))
	c.advanceAfterCompletion(book)
}

func (c *Controller) handleFlatCompletion(entry Entry) {
	if entry == nil {
		return
	}
	c.releaseEntry(entry)
	c.bus.Publish(domain.NewPartCompletedEvent(entry.Info()))
	c.advanceAfterCompletion(entry)
}

// advanceAfterCompletion applies the playlist loop policy once an entry has
// fully completed: replay the same entry when loop-current-file is on,
// otherwise move on only when playlist looping allows it.
func (c *Controller) advanceAfterCompletion(completed Entry) {
	ctx := context.Background()

	if c.playlist.IsLoopCurrentFileEnabled() {
		if err := c.playEntry(ctx, completed, true); err != nil {
			c.log.Error("replaying completed entry failed", "error", err)
		}
		return
	}
	if !c.playlist.IsLoopEnabled() {
		return
	}
	next, ok := c.playlist.TryNextItem()
	if !ok {
		return
	}
	if err := c.PlayEntry(ctx, next); err != nil {
		c.log.Error("advancing playlist failed", "error", err)
	}
}

// statePair returns the entry's aggregate state and the leaf state effects
// target. For flat entries and streams both are the same object.
func (c *Controller) statePair(entry Entry) (state, leafState *State) {
	state = entry.PlayState()
	leafState = state
	if leaf, hasLeaf := entry.Leaf(); hasLeaf {
		leafState = leaf.PlayState()
	}
	return state, leafState
}
