// Package playback contains the playback orchestration core: the shared
// part state machine, the audiobook composite, the playlist and the
// controller that binds parts to audio graph nodes.
package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/narratix/hark/internal/domain"
)

// State is the playback state shared by every playable entity: standalone
// files, audiobook parts, whole audiobooks and HTTP streams all carry exactly
// one State. Composites contain further States instead of subclassing.
//
// All methods are safe for concurrent use. Mutations never touch the audio
// graph; they return the effects the controller must apply to the bound node,
// if one exists.
type State struct {
	mu sync.Mutex

	// extMu is handed to callers that need to guard multi-step
	// read-modify-write sequences spanning several accessors, e.g. bookmark
	// creation reading position and tag fields atomically.
	extMu sync.Mutex

	id          string
	kind        domain.EntryKind
	path        string
	name        string
	token       string
	folderToken string

	status   domain.Status
	position time.Duration
	duration time.Duration
	nav      domain.Direction

	volume      float64
	savedVolume float64
	muted       bool
	speed       float64

	loopEnabled bool
	loopCount   mo.Option[int]
	loopRange   domain.LoopRange

	tag       domain.MediaTag
	bookmarks []domain.Bookmark

	creating bool
	created  bool
}

// newState returns a stopped state with full volume and normal speed.
func newState(kind domain.EntryKind, path, name, token string) *State {
	return &State{
		id:          uuid.NewString(),
		kind:        kind,
		path:        path,
		name:        name,
		token:       token,
		status:      domain.StatusStopped,
		volume:      1.0,
		savedVolume: 1.0,
		speed:       1.0,
		loopCount:   mo.None[int](),
		loopRange:   domain.NoLoopRange,
	}
}

// Sync runs fn while holding the state's external synchronization handle.
// Accessors and mutators may be called from inside fn.
func (s *State) Sync(fn func()) {
	s.extMu.Lock()
	defer s.extMu.Unlock()
	fn()
}

// ID returns the unique identifier of this state.
func (s *State) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Kind returns the entry kind this state belongs to.
func (s *State) Kind() domain.EntryKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Path returns the filesystem path of the backing resource.
func (s *State) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Name returns the file name of the backing resource.
func (s *State) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Token returns the opaque access token used to re-open the resource.
func (s *State) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// FolderToken returns the folder token for audiobook parts, if any.
func (s *State) FolderToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folderToken
}

// setFolderToken records the folder token an audiobook part is addressed by.
func (s *State) setFolderToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderToken = token
}

// Status returns the current playback status.
func (s *State) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsPlaying reports whether the state is playing.
func (s *State) IsPlaying() bool { return s.Status() == domain.StatusPlaying }

// IsPaused reports whether the state is paused.
func (s *State) IsPaused() bool { return s.Status() == domain.StatusPaused }

// IsStopped reports whether the state is stopped.
func (s *State) IsStopped() bool { return s.Status() == domain.StatusStopped }

// IsCompleted reports whether the state has completed.
func (s *State) IsCompleted() bool { return s.Status() == domain.StatusCompleted }

// Position returns the current playback position.
func (s *State) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Duration returns the total duration.
func (s *State) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// TimeRemaining returns the duration minus the current position.
func (s *State) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duration < s.position {
		return 0
	}
	return s.duration - s.position
}

// Navigation returns the direction of the most recent navigation.
func (s *State) Navigation() domain.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav
}

// SetNavigation records the direction of a navigation operation.
func (s *State) SetNavigation(nav domain.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = nav
}

// Volume returns the current volume.
func (s *State) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// IsMuted reports whether the volume is zero.
func (s *State) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Speed returns the playback-speed multiplier.
func (s *State) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// IsLoopEnabled reports whether looping is enabled.
func (s *State) IsLoopEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopEnabled
}

// LoopCount returns the configured loop iteration count. None means loop
// forever.
func (s *State) LoopCount() mo.Option[int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopCount
}

// LoopRange returns the configured loop window.
func (s *State) LoopRange() domain.LoopRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopRange
}

// Tag returns the attached media tag.
func (s *State) Tag() domain.MediaTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tag
}

// SetTag attaches a media tag.
func (s *State) SetTag(tag domain.MediaTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = tag
}

// IsCreating reports whether the entity is still materializing.
func (s *State) IsCreating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creating
}

// IsCreated reports whether the entity has fully materialized.
func (s *State) IsCreated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// SetToCreating marks the entity as under construction.
func (s *State) SetToCreating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = true
	s.created = false
}

// SetToCreated marks the entity as fully constructed.
func (s *State) SetToCreated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	s.created = true
}

// SetDuration sets the total duration.
func (s *State) SetDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = d
}

// BeginPlay transitions to Playing from any state. Restarting a completed
// state rewinds it first. The returned effects configure and start the node.
func (s *State) BeginPlay() []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	effects := make([]domain.Effect, 0, 6)
	if s.status == domain.StatusCompleted {
		s.position = 0
		effects = append(effects, domain.ResetEffect())
	}
	s.status = domain.StatusPlaying

	effects = append(effects,
		domain.GainEffect(s.volume),
		domain.SpeedEffect(s.speed),
	)
	if s.loopEnabled {
		if s.loopRange.IsSet() {
			effects = append(effects, domain.TrimEffect(s.loopRange.Begin, s.loopRange.End))
		}
		effects = append(effects, domain.LoopCountEffect(s.loopCount.OrElse(-1)))
	}
	return append(effects, domain.StartEffect())
}

// BeginPause transitions Playing to Paused, snapshotting the given node
// position. Pausing a non-playing state is a no-op.
func (s *State) BeginPause(position time.Duration) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPlaying {
		return nil
	}
	s.status = domain.StatusPaused
	s.position = position
	return []domain.Effect{domain.StopEffect()}
}

// BeginStop transitions to Stopped from any state and resets the position to
// zero.
func (s *State) BeginStop() []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = domain.StatusStopped
	s.position = 0
	return []domain.Effect{domain.StopEffect(), domain.ResetEffect()}
}

// Complete transitions to Completed. Terminal unless playback is explicitly
// restarted through BeginPlay.
func (s *State) Complete() []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = domain.StatusCompleted
	s.position = s.duration
	return []domain.Effect{domain.StopEffect()}
}

// SetVolume sets the volume. Zero implies muted; a nonzero volume is
// remembered for mute restore.
func (s *State) SetVolume(volume float64) ([]domain.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if volume < 0 {
		return nil, domain.ErrInvalidVolume
	}
	if volume > 0 {
		s.savedVolume = volume
	}
	s.volume = volume
	s.muted = volume == 0
	return []domain.Effect{domain.GainEffect(volume)}, nil
}

// SetMuted mutes or unmutes. Muting remembers the prior nonzero volume;
// unmuting with zero volume restores it.
func (s *State) SetMuted(muted bool) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted == muted {
		return nil
	}
	s.muted = muted
	if muted {
		if s.volume > 0 {
			s.savedVolume = s.volume
		}
		s.volume = 0
	} else if s.volume == 0 {
		s.volume = s.savedVolume
	}
	return []domain.Effect{domain.GainEffect(s.volume)}
}

// SetSpeed sets the playback-speed multiplier.
func (s *State) SetSpeed(speed float64) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if speed == s.speed {
		return nil
	}
	s.speed = speed
	return []domain.Effect{domain.SpeedEffect(speed)}
}

// SetLoopEnabled enables or disables looping. Disabling restores the full
// trim window; enabling with a playhead outside the loop window rewinds the
// node so the loop starts cleanly.
func (s *State) SetLoopEnabled(enabled bool) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopEnabled == enabled {
		return nil
	}
	s.loopEnabled = enabled

	var effects []domain.Effect
	if enabled {
		if s.loopRange.IsSet() {
			effects = append(effects, domain.TrimEffect(s.loopRange.Begin, s.loopRange.End))
		}
		effects = append(effects, domain.LoopCountEffect(s.loopCount.OrElse(-1)))
		if s.loopRange.IsSet() && s.position >= s.loopRange.End {
			effects = append(effects, domain.ResetEffect())
		}
	} else {
		effects = append(effects,
			domain.LoopCountEffect(0),
			domain.TrimEffect(0, s.duration),
		)
	}
	return effects
}

// SetLoopRange sets the loop window.
func (s *State) SetLoopRange(r domain.LoopRange) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopRange == r {
		return nil
	}
	s.loopRange = r
	if s.loopEnabled && r.IsSet() {
		return []domain.Effect{domain.TrimEffect(r.Begin, r.End)}
	}
	return nil
}

// SetLoopCount sets the loop iteration count. None loops forever.
func (s *State) SetLoopCount(count mo.Option[int]) []domain.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loopCount = count
	if s.loopEnabled {
		return []domain.Effect{domain.LoopCountEffect(count.OrElse(-1))}
	}
	return nil
}

// SeekTo moves the playback position. While looping, targets outside the loop
// window wrap to its begin boundary rather than failing.
func (s *State) SeekTo(position time.Duration) ([]domain.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 {
		return nil, domain.ErrInvalidPosition
	}
	if s.loopEnabled && s.loopRange.IsSet() {
		position = s.loopRange.Coerce(position)
	}
	s.position = position
	return []domain.Effect{domain.SeekEffect(position)}, nil
}

// UpdatePosition records a position sample from the graph poll. Samples
// arriving after a stop or pause are discarded so a stale tick never
// resurrects a stopped part's position. Reports whether the sample was
// accepted.
func (s *State) UpdatePosition(position time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPlaying || position == s.position {
		return false
	}
	s.position = position
	return true
}

// Bookmarks returns a copy of the bookmark list.
func (s *State) Bookmarks() []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Bookmark, len(s.bookmarks))
	copy(out, s.bookmarks)
	return out
}

// TryAddBookmark appends a bookmark. Fails when the bookmark position lies
// outside the entity's duration.
func (s *State) TryAddBookmark(b domain.Bookmark) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Position < 0 || b.Position > s.duration {
		return false
	}
	s.bookmarks = append(s.bookmarks, b)
	return true
}

// RemoveBookmark deletes a bookmark by ID. Reports whether one was removed.
func (s *State) RemoveBookmark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.bookmarks {
		if b.ID == id {
			s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
			return true
		}
	}
	return false
}

// restoreBookmarks replaces the bookmark list during snapshot restore.
func (s *State) restoreBookmarks(bookmarks []domain.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks = append([]domain.Bookmark(nil), bookmarks...)
}

// restorePosition replaces the position during snapshot restore.
func (s *State) restorePosition(position time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
}
