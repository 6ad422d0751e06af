package playback

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/narratix/hark/internal/domain"
)

// Audiobook is an ordered composite of parts played as one logical item. It
// carries an aggregate state of its own: the aggregate position is the sum of
// the completed predecessors' durations plus the current part's position, and
// the aggregate duration is the sum of all part durations.
//
// Parts materialize concurrently during creation; a nil slot is a placeholder
// for a part whose metadata has not been extracted yet. Navigation only ever
// targets materialized parts.
type Audiobook struct {
	state *State

	mu         sync.Mutex
	parts      []*Part
	currentIdx int
	offset     time.Duration
	continuous bool
}

// NewAudiobook returns an audiobook under construction with partCount
// placeholder slots. The aggregate state stays in the creating phase until
// every slot is filled.
func NewAudiobook(path, name, folderToken string, partCount int) *Audiobook {
	s := newState(domain.KindBook, path, name, folderToken)
	s.setFolderToken(folderToken)
	s.SetToCreating()
	return &Audiobook{
		state:      s,
		parts:      make([]*Part, partCount),
		continuous: true,
	}
}

// PlayState implements Entry.
func (b *Audiobook) PlayState() *State { return b.state }

// Leaf implements Entry: the currently selected part, if materialized.
func (b *Audiobook) Leaf() (*Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leafLocked()
}

func (b *Audiobook) leafLocked() (*Part, bool) {
	if b.currentIdx < 0 || b.currentIdx >= len(b.parts) {
		return nil, false
	}
	p := b.parts[b.currentIdx]
	if p == nil || !p.state.IsCreated() {
		return nil, false
	}
	return p, true
}

// Info implements Entry.
func (b *Audiobook) Info() domain.EntryInfo {
	return domain.EntryInfo{
		ID:   b.state.ID(),
		Name: b.state.Name(),
		Path: b.state.Path(),
		Kind: domain.KindBook,
	}
}

// AttachPart fills the placeholder at index with a materialized part and
// returns the number of placeholders still empty. When the last one fills,
// the audiobook leaves the creating phase, its duration is final and the
// first part's tag becomes the book tag if none is set yet.
func (b *Audiobook) AttachPart(index int, part *Part) (remaining int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.parts) {
		return 0, domain.ErrInvalidIndex
	}
	if b.parts[index] != nil {
		return 0, domain.ErrDuplicateEntry
	}
	b.parts[index] = part

	remaining = 0
	var total time.Duration
	for _, p := range b.parts {
		if p == nil {
			remaining++
			continue
		}
		total += p.state.Duration()
	}
	b.state.SetDuration(total)

	// Propagate the book's volume and speed onto the new part so a part
	// switch never changes what the listener hears.
	part.state.SetVolume(b.state.Volume())
	part.state.SetSpeed(b.state.Speed())

	if remaining == 0 {
		if first := b.parts[0]; first != nil && b.state.Tag().Title == "" {
			b.state.SetTag(first.state.Tag())
		}
		b.recomputeOffsetLocked()
		b.state.SetToCreated()
	}
	return remaining, nil
}

// PartCount returns the total number of slots, filled or not.
func (b *Audiobook) PartCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.parts)
}

// CreatedPartCount returns the number of materialized parts.
func (b *Audiobook) CreatedPartCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.parts {
		if p != nil {
			n++
		}
	}
	return n
}

// Parts returns a copy of the part slots. Nil entries are placeholders.
func (b *Audiobook) Parts() []*Part {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Part, len(b.parts))
	copy(out, b.parts)
	return out
}

// TryPartAt returns the materialized part at index.
func (b *Audiobook) TryPartAt(index int) (*Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.parts) || b.parts[index] == nil {
		return nil, false
	}
	return b.parts[index], true
}

// CurrentPart returns the currently selected part, if materialized.
func (b *Audiobook) CurrentPart() (*Part, bool) { return b.Leaf() }

// CurrentPartIndex returns the index of the currently selected part.
func (b *Audiobook) CurrentPartIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentIdx
}

// IndexOf returns the slot index of the given part.
func (b *Audiobook) IndexOf(part *Part) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.parts {
		if p == part {
			return i, true
		}
	}
	return -1, false
}

// PositionOffset returns the summed duration of the parts preceding the
// current one.
func (b *Audiobook) PositionOffset() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// ContinuousPlay reports whether completing a part advances to the next one.
func (b *Audiobook) ContinuousPlay() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.continuous
}

// SetContinuousPlay toggles automatic advancing on part completion.
func (b *Audiobook) SetContinuousPlay(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.continuous = enabled
}

// TryMoveToPart selects the given materialized part as current. Selection
// records the navigation direction, mirrors the part's tag onto the book,
// pushes the book's volume and speed down onto the part and recomputes the
// aggregate position.
func (b *Audiobook) TryMoveToPart(part *Part) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, p := range b.parts {
		if p == part {
			idx = i
			break
		}
	}
	if idx < 0 || part == nil || !part.state.IsCreated() {
		return false
	}
	b.moveToLocked(idx)
	return true
}

// TryMoveToNextPart advances to the following part.
func (b *Audiobook) TryMoveToNextPart() (*Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.currentIdx + 1
	if idx >= len(b.parts) || b.parts[idx] == nil || !b.parts[idx].state.IsCreated() {
		return nil, false
	}
	b.moveToLocked(idx)
	return b.parts[idx], true
}

// TryMoveToPreviousPart steps back to the preceding part.
func (b *Audiobook) TryMoveToPreviousPart() (*Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.currentIdx - 1
	if idx < 0 || b.parts[idx] == nil || !b.parts[idx].state.IsCreated() {
		return nil, false
	}
	b.moveToLocked(idx)
	return b.parts[idx], true
}

// TryMoveToPartAtAbsolutePosition maps an absolute book position onto the
// part containing it, selects that part and returns the position relative to
// the part's start. The walk fails at the first placeholder part, so seeks
// into the materialized prefix of a book under construction still succeed.
func (b *Audiobook) TryMoveToPartAtAbsolutePosition(absolute time.Duration) (time.Duration, *Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if absolute < 0 {
		return 0, nil, false
	}
	var cumulative time.Duration
	for i, p := range b.parts {
		if p == nil || !p.state.IsCreated() {
			// Durations past this slot are unknown.
			return 0, nil, false
		}
		cumulative += p.state.Duration()
		if cumulative >= absolute {
			relative := p.state.Duration() - (cumulative - absolute)
			b.moveToLocked(i)
			p.state.restorePosition(relative)
			b.state.restorePosition(absolute)
			return relative, p, true
		}
	}
	return 0, nil, false
}

// TryMoveToBookmarkedPart selects the part a bookmark was taken in and seeds
// it with the bookmark's relative position. The target part must already be
// materialized.
func (b *Audiobook) TryMoveToBookmarkedPart(bm domain.Bookmark) (*Part, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := bm.PartIndex
	if idx < 0 || idx >= len(b.parts) {
		return nil, false
	}
	p := b.parts[idx]
	if p == nil || !p.state.IsCreated() {
		return nil, false
	}
	b.moveToLocked(idx)
	p.state.restorePosition(bm.RelativePosition)
	b.state.restorePosition(b.offset + bm.RelativePosition)
	return p, true
}

// BookmarksForPart returns the book's bookmarks taken within the given part.
func (b *Audiobook) BookmarksForPart(index int) []domain.Bookmark {
	return lo.Filter(b.state.Bookmarks(), func(bm domain.Bookmark, _ int) bool {
		return bm.PartIndex == index
	})
}

// ResetToFirstPart rewinds the book to its first part with position zero.
// Used when the book is stopped.
func (b *Audiobook) ResetToFirstPart() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.leafLocked(); ok {
		p.state.restorePosition(0)
	}
	b.moveToLocked(0)
	b.state.restorePosition(0)
	if p := b.parts[0]; p != nil {
		p.state.restorePosition(0)
	}
}

// SyncFromLeaf recomputes the aggregate position from a leaf position sample.
func (b *Audiobook) SyncFromLeaf(leafPosition time.Duration) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	abs := b.offset + leafPosition
	b.state.restorePosition(abs)
	return abs
}

// moveToLocked performs the shared part-switch bookkeeping: direction,
// propagation and offset. Callers hold b.mu.
func (b *Audiobook) moveToLocked(idx int) {
	switch {
	case idx > b.currentIdx:
		b.state.SetNavigation(domain.DirectionNext)
	case idx < b.currentIdx:
		b.state.SetNavigation(domain.DirectionPrevious)
	default:
		b.state.SetNavigation(domain.DirectionCurrent)
	}
	b.currentIdx = idx
	b.recomputeOffsetLocked()

	p := b.parts[idx]
	if p == nil {
		return
	}
	p.state.SetVolume(b.state.Volume())
	p.state.SetSpeed(b.state.Speed())
	b.state.SetTag(p.state.Tag())
	b.state.restorePosition(b.offset + p.state.Position())
}

func (b *Audiobook) recomputeOffsetLocked() {
	var off time.Duration
	for i := 0; i < b.currentIdx && i < len(b.parts); i++ {
		if p := b.parts[i]; p != nil {
			off += p.state.Duration()
		}
	}
	b.offset = off
}
