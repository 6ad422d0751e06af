package playback

import (
	"sync"

	"github.com/samber/lo"

	"github.com/narratix/hark/internal/domain"
)

// Playlist is the ordered collection of entries the controller plays through.
// Mutations are atomic and report a structured change through the notify
// callback before the mutating call returns, so observers always see the
// change and its cause together.
type Playlist struct {
	mu         sync.Mutex
	entries    []Entry
	lastPlayed int

	loopEnabled     bool
	loopCurrentFile bool

	notify func(action domain.ChangeAction, entries []domain.EntryInfo, index int)
}

// NewPlaylist returns an empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{lastPlayed: -1}
}

// OnChange registers the change callback. It is invoked synchronously from
// inside mutating calls, after the mutation is applied.
func (pl *Playlist) OnChange(fn func(action domain.ChangeAction, entries []domain.EntryInfo, index int)) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.notify = fn
}

// Count returns the number of entries.
func (pl *Playlist) Count() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.entries)
}

// Entries returns a copy of the entry list.
func (pl *Playlist) Entries() []Entry {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	out := make([]Entry, len(pl.entries))
	copy(out, pl.entries)
	return out
}

// IsLoopEnabled reports whether navigation wraps around the playlist ends.
func (pl *Playlist) IsLoopEnabled() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.loopEnabled
}

// SetLoopEnabled toggles wraparound navigation.
func (pl *Playlist) SetLoopEnabled(enabled bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.loopEnabled = enabled
}

// IsLoopCurrentFileEnabled reports whether the current entry replays on
// completion instead of advancing.
func (pl *Playlist) IsLoopCurrentFileEnabled() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.loopCurrentFile
}

// SetLoopCurrentFileEnabled toggles replaying the current entry on completion.
func (pl *Playlist) SetLoopCurrentFileEnabled(enabled bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.loopCurrentFile = enabled
}

// TryAdd appends an entry. Fails when the same entry, or another entry backed
// by the same path, is already present.
func (pl *Playlist) TryAdd(entry Entry) bool {
	pl.mu.Lock()
	if entry == nil || pl.containsLocked(entry) {
		pl.mu.Unlock()
		return false
	}
	pl.entries = append(pl.entries, entry)
	idx := len(pl.entries) - 1
	notify := pl.notify
	pl.mu.Unlock()

	if notify != nil {
		notify(domain.ChangeAdd, []domain.EntryInfo{entry.Info()}, idx)
	}
	return true
}

// TryAddRange appends several entries atomically. Fails without modification
// when any of them would be a duplicate.
func (pl *Playlist) TryAddRange(entries []Entry) bool {
	pl.mu.Lock()
	if len(entries) == 0 {
		pl.mu.Unlock()
		return false
	}
	for _, e := range entries {
		if e == nil || pl.containsLocked(e) {
			pl.mu.Unlock()
			return false
		}
	}
	idx := len(pl.entries)
	pl.entries = append(pl.entries, entries...)
	notify := pl.notify
	pl.mu.Unlock()

	if notify != nil {
		notify(domain.ChangeAdd, lo.Map(entries, func(e Entry, _ int) domain.EntryInfo { return e.Info() }), idx)
	}
	return true
}

// TryInsert inserts an entry at index, shifting later entries. Out-of-bounds
// indices append instead of failing.
func (pl *Playlist) TryInsert(index int, entry Entry) bool {
	pl.mu.Lock()
	if entry == nil || pl.containsLocked(entry) {
		pl.mu.Unlock()
		return false
	}
	if index < 0 || index > len(pl.entries) {
		index = len(pl.entries)
	}
	pl.entries = append(pl.entries[:index], append([]Entry{entry}, pl.entries[index:]...)...)
	if pl.lastPlayed >= index {
		pl.lastPlayed++
	}
	notify := pl.notify
	pl.mu.Unlock()

	if notify != nil {
		notify(domain.ChangeAdd, []domain.EntryInfo{entry.Info()}, index)
	}
	return true
}

// TryInsertRange inserts several entries at index atomically. Out-of-bounds
// indices append.
func (pl *Playlist) TryInsertRange(index int, entries []Entry) bool {
	pl.mu.Lock()
	if len(entries) == 0 {
		pl.mu.Unlock()
		return false
	}
	if index < 0 || index > len(pl.entries) {
		index = len(pl.entries)
	}
	for _, e := range entries {
		if e == nil || pl.containsLocked(e) {
			pl.mu.Unlock()
			return false
		}
	}
	tail := append([]Entry(nil), pl.entries[index:]...)
	pl.entries = append(pl.entries[:index], append(append([]Entry(nil), entries...), tail...)...)
	if pl.lastPlayed >= index {
		pl.lastPlayed += len(entries)
	}
	notify := pl.notify
	pl.mu.Unlock()

	if notify != nil {
		notify(domain.ChangeAdd, lo.Map(entries, func(e Entry, _ int) domain.EntryInfo { return e.Info() }), index)
	}
	return true
}

// TryRemove removes the given entry.
func (pl *Playlist) TryRemove(entry Entry) bool {
	pl.mu.Lock()
	idx := -1
	for i, e := range pl.entries {
		if e == entry {
			idx = i
			break
		}
	}
	pl.mu.Unlock()
	if idx < 0 {
		return false
	}
	return pl.TryRemoveAt(idx)
}

// TryRemoveAt removes the entry at index.
func (pl *Playlist) TryRemoveAt(index int) bool {
	pl.mu.Lock()
	if index < 0 || index >= len(pl.entries) {
		pl.mu.Unlock()
		return false
	}
	removed := pl.entries[index]
	pl.entries = append(pl.entries[:index], pl.entries[index+1:]...)
	switch {
	case pl.lastPlayed == index:
		pl.lastPlayed = -1
	case pl.lastPlayed > index:
		pl.lastPlayed--
	}
	notify := pl.notify
	pl.mu.Unlock()

	if notify != nil {
		notify(domain.ChangeRemove, []domain.EntryInfo{removed.Info()}, index)
	}
	return true
}

// TryItemAt returns the entry at index.
func (pl *Playlist) TryItemAt(index int) (Entry, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.entries) {
		return nil, false
	}
	return pl.entries[index], true
}

// Contains reports whether the entry, or another entry backed by the same
// path, is already present.
func (pl *Playlist) Contains(entry Entry) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.containsLocked(entry)
}

// IndexOf returns the index of an entry.
func (pl *Playlist) IndexOf(entry Entry) (int, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for i, e := range pl.entries {
		if e == entry {
			return i, true
		}
	}
	return -1, false
}

// TryNextItem returns the entry after the last played one. At the end of the
// playlist it wraps to the first entry when playlist looping is enabled and
// fails otherwise.
func (pl *Playlist) TryNextItem() (Entry, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.entries) == 0 {
		return nil, false
	}
	idx := pl.lastPlayed + 1
	if idx >= len(pl.entries) {
		if !pl.loopEnabled {
			return nil, false
		}
		idx = 0
	}
	return pl.entries[idx], true
}

// TryPreviousItem returns the entry before the last played one, wrapping to
// the final entry when playlist looping is enabled.
func (pl *Playlist) TryPreviousItem() (Entry, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.entries) == 0 {
		return nil, false
	}
	idx := pl.lastPlayed - 1
	if pl.lastPlayed < 0 {
		idx = 0
	}
	if idx < 0 {
		if !pl.loopEnabled {
			return nil, false
		}
		idx = len(pl.entries) - 1
	}
	return pl.entries[idx], true
}

// TryLastPlayedItem returns the entry most recently marked as played.
func (pl *Playlist) TryLastPlayedItem() (Entry, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.lastPlayed < 0 || pl.lastPlayed >= len(pl.entries) {
		return nil, false
	}
	return pl.entries[pl.lastPlayed], true
}

// LastPlayedIndex returns the index of the last played entry, or -1.
func (pl *Playlist) LastPlayedIndex() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.lastPlayed
}

// UpdateLastPlayed marks the given entry as the last played one.
func (pl *Playlist) UpdateLastPlayed(entry Entry) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for i, e := range pl.entries {
		if e == entry {
			pl.lastPlayed = i
			return true
		}
	}
	return false
}

// restoreLastPlayed seeds the last played index during snapshot restore.
func (pl *Playlist) restoreLastPlayed(index int) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index >= -1 && index < len(pl.entries) {
		pl.lastPlayed = index
	}
}

func (pl *Playlist) containsLocked(entry Entry) bool {
	path := entry.Info().Path
	for _, e := range pl.entries {
		if e == entry {
			return true
		}
		if path != "" && e.Info().Path == path {
			return true
		}
	}
	return false
}
