package playback

import (
	"github.com/samber/mo"

	"github.com/narratix/hark/internal/domain"
)

// SnapshotPlaylist captures the playlist and every entry's persisted state.
func SnapshotPlaylist(pl *Playlist) domain.PlaylistSnapshot {
	entries := pl.Entries()
	snaps := make([]domain.EntrySnapshot, 0, len(entries))
	for _, e := range entries {
		snaps = append(snaps, SnapshotEntry(e))
	}
	return domain.PlaylistSnapshot{
		Entries:                snaps,
		LastPlayedIndex:        pl.LastPlayedIndex(),
		LoopEnabled:            pl.IsLoopEnabled(),
		LoopCurrentFileEnabled: pl.IsLoopCurrentFileEnabled(),
	}
}

// SnapshotEntry captures one entry's persisted state.
func SnapshotEntry(e Entry) domain.EntrySnapshot {
	s := e.PlayState()
	snap := domain.EntrySnapshot{
		Kind:        s.Kind(),
		ID:          s.ID(),
		Path:        s.Path(),
		Name:        s.Name(),
		Token:       s.Token(),
		FolderToken: s.FolderToken(),
		Position:    s.Position(),
		Duration:    s.Duration(),
		Volume:      s.Volume(),
		Speed:       s.Speed(),
		LoopEnabled: s.IsLoopEnabled(),
		Tag:         domain.SnapshotTag(s.Tag()),
		Bookmarks:   s.Bookmarks(),
	}
	if count, ok := s.LoopCount().Get(); ok {
		snap.LoopCount = &count
	}
	if r := s.LoopRange(); r.IsSet() {
		snap.HasLoop = true
		snap.LoopBegin = r.Begin
		snap.LoopEnd = r.End
	}

	switch v := e.(type) {
	case *Audiobook:
		snap.CurrentPartIndex = v.CurrentPartIndex()
		snap.ContinuousPlay = v.ContinuousPlay()
		for _, p := range v.Parts() {
			if p == nil {
				continue
			}
			ps := p.PlayState()
			snap.Parts = append(snap.Parts, domain.PartSnapshot{
				Name:     ps.Name(),
				Token:    ps.Token(),
				Position: ps.Position(),
				Duration: ps.Duration(),
			})
		}
	case *Stream:
		snap.URL = v.URL()
	}
	return snap
}

// ApplyEntrySnapshot replays persisted per-entry settings onto a freshly
// rebuilt entry: position, volume, speed, loop configuration and bookmarks.
func ApplyEntrySnapshot(e Entry, snap domain.EntrySnapshot) {
	s := e.PlayState()
	s.SetVolume(snap.Volume)
	if snap.Speed > 0 {
		s.SetSpeed(snap.Speed)
	}
	if snap.LoopCount != nil {
		s.SetLoopCount(mo.Some(*snap.LoopCount))
	}
	if snap.HasLoop {
		s.SetLoopRange(domain.LoopRange{Begin: snap.LoopBegin, End: snap.LoopEnd})
	}
	if snap.LoopEnabled {
		s.SetLoopEnabled(true)
	}
	s.restoreBookmarks(snap.Bookmarks)
	s.restorePosition(snap.Position)

	if book, isBook := e.(*Audiobook); isBook {
		book.SetContinuousPlay(snap.ContinuousPlay)
		for i, ps := range snap.Parts {
			if part, ok := book.TryPartAt(i); ok && part.PlayState().Name() == ps.Name {
				restorePartPosition(part, ps.Position)
			}
		}
		if part, ok := book.TryPartAt(snap.CurrentPartIndex); ok {
			book.TryMoveToPart(part)
			s.restorePosition(snap.Position)
		}
	}
}

// ApplyPlaylistSnapshot replays the playlist-level flags and the last played
// index after all entries have been re-added.
func ApplyPlaylistSnapshot(pl *Playlist, snap domain.PlaylistSnapshot) {
	pl.SetLoopEnabled(snap.LoopEnabled)
	pl.SetLoopCurrentFileEnabled(snap.LoopCurrentFileEnabled)
	pl.restoreLastPlayed(snap.LastPlayedIndex)
}
