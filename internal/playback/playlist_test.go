package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratix/hark/internal/domain"
)

func newTestEntry(name string) *Part {
	return NewPart("/music/"+name, name, "tok-"+name, domain.MediaTag{Title: name, Duration: time.Minute})
}

type changeRecord struct {
	action  domain.ChangeAction
	entries []domain.EntryInfo
	index   int
}

func recordChanges(pl *Playlist) *[]changeRecord {
	var records []changeRecord
	pl.OnChange(func(action domain.ChangeAction, entries []domain.EntryInfo, index int) {
		records = append(records, changeRecord{action, entries, index})
	})
	return &records
}

func TestPlaylistAddAndDuplicateRejection(t *testing.T) {
	pl := NewPlaylist()
	records := recordChanges(pl)
	a := newTestEntry("a.mp3")

	require.True(t, pl.TryAdd(a))
	assert.False(t, pl.TryAdd(a), "same entry twice")

	samePath := NewPart(a.PlayState().Path(), "a.mp3", "tok-x", domain.MediaTag{})
	assert.False(t, pl.TryAdd(samePath), "same backing path twice")

	assert.Equal(t, 1, pl.Count())
	require.Len(t, *records, 1)
	assert.Equal(t, domain.ChangeAdd, (*records)[0].action)
	assert.Equal(t, 0, (*records)[0].index)
}

func TestPlaylistAddRangeAtomic(t *testing.T) {
	pl := NewPlaylist()
	a, b := newTestEntry("a.mp3"), newTestEntry("b.mp3")
	require.True(t, pl.TryAdd(a))

	// One duplicate poisons the whole batch.
	assert.False(t, pl.TryAddRange([]Entry{b, a}))
	assert.Equal(t, 1, pl.Count())

	assert.True(t, pl.TryAddRange([]Entry{b, newTestEntry("c.mp3")}))
	assert.Equal(t, 3, pl.Count())
}

func TestPlaylistInsertShiftsLastPlayed(t *testing.T) {
	pl := NewPlaylist()
	a, b := newTestEntry("a.mp3"), newTestEntry("b.mp3")
	require.True(t, pl.TryAddRange([]Entry{a, b}))
	require.True(t, pl.UpdateLastPlayed(b))
	require.Equal(t, 1, pl.LastPlayedIndex())

	require.True(t, pl.TryInsert(0, newTestEntry("c.mp3")))

	assert.Equal(t, 2, pl.LastPlayedIndex(), "last played follows the shifted entry")
	got, ok := pl.TryLastPlayedItem()
	require.True(t, ok)
	assert.Equal(t, Entry(b), got)
}

func TestPlaylistRemoveAdjustsLastPlayed(t *testing.T) {
	pl := NewPlaylist()
	a, b, c := newTestEntry("a.mp3"), newTestEntry("b.mp3"), newTestEntry("c.mp3")
	require.True(t, pl.TryAddRange([]Entry{a, b, c}))
	require.True(t, pl.UpdateLastPlayed(b))

	// Removing before the last played entry shifts the index down.
	require.True(t, pl.TryRemove(a))
	assert.Equal(t, 0, pl.LastPlayedIndex())

	// Removing the last played entry clears it.
	require.True(t, pl.TryRemoveAt(0))
	assert.Equal(t, -1, pl.LastPlayedIndex())
	_, ok := pl.TryLastPlayedItem()
	assert.False(t, ok)
}

func TestPlaylistNextWrapsOnlyWhenLooping(t *testing.T) {
	pl := NewPlaylist()
	a, b := newTestEntry("a.mp3"), newTestEntry("b.mp3")
	require.True(t, pl.TryAddRange([]Entry{a, b}))
	require.True(t, pl.UpdateLastPlayed(b))

	_, ok := pl.TryNextItem()
	assert.False(t, ok, "no wraparound without looping")

	pl.SetLoopEnabled(true)
	next, ok := pl.TryNextItem()
	require.True(t, ok)
	assert.Equal(t, Entry(a), next)
}

func TestPlaylistPreviousWrapsOnlyWhenLooping(t *testing.T) {
	pl := NewPlaylist()
	a, b := newTestEntry("a.mp3"), newTestEntry("b.mp3")
	require.True(t, pl.TryAddRange([]Entry{a, b}))
	require.True(t, pl.UpdateLastPlayed(a))

	_, ok := pl.TryPreviousItem()
	assert.False(t, ok)

	pl.SetLoopEnabled(true)
	prev, ok := pl.TryPreviousItem()
	require.True(t, ok)
	assert.Equal(t, Entry(b), prev)
}

func TestPlaylistNextWithoutHistoryStartsAtHead(t *testing.T) {
	pl := NewPlaylist()
	a := newTestEntry("a.mp3")
	require.True(t, pl.TryAdd(a))
	require.True(t, pl.TryAdd(newTestEntry("b.mp3")))

	next, ok := pl.TryNextItem()
	require.True(t, ok)
	assert.Equal(t, Entry(a), next)
}

func TestPlaylistRemoveEmitsChange(t *testing.T) {
	pl := NewPlaylist()
	a := newTestEntry("a.mp3")
	require.True(t, pl.TryAdd(a))
	records := recordChanges(pl)

	require.True(t, pl.TryRemove(a))

	require.Len(t, *records, 1)
	assert.Equal(t, domain.ChangeRemove, (*records)[0].action)
	assert.Equal(t, a.Info().ID, (*records)[0].entries[0].ID)
}

func TestPlaylistSnapshotRoundTrip(t *testing.T) {
	pl := NewPlaylist()
	a := newTestEntry("a.mp3")
	require.True(t, pl.TryAdd(a))
	require.True(t, pl.UpdateLastPlayed(a))
	pl.SetLoopEnabled(true)

	snap := SnapshotPlaylist(pl)

	require.Len(t, snap.Entries, 1)
	assert.Equal(t, domain.KindFile, snap.Entries[0].Kind)
	assert.Equal(t, "a.mp3", snap.Entries[0].Name)
	assert.Equal(t, 0, snap.LastPlayedIndex)
	assert.True(t, snap.LoopEnabled)

	restored := NewPlaylist()
	require.True(t, restored.TryAdd(newTestEntry("a.mp3")))
	ApplyPlaylistSnapshot(restored, snap)
	assert.True(t, restored.IsLoopEnabled())
	assert.Equal(t, 0, restored.LastPlayedIndex())
}
