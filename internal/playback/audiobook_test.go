package playback

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratix/hark/internal/domain"
)

func newTestBook(t *testing.T, durations ...time.Duration) *Audiobook {
	t.Helper()
	book := NewAudiobook("/books/moby", "moby", "tok-folder", len(durations))
	for i, d := range durations {
		name := fmt.Sprintf("part%02d.mp3", i+1)
		part := NewBookPart("/books/moby/"+name, name, "tok-folder", domain.MediaTag{
			Title:    name,
			Duration: d,
		})
		remaining, err := book.AttachPart(i, part)
		require.NoError(t, err)
		require.Equal(t, len(durations)-i-1, remaining)
	}
	require.True(t, book.PlayState().IsCreated())
	return book
}

func TestAudiobookCreationPhases(t *testing.T) {
	book := NewAudiobook("/books/moby", "moby", "tok-folder", 2)
	assert.True(t, book.PlayState().IsCreating())
	assert.False(t, book.PlayState().IsCreated())
	_, ok := book.Leaf()
	assert.False(t, ok, "placeholder part must not be playable")

	p0 := NewBookPart("/books/moby/part01.mp3", "part01.mp3", "tok-folder", domain.MediaTag{Duration: time.Minute})
	remaining, err := book.AttachPart(0, p0)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.True(t, book.PlayState().IsCreating())

	// Parts materialize in any order; duplicates and bad indices are rejected.
	_, err = book.AttachPart(0, p0)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	_, err = book.AttachPart(5, p0)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)

	p1 := NewBookPart("/books/moby/part02.mp3", "part02.mp3", "tok-folder", domain.MediaTag{Duration: 2 * time.Minute})
	remaining, err = book.AttachPart(1, p1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	assert.True(t, book.PlayState().IsCreated())
	assert.Equal(t, 3*time.Minute, book.PlayState().Duration())
}

func TestAudiobookNextPreviousNavigation(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute, 3*time.Minute)

	next, ok := book.TryMoveToNextPart()
	require.True(t, ok)
	assert.Equal(t, "part02.mp3", next.PlayState().Name())
	assert.Equal(t, 1, book.CurrentPartIndex())
	assert.Equal(t, domain.DirectionNext, book.PlayState().Navigation())
	assert.Equal(t, time.Minute, book.PositionOffset())

	prev, ok := book.TryMoveToPreviousPart()
	require.True(t, ok)
	assert.Equal(t, "part01.mp3", prev.PlayState().Name())
	assert.Equal(t, domain.DirectionPrevious, book.PlayState().Navigation())
	assert.Equal(t, time.Duration(0), book.PositionOffset())

	_, ok = book.TryMoveToPreviousPart()
	assert.False(t, ok, "no part before the first")
}

func TestAudiobookNavigationSkipsPlaceholders(t *testing.T) {
	book := NewAudiobook("/books/moby", "moby", "tok-folder", 2)
	p0 := NewBookPart("/books/moby/part01.mp3", "part01.mp3", "tok-folder", domain.MediaTag{Duration: time.Minute})
	_, err := book.AttachPart(0, p0)
	require.NoError(t, err)

	_, ok := book.TryMoveToNextPart()
	assert.False(t, ok, "placeholder part is not a navigation target")
}

func TestAudiobookAbsolutePositionMapsToPart(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute, 3*time.Minute)

	// 2m30s falls 1m30s into the second part.
	relative, part, ok := book.TryMoveToPartAtAbsolutePosition(150 * time.Second)
	require.True(t, ok)
	assert.Equal(t, "part02.mp3", part.PlayState().Name())
	assert.Equal(t, 90*time.Second, relative)
	assert.Equal(t, 1, book.CurrentPartIndex())
	assert.Equal(t, 150*time.Second, book.PlayState().Position())

	// An exact boundary belongs to the part it closes.
	relative, part, ok = book.TryMoveToPartAtAbsolutePosition(time.Minute)
	require.True(t, ok)
	assert.Equal(t, "part01.mp3", part.PlayState().Name())
	assert.Equal(t, time.Minute, relative)

	// Past the total duration: no part contains it.
	_, _, ok = book.TryMoveToPartAtAbsolutePosition(10 * time.Minute)
	assert.False(t, ok)
}

func TestAudiobookAbsolutePositionSinglePart(t *testing.T) {
	book := newTestBook(t, 4*time.Minute)

	relative, part, ok := book.TryMoveToPartAtAbsolutePosition(90 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, relative)
	assert.Equal(t, 0, book.CurrentPartIndex())
	assert.Equal(t, 90*time.Second, part.PlayState().Position())

	_, _, ok = book.TryMoveToPartAtAbsolutePosition(5 * time.Minute)
	assert.False(t, ok)
}

func TestAudiobookAbsolutePositionPartialBook(t *testing.T) {
	book := NewAudiobook("/books/moby", "moby", "tok-folder", 2)
	p0 := NewBookPart("/books/moby/part01.mp3", "part01.mp3", "tok-folder", domain.MediaTag{Duration: time.Minute})
	_, err := book.AttachPart(0, p0)
	require.NoError(t, err)

	// The materialized prefix is seekable while the rest of the book builds.
	relative, part, ok := book.TryMoveToPartAtAbsolutePosition(30 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, relative)
	assert.Equal(t, "part01.mp3", part.PlayState().Name())

	_, _, ok = book.TryMoveToPartAtAbsolutePosition(90 * time.Second)
	assert.False(t, ok, "target lies in a part that has not materialized")
}

func TestAudiobookBookmarkNavigation(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute)

	bm := domain.NewBookmark(90*time.Second, 30*time.Second, 1, domain.MediaTag{})
	part, ok := book.TryMoveToBookmarkedPart(bm)
	require.True(t, ok)
	assert.Equal(t, "part02.mp3", part.PlayState().Name())
	assert.Equal(t, 30*time.Second, part.PlayState().Position())
	assert.Equal(t, 90*time.Second, book.PlayState().Position())

	_, ok = book.TryMoveToBookmarkedPart(domain.NewBookmark(0, 0, 9, domain.MediaTag{}))
	assert.False(t, ok, "bookmark part index out of range")
}

func TestAudiobookBookmarksForPart(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute)
	state := book.PlayState()

	inFirst := domain.NewBookmark(30*time.Second, 30*time.Second, 0, domain.MediaTag{})
	inSecond := domain.NewBookmark(90*time.Second, 30*time.Second, 1, domain.MediaTag{})
	require.True(t, state.TryAddBookmark(inFirst))
	require.True(t, state.TryAddBookmark(inSecond))

	first := book.BookmarksForPart(0)
	require.Len(t, first, 1)
	assert.Equal(t, inFirst.ID, first[0].ID)

	assert.Empty(t, book.BookmarksForPart(5))
}

func TestAudiobookMoveMirrorsTagAndPropagatesVolume(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute)
	_, err := book.PlayState().SetVolume(0.4)
	require.NoError(t, err)
	book.PlayState().SetSpeed(1.5)

	next, ok := book.TryMoveToNextPart()
	require.True(t, ok)

	assert.Equal(t, 0.4, next.PlayState().Volume())
	assert.Equal(t, 1.5, next.PlayState().Speed())
	assert.Equal(t, "part02.mp3", book.PlayState().Tag().Title)
}

func TestAudiobookResetToFirstPart(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute)
	_, _, ok := book.TryMoveToPartAtAbsolutePosition(150 * time.Second)
	require.True(t, ok)

	book.ResetToFirstPart()

	assert.Equal(t, 0, book.CurrentPartIndex())
	assert.Equal(t, time.Duration(0), book.PlayState().Position())
	first, ok := book.CurrentPart()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), first.PlayState().Position())
}

func TestAudiobookSyncFromLeaf(t *testing.T) {
	book := newTestBook(t, time.Minute, 2*time.Minute)
	_, ok := book.TryMoveToNextPart()
	require.True(t, ok)

	abs := book.SyncFromLeaf(45 * time.Second)

	assert.Equal(t, 105*time.Second, abs)
	assert.Equal(t, 105*time.Second, book.PlayState().Position())
}
