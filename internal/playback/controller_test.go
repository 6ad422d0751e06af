package playback

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/narratix/hark/internal/adapter/eventbus"
	"github.com/narratix/hark/internal/adapter/graph/mock"
	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/logger"
	"github.com/narratix/hark/internal/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFile is an in-memory ports.File.
type fakeFile struct {
	*bytes.Reader
	name string
}

func (f *fakeFile) Close() error { return nil }
func (f *fakeFile) Name() string { return f.name }

// fakeResolver resolves every token to a small in-memory file.
type fakeResolver struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (r *fakeResolver) RegisterPath(path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens == nil {
		r.tokens = make(map[string]string)
	}
	token := "tok:" + path
	r.tokens[token] = path
	return token, nil
}

func (r *fakeResolver) ResolveFile(_ context.Context, token string) (ports.File, error) {
	return &fakeFile{Reader: bytes.NewReader([]byte("audio")), name: token}, nil
}

func (r *fakeResolver) ResolveInFolder(_ context.Context, folderToken, name string) (ports.File, error) {
	return &fakeFile{Reader: bytes.NewReader([]byte("audio")), name: name}, nil
}

func (r *fakeResolver) ListFolder(context.Context, string) ([]string, error) {
	return nil, domain.ErrStorageNotFound
}

func (r *fakeResolver) PathFor(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.tokens[token]
	return path, ok
}

func (r *fakeResolver) Revoke(string) {}

func newTestController(t *testing.T) (*Controller, *mock.Graph, *eventbus.SyncEventBus) {
	t.Helper()
	graph := mock.New()
	bus := eventbus.NewSyncEventBus()
	c := NewController(graph, &fakeResolver{}, bus, NewPlaylist(), logger.NewTestLogger(),
		WithPollInterval(5*time.Millisecond))
	t.Cleanup(func() {
		require.NoError(t, c.Close())
		_ = bus.Close()
	})
	return c, graph, bus
}

func addEntry(t *testing.T, c *Controller, name string) *Part {
	t.Helper()
	p := newTestEntry(name)
	require.NoError(t, c.AddToPlaylist(p))
	return p
}

func TestControllerPlayBindsNodeAndStarts(t *testing.T) {
	c, graph, bus := newTestController(t)
	started := make(chan domain.Event, 1)
	bus.Subscribe(domain.EventPartStarted, func(e domain.Event) { started <- e })

	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))

	assert.True(t, graph.IsStarted())
	handle, ok := graph.OnlyHandle()
	require.True(t, ok)
	snap, ok := graph.Snapshot(handle)
	require.True(t, ok)
	assert.True(t, snap.Playing)
	assert.Equal(t, 1.0, snap.Gain)
	assert.True(t, p.PlayState().IsPlaying())

	last, ok := c.Playlist().TryLastPlayedItem()
	require.True(t, ok)
	assert.Equal(t, Entry(p), last)

	select {
	case e := <-started:
		assert.Equal(t, p.Info().ID, e.(domain.PartStartedEvent).Entry.ID)
	default:
		t.Fatal("expected a started event")
	}
}

func TestControllerPlayRejectsForeignEntry(t *testing.T) {
	c, _, _ := newTestController(t)
	err := c.PlayEntry(context.Background(), newTestEntry("x.mp3"))
	assert.ErrorIs(t, err, domain.ErrNotInPlaylist)
}

func TestControllerPlayAloneSkipsPlaylistBookkeeping(t *testing.T) {
	c, _, _ := newTestController(t)
	p := newTestEntry("solo.mp3")

	require.NoError(t, c.PlayAlone(context.Background(), p))

	assert.True(t, p.PlayState().IsPlaying())
	_, ok := c.Playlist().TryLastPlayedItem()
	assert.False(t, ok)
}

func TestControllerFatalStartFailure(t *testing.T) {
	c, graph, bus := newTestController(t)
	graph.FailStart = true
	var failure error
	bus.Subscribe(domain.EventPartError, func(e domain.Event) {
		failure = e.(domain.PartErrorEvent).Err
	})

	p := addEntry(t, c, "a.mp3")
	err := c.PlayEntry(context.Background(), p)

	require.Error(t, err)
	assert.True(t, domain.IsFatalGraphError(err))
	assert.True(t, domain.IsFatalGraphError(failure))
	assert.False(t, p.PlayState().IsPlaying())
}

func TestControllerPauseAndResume(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()
	graph.AdvanceNode(handle, 42*time.Second)

	require.NoError(t, c.Pause())

	assert.True(t, p.PlayState().IsPaused())
	assert.Equal(t, 42*time.Second, p.PlayState().Position())
	snap, _ := graph.Snapshot(handle)
	assert.False(t, snap.Playing)

	require.NoError(t, c.Resume(context.Background()))

	assert.True(t, p.PlayState().IsPlaying())
	snap, _ = graph.Snapshot(handle)
	assert.True(t, snap.Playing)
	assert.Equal(t, 42*time.Second, snap.Position, "resume continues where pause left off")
}

func TestControllerStopResetsEverything(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()
	graph.AdvanceNode(handle, 30*time.Second)

	require.NoError(t, c.Stop())

	assert.True(t, p.PlayState().IsStopped())
	assert.Equal(t, time.Duration(0), p.PlayState().Position())
	snap, _ := graph.Snapshot(handle)
	assert.False(t, snap.Playing)
	assert.Equal(t, time.Duration(0), snap.Position)
}

func TestControllerVolumeAndMute(t *testing.T) {
	c, graph, bus := newTestController(t)
	var muteEvents []bool
	bus.Subscribe(domain.EventMuteToggled, func(e domain.Event) {
		muteEvents = append(muteEvents, e.(domain.MuteToggledEvent).Muted)
	})
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()

	require.NoError(t, c.SetVolume(0.3))
	snap, _ := graph.Snapshot(handle)
	assert.Equal(t, 0.3, snap.Gain)

	require.NoError(t, c.ToggleMute())
	snap, _ = graph.Snapshot(handle)
	assert.Equal(t, 0.0, snap.Gain)
	assert.True(t, p.PlayState().IsMuted())

	require.NoError(t, c.ToggleMute())
	snap, _ = graph.Snapshot(handle)
	assert.Equal(t, 0.3, snap.Gain, "unmute restores the pre-mute volume")
	assert.Equal(t, []bool{true, false}, muteEvents)

	assert.ErrorIs(t, c.SetVolume(-1), domain.ErrInvalidVolume)
}

func TestControllerJumpCoercedIntoLoopWindow(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()

	require.NoError(t, c.StartLoopRange(context.Background(), 10*time.Second, 30*time.Second))
	snap, _ := graph.Snapshot(handle)
	assert.Equal(t, 10*time.Second, snap.TrimBegin)
	assert.Equal(t, 30*time.Second, snap.TrimEnd)
	assert.Equal(t, -1, snap.LoopCount)

	require.NoError(t, c.JumpToPosition(45*time.Second))
	assert.Equal(t, 10*time.Second, p.PlayState().Position(), "out-of-window seek wraps to loop begin")

	require.NoError(t, c.DisableLoop())
	snap, _ = graph.Snapshot(handle)
	assert.Equal(t, 0, snap.LoopCount)
	assert.Equal(t, time.Duration(0), snap.TrimBegin)
	assert.Equal(t, time.Minute, snap.TrimEnd)
}

func TestControllerStartLoopRangeValidation(t *testing.T) {
	c, _, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))

	assert.ErrorIs(t, c.StartLoopRange(context.Background(), 30*time.Second, 10*time.Second), domain.ErrInvalidPosition)
	assert.ErrorIs(t, c.StartLoopRange(context.Background(), 0, 2*time.Minute), domain.ErrInvalidPosition)
}

func TestControllerStartLoopRangeRequiresPlaylistEntry(t *testing.T) {
	c, _, _ := newTestController(t)
	p := newTestEntry("solo.mp3")
	require.NoError(t, c.PlayAlone(context.Background(), p))

	err := c.StartLoopRange(context.Background(), 10*time.Second, 30*time.Second)
	assert.ErrorIs(t, err, domain.ErrNotInPlaylist)
	assert.False(t, p.PlayState().IsLoopEnabled())
}

func TestControllerStartLoopRangeRestartsPlayback(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	require.NoError(t, c.Pause())

	require.NoError(t, c.StartLoopRange(context.Background(), 10*time.Second, 30*time.Second))

	assert.True(t, p.PlayState().IsPlaying())
	handle, _ := graph.OnlyHandle()
	snap, _ := graph.Snapshot(handle)
	assert.True(t, snap.Playing)
}

func TestControllerCompletionIgnoredWhileLooping(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	require.NoError(t, c.StartLoopRange(context.Background(), 10*time.Second, 30*time.Second))
	handle, ok := graph.OnlyHandle()
	require.True(t, ok)

	graph.CompleteNode(handle)

	// The window's end is the node rewinding, not the part finishing.
	assert.Never(t, func() bool {
		return p.PlayState().IsCompleted()
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.True(t, p.PlayState().IsPlaying())
	assert.Equal(t, 1, graph.NodeCount())
}

func TestControllerSkipMovesThroughBookParts(t *testing.T) {
	c, graph, _ := newTestController(t)
	book := newTestBook(t, time.Minute, 2*time.Minute)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), book))

	require.NoError(t, c.SkipForward(context.Background()))
	assert.Equal(t, 1, book.CurrentPartIndex())
	assert.True(t, book.PlayState().IsPlaying())
	assert.Equal(t, 1, graph.NodeCount())

	require.NoError(t, c.SkipBack(context.Background()))
	assert.Equal(t, 0, book.CurrentPartIndex())
	assert.True(t, book.PlayState().IsPlaying())
}

func TestControllerSkipFallsBackToPlaylist(t *testing.T) {
	c, _, _ := newTestController(t)
	a := addEntry(t, c, "a.mp3")
	book := newTestBook(t, time.Minute)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), a))

	// Flat entry: skip is playlist navigation.
	require.NoError(t, c.SkipForward(context.Background()))
	assert.True(t, book.PlayState().IsPlaying())
	assert.True(t, a.PlayState().IsStopped())

	// Book on its first (and only) part: skip back degrades to the playlist.
	require.NoError(t, c.SkipBack(context.Background()))
	assert.True(t, a.PlayState().IsPlaying())
}

func TestControllerSwitchingEntriesStopsPrevious(t *testing.T) {
	c, graph, _ := newTestController(t)
	a := addEntry(t, c, "a.mp3")
	b := addEntry(t, c, "b.mp3")

	require.NoError(t, c.PlayEntry(context.Background(), a))
	require.NoError(t, c.PlayEntry(context.Background(), b))

	assert.True(t, a.PlayState().IsStopped())
	assert.True(t, b.PlayState().IsPlaying())
	assert.Equal(t, 1, graph.NodeCount(), "previous entry's node is released")
}

func TestControllerRemoveCurrentEntryUnbinds(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))

	require.NoError(t, c.RemoveFromPlaylist(p))

	assert.Equal(t, 0, graph.NodeCount())
	assert.Equal(t, 0, c.Playlist().Count())
	_, ok := c.Current()
	assert.False(t, ok)
}

func TestControllerBookCompletionAdvancesPart(t *testing.T) {
	c, graph, bus := newTestController(t)
	advanced := make(chan domain.PartAdvancedEvent, 1)
	bus.Subscribe(domain.EventPartAdvanced, func(e domain.Event) {
		advanced <- e.(domain.PartAdvancedEvent)
	})

	book := newTestBook(t, time.Minute, 2*time.Minute)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), book))
	handle, ok := graph.OnlyHandle()
	require.True(t, ok)

	graph.CompleteNode(handle)

	require.Eventually(t, func() bool {
		return book.CurrentPartIndex() == 1 && book.PlayState().IsPlaying()
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case e := <-advanced:
		assert.Equal(t, 0, e.FromIndex)
		assert.Equal(t, 1, e.ToIndex)
	case <-time.After(time.Second):
		t.Fatal("expected a part advanced event")
	}
	assert.Equal(t, 1, graph.NodeCount(), "old part's node replaced by the new one")
}

func TestControllerBookCompletionWithoutContinuousPlay(t *testing.T) {
	c, graph, _ := newTestController(t)
	book := newTestBook(t, time.Minute, 2*time.Minute)
	book.SetContinuousPlay(false)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), book))
	handle, _ := graph.OnlyHandle()

	graph.CompleteNode(handle)

	require.Eventually(t, func() bool {
		return book.PlayState().IsCompleted()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, book.CurrentPartIndex(), "no advance without continuous play")
}

func TestControllerCompletionReplaysCurrentFileLoop(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	c.Playlist().SetLoopCurrentFileEnabled(true)
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()

	graph.CompleteNode(handle)

	require.Eventually(t, func() bool {
		return p.PlayState().IsPlaying() && p.PlayState().Position() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestControllerCompletionAdvancesWhenPlaylistLoops(t *testing.T) {
	c, graph, _ := newTestController(t)
	a := addEntry(t, c, "a.mp3")
	b := addEntry(t, c, "b.mp3")
	c.Playlist().SetLoopEnabled(true)
	require.NoError(t, c.PlayEntry(context.Background(), a))
	handle, _ := graph.OnlyHandle()

	graph.CompleteNode(handle)

	require.Eventually(t, func() bool {
		return b.PlayState().IsPlaying()
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, a.PlayState().IsCompleted())
}

func TestControllerCompletionStopsWithoutLoop(t *testing.T) {
	c, graph, bus := newTestController(t)
	completed := make(chan struct{}, 1)
	bus.Subscribe(domain.EventPartComplete, func(domain.Event) {
		select {
		case completed <- struct{}{}:
		default:
		}
	})
	a := addEntry(t, c, "a.mp3")
	addEntry(t, c, "b.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), a))
	handle, _ := graph.OnlyHandle()

	graph.CompleteNode(handle)

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a completed event")
	}
	require.Eventually(t, func() bool {
		return graph.NodeCount() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, a.PlayState().IsCompleted())
}

func TestControllerProgressEvents(t *testing.T) {
	c, graph, bus := newTestController(t)
	progress := make(chan domain.PartProgressEvent, 16)
	bus.Subscribe(domain.EventPartProgress, func(e domain.Event) {
		select {
		case progress <- e.(domain.PartProgressEvent):
		default:
		}
	})
	p := addEntry(t, c, "a.mp3")
	require.NoError(t, c.PlayEntry(context.Background(), p))
	handle, _ := graph.OnlyHandle()

	graph.AdvanceNode(handle, 7*time.Second)

	select {
	case e := <-progress:
		assert.Equal(t, 7*time.Second, e.Position)
		assert.Equal(t, time.Minute, e.Duration)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a progress event")
	}
	assert.Equal(t, 7*time.Second, p.PlayState().Position())
}

func TestControllerPlayBookmark(t *testing.T) {
	c, graph, _ := newTestController(t)
	p := addEntry(t, c, "a.mp3")
	bm := domain.NewBookmark(30*time.Second, 30*time.Second, -1, p.PlayState().Tag())

	require.NoError(t, c.PlayBookmark(context.Background(), p, bm))

	handle, _ := graph.OnlyHandle()
	snap, _ := graph.Snapshot(handle)
	assert.True(t, snap.Playing)
	assert.Equal(t, 30*time.Second, snap.Position)
}

func TestControllerJumpToPartSwitchesNodes(t *testing.T) {
	c, graph, _ := newTestController(t)
	book := newTestBook(t, time.Minute, 2*time.Minute, 3*time.Minute)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), book))

	require.NoError(t, c.JumpToPart(context.Background(), 2))

	assert.Equal(t, 2, book.CurrentPartIndex())
	assert.True(t, book.PlayState().IsPlaying())
	assert.Equal(t, 1, graph.NodeCount())
	part, ok := book.CurrentPart()
	require.True(t, ok)
	assert.True(t, part.PlayState().IsPlaying())
}

func TestControllerCreateBookmark(t *testing.T) {
	c, graph, _ := newTestController(t)
	book := newTestBook(t, time.Minute, 2*time.Minute)
	require.NoError(t, c.AddToPlaylist(book))
	require.NoError(t, c.PlayEntry(context.Background(), book))
	require.NoError(t, c.JumpToPart(context.Background(), 1))
	handle, _ := graph.OnlyHandle()
	graph.AdvanceNode(handle, 30*time.Second)
	c.pollOnce()

	bm, err := c.CreateBookmark()
	require.NoError(t, err)

	assert.Equal(t, 1, bm.PartIndex)
	assert.Equal(t, 30*time.Second, bm.RelativePosition)
	assert.Equal(t, 90*time.Second, bm.Position)
	assert.Len(t, book.PlayState().Bookmarks(), 1)
}
