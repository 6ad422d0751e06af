package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratix/hark/internal/domain"
)

func bookInfo() domain.EntryInfo {
	return domain.EntryInfo{ID: "book-1", Name: "moby-dick", Kind: domain.KindBook}
}

func TestSyncEventBusDeliversToTypedSubscriber(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var got domain.PartAdvancedEvent
	calls := 0
	id := bus.Subscribe(domain.EventPartAdvanced, func(e domain.Event) {
		got = e.(domain.PartAdvancedEvent)
		calls++
	})
	require.NotEmpty(t, id)

	bus.Publish(domain.NewPartAdvancedEvent(bookInfo(), 0, 1))

	require.Equal(t, 1, calls)
	assert.Equal(t, "book-1", got.Book.ID)
	assert.Equal(t, 0, got.FromIndex)
	assert.Equal(t, 1, got.ToIndex)
}

func TestSyncEventBusTypeIsolation(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var loops, mutes int
	bus.Subscribe(domain.EventLoopToggled, func(domain.Event) { loops++ })
	bus.Subscribe(domain.EventMuteToggled, func(domain.Event) { mutes++ })

	bus.Publish(domain.NewLoopToggledEvent(bookInfo(), true))
	bus.Publish(domain.NewLoopToggledEvent(bookInfo(), false))
	bus.Publish(domain.NewMuteToggledEvent(bookInfo(), true))

	assert.Equal(t, 2, loops)
	assert.Equal(t, 1, mutes)
}

func TestSyncEventBusWildcardSeesEverything(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var seen []domain.EventType
	bus.SubscribeAll(func(e domain.Event) { seen = append(seen, e.Type()) })

	info := bookInfo()
	bus.Publish(domain.NewPartStartedEvent(info))
	bus.Publish(domain.NewLoopToggledEvent(info, true))
	bus.Publish(domain.NewPartPausedEvent(info, 3*time.Second))

	assert.Equal(t, []domain.EventType{
		domain.EventPartStarted,
		domain.EventLoopToggled,
		domain.EventPartPaused,
	}, seen)
}

func TestSyncEventBusUnsubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	calls := 0
	id := bus.Subscribe(domain.EventPartStarted, func(domain.Event) { calls++ })

	bus.Publish(domain.NewPartStartedEvent(bookInfo()))
	bus.Unsubscribe(id)
	bus.Publish(domain.NewPartStartedEvent(bookInfo()))

	assert.Equal(t, 1, calls)

	// Unknown and stale IDs are no-ops.
	bus.Unsubscribe(id)
	bus.Unsubscribe("no-such-subscription")
	bus.Unsubscribe("")
}

func TestSyncEventBusUnsubscribePreservesDeliveryOrder(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var order []string
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { order = append(order, "first") })
	middle := bus.Subscribe(domain.EventPartStarted, func(domain.Event) { order = append(order, "middle") })
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { order = append(order, "last") })

	bus.Unsubscribe(middle)
	bus.Publish(domain.NewPartStartedEvent(bookInfo()))

	assert.Equal(t, []string{"first", "last"}, order)
}

func TestSyncEventBusPanickingHandler(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	calls := 0
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { panic("handler blew up") })
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { calls++ })

	bus.Publish(domain.NewPartStartedEvent(bookInfo()))

	assert.Equal(t, 1, calls, "the panic must not swallow later handlers")
}

func TestSyncEventBusNilEventAndNilHandler(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	calls := 0
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { calls++ })

	bus.Publish(nil)
	assert.Zero(t, calls)

	assert.Panics(t, func() { bus.Subscribe(domain.EventPartStarted, nil) })
	assert.Panics(t, func() { bus.SubscribeAll(nil) })
}

func TestSyncEventBusHasSubscribers(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	assert.False(t, bus.HasSubscribers(domain.EventPartStarted))

	bus.Subscribe(domain.EventPartStarted, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventPartStarted))
	assert.False(t, bus.HasSubscribers(domain.EventPartPaused))

	bus.SubscribeAll(func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventPartPaused), "a wildcard reaches every type")
}

func TestSyncEventBusClose(t *testing.T) {
	bus := NewSyncEventBus()

	calls := 0
	bus.Subscribe(domain.EventPartStarted, func(domain.Event) { calls++ })
	bus.SubscribeAll(func(domain.Event) { calls++ })
	require.Equal(t, 2, bus.SubscriberCount())

	require.NoError(t, bus.Close())
	assert.Zero(t, bus.SubscriberCount())

	bus.Publish(domain.NewPartStartedEvent(bookInfo()))
	assert.Zero(t, calls, "a closed bus drops events")

	assert.Error(t, bus.Close())
}

func TestSyncEventBusConcurrentPublish(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var delivered int64
	bus.Subscribe(domain.EventPartProgress, func(domain.Event) {
		atomic.AddInt64(&delivered, 1)
	})

	const publishers = 8
	const perPublisher = 200

	var wg sync.WaitGroup
	wg.Add(publishers)
	info := bookInfo()
	for i := 0; i < publishers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				bus.Publish(domain.NewPartProgressEvent(info, time.Second, time.Minute))
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, publishers*perPublisher, atomic.LoadInt64(&delivered))
}
