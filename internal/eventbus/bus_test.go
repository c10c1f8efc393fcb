package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDispatchesToTypeAndWildcard(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var typedSeen, wildSeen Event

	done := make(chan struct{}, 2)
	b.Subscribe(DownloadStarted, func(ev Event) error {
		mu.Lock()
		typedSeen = ev
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	b.SubscribeAll(func(ev Event) error {
		mu.Lock()
		wildSeen = ev
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	id := b.Publish(DownloadStarted, "engineadapter", map[string]any{"url": "x"})
	require.NotEmpty(t, id)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for handler dispatch")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, DownloadStarted, typedSeen.Type)
	assert.Equal(t, DownloadStarted, wildSeen.Type)
}

func TestHandlerErrorDoesNotBlockSiblings(t *testing.T) {
	b := New()
	var ran bool
	var mu sync.Mutex
	done := make(chan struct{}, 2)

	b.Subscribe(SystemError, func(Event) error {
		done <- struct{}{}
		return errors.New("boom")
	})
	b.Subscribe(SystemError, func(Event) error {
		mu.Lock()
		ran = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	b.Publish(SystemError, "test", nil)
	for i := 0; i < 2; i++ {
		<-done
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, ran)
	assert.EqualValues(t, 1, b.Stats().HandlerErrors)
}

func TestFilterRejectsEventFromHistoryAndHandlers(t *testing.T) {
	b := New()
	b.AddFilter(func(ev Event) bool { return ev.Type != QueueCleared })

	called := false
	b.Subscribe(QueueCleared, func(Event) error {
		called = true
		return nil
	})

	id := b.Publish(QueueCleared, "queue", nil)
	assert.Empty(t, id)
	assert.False(t, called)
	assert.Empty(t, b.History(QueueCleared, 0))
}

func TestHistoryBoundedAndOrdered(t *testing.T) {
	b := New(WithMaxHistory(3))
	for i := 0; i < 5; i++ {
		b.Publish(QueueItemAdded, "queue", map[string]any{"n": i})
	}
	hist := b.History(QueueItemAdded, 0)
	require.Len(t, hist, 3)
	assert.Equal(t, 2, hist[0].Data["n"])
	assert.Equal(t, 4, hist[2].Data["n"])
}

func TestHistoryLimitReturnsMostRecent(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.Publish(QueueItemAdded, "queue", map[string]any{"n": i})
	}
	hist := b.History("", 2)
	require.Len(t, hist, 2)
	assert.Equal(t, 3, hist[0].Data["n"])
	assert.Equal(t, 4, hist[1].Data["n"])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	var mu sync.Mutex
	unsub := b.Subscribe(DownloadFailed, func(Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	b.Publish(DownloadFailed, "engineadapter", nil)
	unsub()
	b.Publish(DownloadFailed, "engineadapter", nil)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestShutdownPublishesSystemShutdown(t *testing.T) {
	b := New()
	done := make(chan Event, 1)
	b.Subscribe(SystemShutdown, func(ev Event) error {
		done <- ev
		return nil
	})
	b.Shutdown()
	select {
	case ev := <-done:
		assert.Equal(t, SystemShutdown, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("shutdown event not delivered")
	}
}

func TestClearHistory(t *testing.T) {
	b := New()
	b.Publish(QueueItemAdded, "queue", nil)
	assert.NotEmpty(t, b.History("", 0))
	b.ClearHistory()
	assert.Empty(t, b.History("", 0))
}
