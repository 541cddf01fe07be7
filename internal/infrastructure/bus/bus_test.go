package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBus_DeliversToSubscriber(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	var mu sync.Mutex
	var got []string
	b.Subscribe("order.placed", func(_ context.Context, e dombus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.EventName())
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "order.placed"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
}

func TestBus_FansOutToAllSubscribers(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	var mu sync.Mutex
	count := 0
	handler := func(_ context.Context, _ dombus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	}
	b.Subscribe("audit.recorded", handler)
	b.Subscribe("audit.recorded", handler)

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "audit.recorded"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	})
}

func TestBus_PanickingHandlerDoesNotKillDispatch(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	var mu sync.Mutex
	delivered := false
	b.Subscribe("boom", func(_ context.Context, _ dombus.Event) error {
		panic("handler exploded")
	})
	b.Subscribe("boom", func(_ context.Context, _ dombus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = true
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "boom"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered
	})
}

func TestBus_NilEventIsIgnored(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	assert.NoError(t, b.Publish(context.Background(), nil))
}

func TestBus_EventWithoutSubscriberIsDropped(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	require.NoError(t, b.Publish(context.Background(), testEvent{name: "nobody.cares"}))
}

func TestBus_PublishAfterStopReturnsError(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	b.Stop(context.Background())

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, b.Publish(context.Background(), testEvent{name: "late.event"}), ErrStopped)
	})
}

func TestBus_PublishRacingStopDoesNotPanic(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := b.Publish(context.Background(), testEvent{name: "racy.event"})
				if err != nil {
					assert.ErrorIs(t, err, ErrStopped)
					return
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	b.Stop(context.Background())
	wg.Wait()
}
