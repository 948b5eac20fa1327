package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestPublishFansOutToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var got []string
	bus.Subscribe("sale.recorded", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		got = append(got, "first:"+e.EventName())
		mu.Unlock()
		return nil
	})
	bus.Subscribe("sale.recorded", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		got = append(got, "second:"+e.EventName())
		mu.Unlock()
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "sale.recorded"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first:sale.recorded", "second:sale.recorded"}, got)
}

func TestEventsWithoutSubscribersAreDropped(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	assert.NoError(t, bus.Publish(context.Background(), testEvent{name: "nobody.listens"}))
}

func TestPanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	done := make(chan struct{})
	bus.Subscribe("payment.resolved", func(_ context.Context, _ domoutbox.Event) error {
		panic("handler bug")
	})
	bus.Subscribe("payment.resolved", func(_ context.Context, _ domoutbox.Event) error {
		close(done)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "payment.resolved"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sibling handler was not invoked after a panic")
	}
}

func TestPublishNilEventIsNoop(t *testing.T) {
	bus := NewBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}

func TestPublishAbortsOnCanceledContext(t *testing.T) {
	bus := NewBus(nil)
	// Not started: the queue can fill up and block.
	for i := 0; i < 1024; i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent{name: "fill"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bus.Publish(ctx, testEvent{name: "overflow"})
	assert.ErrorIs(t, err, context.Canceled)
}
