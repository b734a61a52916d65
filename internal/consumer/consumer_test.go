package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reggie/internal/messaging"
)

func TestConsumerDeliversUntilStopped(t *testing.T) {
	ctx := context.Background()
	bus := messaging.NewMemoryPubSub()
	defer bus.Close()

	got := make(chan messaging.Delivery, 4)
	c, err := StartConsumer(ctx, bus, "orders", func(d messaging.Delivery) { got <- d }, zerolog.Nop())
	require.NoError(t, err)

	id, err := bus.Publish(ctx, "orders", []byte(`{"orderId":"o-1"}`), map[string]string{"k": "v"})
	require.NoError(t, err)

	select {
	case d := <-got:
		assert.Equal(t, id, d.ID)
		assert.Equal(t, "orders", d.Topic)
		assert.Equal(t, "v", d.Attributes["k"])
		assert.JSONEq(t, `{"orderId":"o-1"}`, string(d.Data))
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}

	c.Stop()
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Fatal("consumer still running")
	}
}

func TestConsumerEndsWhenSubscriptionCloses(t *testing.T) {
	bus := messaging.NewMemoryPubSub()

	c, err := StartConsumer(context.Background(), bus, "orders", func(messaging.Delivery) {}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not notice closed subscription")
	}
	c.Stop()
}

func TestConsumerConcurrentStop(t *testing.T) {
	bus := messaging.NewMemoryPubSub()
	defer bus.Close()

	c, err := StartConsumer(context.Background(), bus, "orders", func(messaging.Delivery) {}, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotPanics(t, c.Stop)
		}()
	}
	wg.Wait()

	select {
	case <-c.Done():
	default:
		t.Fatal("consumer still running")
	}
}
