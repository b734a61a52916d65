package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGossipEnvelope_RoundTrip(t *testing.T) {
	raw, err := encodeEnvelope("id-1", []byte(`{"orderId":"o-1"}`), map[string]string{"source": "ui"})
	require.NoError(t, err)

	d, err := decodeEnvelope("orders", raw)
	require.NoError(t, err)
	assert.Equal(t, "id-1", d.ID)
	assert.Equal(t, "orders", d.Topic)
	assert.Equal(t, map[string]string{"source": "ui"}, d.Attributes)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(d.Data))
	assert.False(t, d.Timestamp.IsZero())
}

func TestGossipEnvelope_Rejects(t *testing.T) {
	_, err := encodeEnvelope("id-1", []byte(`not json`), nil)
	assert.Error(t, err)

	_, err = decodeEnvelope("orders", []byte(`garbage`))
	assert.Error(t, err)

	_, err = decodeEnvelope("orders", []byte(`{"data":{}}`))
	assert.Error(t, err)
}

func newLoopbackGossip(t *testing.T, bootstrap []string) *GossipPubSub {
	t.Helper()
	g, err := NewGossipPubSub(context.Background(), GossipOptions{
		ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"},
		Bootstrap:   bootstrap,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGossipPubSub_DeliversBetweenHosts(t *testing.T) {
	if testing.Short() {
		t.Skip("starts two libp2p hosts")
	}

	a := newLoopbackGossip(t, nil)
	require.NotEmpty(t, a.Addrs())
	b := newLoopbackGossip(t, a.Addrs())

	msgs, cancel, err := b.Subscribe(context.Background(), "orders")
	require.NoError(t, err)

	// subscriptions propagate asynchronously, so keep publishing until one lands
	ctx := context.Background()
	deadline := time.After(10 * time.Second)
	var got Delivery
	var ids []string
wait:
	for {
		id, err := a.Publish(ctx, "orders", []byte(`{"orderId":"o-1"}`), map[string]string{"source": "a"})
		require.NoError(t, err)
		ids = append(ids, id)

		select {
		case got = <-msgs:
			break wait
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no gossip delivery within 10s")
		}
	}

	assert.Contains(t, ids, got.ID)
	assert.Equal(t, "orders", got.Topic)
	assert.Equal(t, "a", got.Attributes["source"])
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(got.Data))
	assert.Equal(t, []string{"orders"}, a.handles.Names())

	cancel()
	assert.NotPanics(t, cancel)
}

func TestGossipPubSub_Close(t *testing.T) {
	g := newLoopbackGossip(t, nil)

	msgs, _, err := g.Subscribe(context.Background(), "orders")
	require.NoError(t, err)
	require.NoError(t, g.Ping(context.Background()))
	assert.Equal(t, 1, g.handles.Len())

	require.NoError(t, g.Close())
	assert.Error(t, g.Ping(context.Background()))
	assert.Equal(t, 0, g.handles.Len())

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed")
	}
}
