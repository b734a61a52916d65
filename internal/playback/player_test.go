package playback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reggie/internal/message"
	"reggie/internal/messaging"
	"reggie/internal/model"
	"reggie/internal/publish"
	"reggie/internal/registry"
	"reggie/internal/worker"
)

func newTestPlayer(t *testing.T, delay time.Duration) (*Player, *messaging.MemoryPubSub) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, message.RegisterBuiltins(reg))
	bus := messaging.NewMemoryPubSub()
	t.Cleanup(func() { bus.Close() })

	pool := worker.NewWorkerPool("playback-test", 2, zerolog.Nop())
	pool.Start()
	t.Cleanup(pool.Stop)

	svc := publish.NewService(reg, bus, bus.Name(), zerolog.Nop())
	return NewPlayer(svc, pool, Options{ColumnDelay: delay, MaxColumn: model.MaxColumn}, zerolog.Nop()), bus
}

func msg(id string, column int, topic string) model.ScenarioMessage {
	return model.ScenarioMessage{
		ID:     id,
		Column: column,
		Payload: model.PublishRequest{
			ClassName: "OrderCreated",
			Topic:     topic,
			Message:   json.RawMessage(`{"orderId":"` + id + `","customerId":"c","amount":1}`),
		},
	}
}

func topics(published []messaging.Delivery) []string {
	var out []string
	for _, d := range published {
		out = append(out, d.Topic)
	}
	return out
}

func TestPlayPublishesColumnsInOrder(t *testing.T) {
	player, bus := newTestPlayer(t, 0)

	sc := model.Scenario{ID: "s1", Messages: []model.ScenarioMessage{
		msg("m3", 5, "third"),
		msg("m1", 1, "first"),
		msg("m2a", 2, "second"),
		msg("m2b", 2, "second"),
	}}

	rep := player.Play(context.Background(), sc, 1)
	assert.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 5, rep.CompletedColumn)
	require.Len(t, rep.Columns, 3)
	assert.Equal(t, []int{1, 2, 5}, []int{rep.Columns[0].Column, rep.Columns[1].Column, rep.Columns[2].Column})
	assert.Empty(t, rep.Errors)

	got := topics(bus.Published())
	require.Len(t, got, 4)
	assert.Equal(t, "first", got[0])
	assert.ElementsMatch(t, []string{"second", "second"}, got[1:3])
	assert.Equal(t, "third", got[3])

	for _, m := range rep.Columns[1].Messages {
		require.NotNil(t, m.Result)
		assert.NotEmpty(t, m.Result.MessageID)
	}
}

func TestPlayStopsAtFirstFailingColumn(t *testing.T) {
	player, bus := newTestPlayer(t, 0)
	bus.FailTopic("broken", errors.New("broker down"))

	sc := model.Scenario{ID: "s1", Messages: []model.ScenarioMessage{
		msg("ok1", 1, "orders"),
		msg("ok2", 2, "orders"),
		msg("bad", 2, "broken"),
		msg("never", 3, "orders"),
	}}

	rep := player.Play(context.Background(), sc, 1)
	assert.Equal(t, StatusFailed, rep.Status)
	assert.Equal(t, 1, rep.CompletedColumn)
	require.Len(t, rep.Columns, 2)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "failed to send OrderCreated")

	for _, d := range bus.Published() {
		assert.NotContains(t, string(d.Data), "never")
	}
	assert.Len(t, bus.Published(), 2)
}

func TestPlayDecodeFailureFailsColumn(t *testing.T) {
	player, bus := newTestPlayer(t, 0)

	bad := msg("bad", 1, "orders")
	bad.Payload.ClassName = "Unregistered"
	sc := model.Scenario{ID: "s1", Messages: []model.ScenarioMessage{bad, msg("later", 2, "orders")}}

	rep := player.Play(context.Background(), sc, 1)
	assert.Equal(t, StatusFailed, rep.Status)
	assert.Equal(t, 0, rep.CompletedColumn)
	assert.Empty(t, bus.Published())
}

func TestPlayResumesFromColumn(t *testing.T) {
	player, bus := newTestPlayer(t, 0)

	sc := model.Scenario{ID: "s1", Messages: []model.ScenarioMessage{
		msg("m1", 1, "one"),
		msg("m2", 2, "two"),
		msg("m3", 3, "three"),
	}}

	rep := player.Play(context.Background(), sc, 2)
	assert.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 3, rep.CompletedColumn)
	assert.Equal(t, []string{"two", "three"}, topics(bus.Published()))
}

func TestPlayCancelled(t *testing.T) {
	player, bus := newTestPlayer(t, time.Hour)

	sc := model.Scenario{ID: "s1", Messages: []model.ScenarioMessage{
		msg("m1", 1, "one"),
		msg("m2", 2, "two"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for len(bus.Published()) == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	rep := player.Play(ctx, sc, 1)
	assert.Equal(t, StatusCancelled, rep.Status)
	assert.Equal(t, 1, rep.CompletedColumn)
	assert.Equal(t, []string{"one"}, topics(bus.Published()))
}

func TestPlayEmptyScenario(t *testing.T) {
	player, bus := newTestPlayer(t, time.Hour)

	rep := player.Play(context.Background(), model.Scenario{ID: "empty"}, 1)
	assert.Equal(t, StatusCompleted, rep.Status)
	assert.Empty(t, rep.Columns)
	assert.Empty(t, bus.Published())
}
