package documents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reggie/internal/model"
	"reggie/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryBucket) {
	t.Helper()
	bucket := storage.NewMemoryBucket()
	return NewService(bucket, zerolog.Nop()), bucket
}

func scenario(id string, columns ...int) model.Scenario {
	sc := model.Scenario{ID: id, Name: "scenario " + id}
	for i, col := range columns {
		sc.Messages = append(sc.Messages, model.ScenarioMessage{
			ID:     string(rune('a' + i)),
			Column: col,
			Payload: model.PublishRequest{
				ClassName: "OrderCreated",
				Topic:     "orders",
				Message:   json.RawMessage(`{"orderId":"o-1"}`),
			},
		})
	}
	return sc
}

func TestScenarioRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, bucket := newTestService(t)

	saved, err := svc.UpsertScenario(ctx, "alice", scenario("s1", 1, 2))
	require.NoError(t, err)
	assert.Equal(t, "s1", saved.ID)

	obj, err := bucket.Get(ctx, "alice/scenarios/s1.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", obj.ContentType)

	got, err := svc.GetScenario(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, saved.Name, got.Name)
	require.Len(t, got.Messages, 2)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(got.Messages[0].Payload.Message))
}

func TestListScenariosIsPerUser(t *testing.T) {
	ctx := context.Background()
	svc, bucket := newTestService(t)

	_, err := svc.UpsertScenario(ctx, "alice", scenario("s1"))
	require.NoError(t, err)
	_, err = svc.UpsertScenario(ctx, "alice", scenario("s2"))
	require.NoError(t, err)
	_, err = svc.UpsertScenario(ctx, "bob", scenario("s3"))
	require.NoError(t, err)
	// non-json objects under the prefix are ignored
	require.NoError(t, bucket.Put(ctx, "alice/scenarios/notes.txt", "text/plain", []byte("hi")))

	list, err := svc.ListScenarios(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, "s2", list[1].ID)

	list, err = svc.ListScenarios(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpsertScenarioLastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	sc := scenario("s1")
	_, err := svc.UpsertScenario(ctx, "alice", sc)
	require.NoError(t, err)
	sc.Name = "renamed"
	_, err = svc.UpsertScenario(ctx, "alice", sc)
	require.NoError(t, err)

	list, err := svc.ListScenarios(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "renamed", list[0].Name)
}

func TestDeleteScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.UpsertScenario(ctx, "alice", scenario("s1"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteScenario(ctx, "alice", "s1"))

	list, err := svc.ListScenarios(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = svc.DeleteScenario(ctx, "alice", "s1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.GetScenario(ctx, "alice", "s1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestScenarioValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		userID string
		sc     model.Scenario
		field  string
	}{
		{"empty user", "", scenario("s1"), "user id"},
		{"slash in user", "a/b", scenario("s1"), "user id"},
		{"reserved user", ReservedUserID, scenario("s1"), "user id"},
		{"empty scenario id", "alice", scenario(""), "scenario id"},
		{"slash in scenario id", "alice", scenario("x/y"), "scenario id"},
		{"column below range", "alice", scenario("s1", 0), "messages[0].column"},
		{"column above range", "alice", scenario("s1", 1, model.MaxColumn+1), "messages[1].column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertScenario(ctx, tt.userID, tt.sc)
			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestListUserIDs(t *testing.T) {
	ctx := context.Background()
	svc, bucket := newTestService(t)

	_, err := svc.UpsertScenario(ctx, "bob", scenario("s1"))
	require.NoError(t, err)
	_, err = svc.UpsertScenario(ctx, "alice", scenario("s1"))
	require.NoError(t, err)
	_, err = svc.UpsertScenario(ctx, "alice", scenario("s2"))
	require.NoError(t, err)
	_, err = svc.UpsertMessageSample(ctx, model.MessageSample{MessageID: "m1"})
	require.NoError(t, err)
	require.NoError(t, bucket.Put(ctx, "carol/other/x.json", "application/json", []byte(`{}`)))

	users, err := svc.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestMessageSamples(t *testing.T) {
	ctx := context.Background()
	svc, bucket := newTestService(t)

	sample := model.MessageSample{
		MessageID: "m1",
		PublishRequest: model.PublishRequest{
			ClassName: "OrderCreated",
			Topic:     "orders",
			Message:   json.RawMessage(`{"orderId":"o-1"}`),
		},
	}
	_, err := svc.UpsertMessageSample(ctx, sample)
	require.NoError(t, err)

	obj, err := bucket.Get(ctx, "message-samples/m1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageId":"m1","className":"OrderCreated","topic":"orders","message":{"orderId":"o-1"}}`, string(obj.Data))

	list, err := svc.ListMessageSamples(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "OrderCreated", list[0].ClassName)

	got, err := svc.GetMessageSample(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Topic)

	require.NoError(t, svc.DeleteMessageSample(ctx, "m1"))
	err = svc.DeleteMessageSample(ctx, "m1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.UpsertMessageSample(ctx, model.MessageSample{})
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestCorruptDocumentIsStorageError(t *testing.T) {
	ctx := context.Background()
	svc, bucket := newTestService(t)

	require.NoError(t, bucket.Put(ctx, "message-samples/bad.json", "application/json", []byte(`{not json`)))

	_, err := svc.ListMessageSamples(ctx)
	var serr *storage.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "decode", serr.Op)
	assert.Equal(t, "message-samples/bad.json", serr.Name)
}
