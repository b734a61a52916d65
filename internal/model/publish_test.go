package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishResult_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(PublishResult{
		MessageID: "m-1",
		Topic:     "orders",
		Type:      "OrderCreated",
		Payload:   json.RawMessage(`{"orderId":"o-1"}`),
		Fields:    map[string]string{"orderId": "string"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"messageId": "m-1",
		"topic": "orders",
		"payload": {"orderId": "o-1"},
		"OrderCreated": {"orderId": "string"}
	}`, string(raw))
}

func TestPublishResult_FixedKeysWin(t *testing.T) {
	raw, err := json.Marshal(PublishResult{
		MessageID: "m-1",
		Topic:     "orders",
		Type:      "topic",
		Payload:   json.RawMessage(`{"a":"x"}`),
		Fields:    map[string]string{"a": "string"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageId":"m-1","topic":"orders","payload":{"a":"x"}}`, string(raw))
}
