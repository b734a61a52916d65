package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaMessage_RoundTrip(t *testing.T) {
	msg := kafkaMessage("id-1", []byte(`{"orderId":"o-1"}`), map[string]string{"source": "ui"})

	assert.Equal(t, []byte("id-1"), msg.Key)
	require.NotEmpty(t, msg.Headers)
	assert.Equal(t, MessageIDHeader, msg.Headers[0].Key)
	assert.False(t, msg.Time.IsZero())

	d := kafkaDelivery("orders", msg)
	assert.Equal(t, "id-1", d.ID)
	assert.Equal(t, "orders", d.Topic)
	assert.Equal(t, map[string]string{"source": "ui"}, d.Attributes)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(d.Data))
	assert.Equal(t, msg.Time, d.Timestamp)
}

func TestKafkaDelivery_HeaderOverridesKey(t *testing.T) {
	d := kafkaDelivery("orders", kafka.Message{
		Key: []byte("partition-key"),
		Headers: []kafka.Header{
			{Key: "traceparent", Value: []byte("00-abc-def-01")},
			{Key: MessageIDHeader, Value: []byte("id-2")},
		},
	})

	assert.Equal(t, "id-2", d.ID)
	assert.Equal(t, map[string]string{"traceparent": "00-abc-def-01"}, d.Attributes)
}

func TestKafkaDelivery_ForeignRecordUsesKey(t *testing.T) {
	d := kafkaDelivery("orders", kafka.Message{Key: []byte("k-9"), Value: []byte(`{}`)})

	assert.Equal(t, "k-9", d.ID)
	assert.Nil(t, d.Attributes)
}
