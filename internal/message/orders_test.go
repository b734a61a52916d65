package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reggie/internal/registry"
)

func TestRegisterBuiltins(t *testing.T) {
	r := registry.New()
	require.NoError(t, RegisterBuiltins(r))
	assert.Equal(t, []string{"OrderCancelled", "OrderCreated"}, r.Names())

	got, err := r.Decode("OrderCreated", json.RawMessage(`{"orderId":"123","customerId":"456","amount":99.99}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"123","customerId":"456","amount":99.99}`, string(got.Payload))

	require.Error(t, RegisterBuiltins(r), "registering twice must fail")
}
