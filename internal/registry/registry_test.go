package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note,omitempty"`
	secret  string
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, RegisterType[orderPlaced](r, "OrderPlaced"))
	return r
}

func TestRegister_DuplicateNameRejected(t *testing.T) {
	r := newTestRegistry(t)

	err := RegisterType[orderPlaced](r, "OrderPlaced")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, []string{"OrderPlaced"}, r.Names())
}

func TestRegister_ReservedNamesRejected(t *testing.T) {
	r := New()
	for _, name := range []string{"messageId", "topic", "payload"} {
		err := RegisterType[orderPlaced](r, name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "reserved")
	}

	_, err := RegisterCUE(r, []byte(`#topic: {a: string}`), "topic.cue")
	require.Error(t, err)
	assert.Empty(t, r.Names())
}

func TestRegisterType_RejectsNonStruct(t *testing.T) {
	r := New()
	require.Error(t, RegisterType[string](r, "Plain"))
	assert.Empty(t, r.Names())
}

func TestDecode_UnknownType(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode("Missing", json.RawMessage(`{"orderId":"1"}`))

	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Missing", unknown.Name)
	assert.Equal(t, "unknown message type: Missing", err.Error())
}

func TestDecode_NormalizesPayload(t *testing.T) {
	r := newTestRegistry(t)

	got, err := r.Decode("OrderPlaced", json.RawMessage(` {"amount": 9.5, "orderId": "abc"} `))
	require.NoError(t, err)

	assert.Equal(t, "OrderPlaced", got.Type)
	assert.JSONEq(t, `{"orderId":"abc","amount":9.5}`, string(got.Payload))
	assert.Equal(t, map[string]string{
		"orderId": "string",
		"amount":  "float64",
		"note":    "string",
	}, got.Fields)
}

func TestDecode_MalformedPayloads(t *testing.T) {
	r := newTestRegistry(t)

	cases := map[string]string{
		"unknown field": `{"orderId":"1","extra":true}`,
		"wrong type":    `{"orderId":1}`,
		"not an object": `[1,2,3]`,
		"broken json":   `{"orderId":`,
		"trailing data": `{"orderId":"1"} {}`,
		"null":          `null`,
		"empty":         ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Decode("OrderPlaced", json.RawMessage(raw))
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, "OrderPlaced", decodeErr.Name)
		})
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	e, ok := r.Lookup("OrderPlaced")
	require.True(t, ok)

	fields := e.Fields()
	fields["orderId"] = "mutated"

	assert.Equal(t, "string", e.Fields()["orderId"])
}

func TestDecode_ConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Decode("OrderPlaced", json.RawMessage(`{"orderId":"x"}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

const shipmentSchema = `
#ShipmentDispatched: {
	shipmentId: string
	carrier:    "ups" | "dhl" | "fedex"
	weightKg:   number & >0
	tracking?:  string
}
`

func TestRegisterCUE_ValidatesPayloads(t *testing.T) {
	r := New()
	names, err := RegisterCUE(r, []byte(shipmentSchema), "shipment.cue")
	require.NoError(t, err)
	assert.Equal(t, []string{"ShipmentDispatched"}, names)

	got, err := r.Decode("ShipmentDispatched", json.RawMessage(`{"shipmentId":"s-1","carrier":"dhl","weightKg":2.5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"shipmentId":"s-1","carrier":"dhl","weightKg":2.5}`, string(got.Payload))
	assert.Contains(t, got.Fields, "tracking")
	assert.Contains(t, got.Fields, "shipmentId")

	bad := []string{
		`{"shipmentId":"s-1","carrier":"post","weightKg":2.5}`,
		`{"shipmentId":"s-1","carrier":"dhl","weightKg":-1}`,
		`{"shipmentId":"s-1","carrier":"dhl"}`,
		`{"shipmentId":"s-1","carrier":"dhl","weightKg":1,"extra":1}`,
		`"just a string"`,
	}
	for _, raw := range bad {
		_, err := r.Decode("ShipmentDispatched", json.RawMessage(raw))
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), "payload %s: got %v", raw, err)
	}
}

const manifestSchema = `
#Manifest: {
	manifestId: string
	origin: {
		city:     string
		country?: string
	}
	parcels: [...{sku: string, qty: int & >0}]
}
`

func TestRegisterCUE_RejectsUnknownNestedKeys(t *testing.T) {
	r := New()
	_, err := RegisterCUE(r, []byte(manifestSchema), "manifest.cue")
	require.NoError(t, err)

	got, err := r.Decode("Manifest", json.RawMessage(`{"manifestId":"m-1","origin":{"city":"Oslo"},"parcels":[{"sku":"a","qty":2}]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"manifestId":"m-1","origin":{"city":"Oslo"},"parcels":[{"sku":"a","qty":2}]}`, string(got.Payload))

	tests := map[string]string{
		"top level":   `{"manifestId":"m-1","origin":{"city":"Oslo"},"parcels":[],"zzz":1}`,
		"nested":      `{"manifestId":"m-1","origin":{"city":"Oslo","street":"x"},"parcels":[]}`,
		"list member": `{"manifestId":"m-1","origin":{"city":"Oslo"},"parcels":[{"sku":"a","qty":1,"color":"red"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.Decode("Manifest", json.RawMessage(raw))
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Contains(t, err.Error(), "field not allowed")
		})
	}
}

func TestLoadCUEDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shipment.cue"), []byte(shipmentSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refund.cue"), []byte(`#RefundIssued: {refundId: string, cents: int}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := New()
	names, err := LoadCUEDir(r, dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"RefundIssued", "ShipmentDispatched"}, names)
	assert.Equal(t, []string{"RefundIssued", "ShipmentDispatched"}, r.Names())
}

func TestLoadCUEDir_CompileError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte(`#Broken: {`), 0o644))

	_, err := LoadCUEDir(New(), dir)
	require.Error(t, err)
}

func TestLoadCUEDir_MissingDir(t *testing.T) {
	_, err := LoadCUEDir(New(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
