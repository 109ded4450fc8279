package protobuf

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadResponseDescriptor(t *testing.T) *Pool {
	t.Helper()
	pool, err := LoadPoolFromSource("response.proto", testProtoSource)
	require.NoError(t, err)
	return pool
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	pool := loadResponseDescriptor(t)
	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)

	wire, err := hex.DecodeString("082d12080a066b696e646f66180222024142")
	require.NoError(t, err)

	m, err := Decode(md, wire)
	require.NoError(t, err)

	out, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestEncodeJSONDecodeJSONRoundTrip(t *testing.T) {
	pool := loadResponseDescriptor(t)
	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)

	wire, err := hex.DecodeString("082d12080a066b696e646f66180222024142")
	require.NoError(t, err)

	m, err := Decode(md, wire)
	require.NoError(t, err)

	jsonBytes, err := m.EncodeJSON()
	require.NoError(t, err)

	m2, err := DecodeJSON(md, jsonBytes)
	require.NoError(t, err)

	out, err := m2.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	pool := loadResponseDescriptor(t)
	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)

	_, err = DecodeJSON(md, []byte(`{"distance": 1, "bogus_field": true}`))
	assert.Error(t, err)
}

func TestRenderTextIncludesFieldNumbersAndValues(t *testing.T) {
	pool := loadResponseDescriptor(t)
	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)

	wire, err := hex.DecodeString("082d12080a066b696e646f66180222024142")
	require.NoError(t, err)

	m, err := Decode(md, wire)
	require.NoError(t, err)

	text := m.RenderText()
	assert.Contains(t, text, "[1] distance = 45")
	assert.Contains(t, text, "kindof")
}
