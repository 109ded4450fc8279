package payload

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/protobuf"
)

func mustHexDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestConvertScenario1HexToProtobufToYAML covers the literal scenario of a
// hex publish input converted into a Protobuf Response message, rendered to
// YAML console output: distance=45, inner.kind="kindof",
// position=2 (POSITION_INSIDE), raw="AB".
func TestConvertScenario1HexToProtobufToYAML(t *testing.T) {
	pool, err := protobuf.LoadPool("testdata/response.proto")
	require.NoError(t, err)
	opts := Options{ProtoMessage: "mqtli.test.Response", ProtoPool: pool}

	hexPayload, err := FromWire(Hex, []byte("082d12080a066b696e646f66180222024142"), Options{})
	require.NoError(t, err)

	proto, err := Convert(hexPayload, Protobuf, opts)
	require.NoError(t, err)
	require.Equal(t, Protobuf, proto.Kind())

	yamlOut, err := Convert(proto, YAML, opts)
	require.NoError(t, err)
	tree, ok := yamlOut.Tree().(map[string]interface{})
	require.True(t, ok)

	assert.EqualValues(t, 45, tree["distance"])
	inner, ok := tree["inner"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "kindof", inner["kind"])
	assert.Equal(t, "POSITION_INSIDE", tree["position"])
	assert.Equal(t, "QUI=", tree["raw"]) // jsonpb base64 of "AB": 0x41 0x42
}

func TestConvertHexBase64RoundTrip(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	rawPayload := NewRaw(raw)

	hexOut, err := Convert(rawPayload, Hex, Options{})
	require.NoError(t, err)
	hexWire, err := hexOut.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", string(hexWire))

	back, err := Convert(hexOut, Raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, raw, back.RawBytes())

	b64Out, err := Convert(rawPayload, Base64, Options{})
	require.NoError(t, err)

	back2, err := Convert(b64Out, Raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, raw, back2.RawBytes())
}

func TestConvertIsIdempotentOnSameKind(t *testing.T) {
	p := NewText("hello")
	out, err := Convert(p, Text, Options{})
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestConvertRawToJSONUsesContentField(t *testing.T) {
	raw := NewRaw([]byte{0x01, 0x02})
	j, err := Convert(raw, JSON, Options{RawAs: RawAsHex})
	require.NoError(t, err)
	tree := j.Tree().(map[string]interface{})
	assert.Equal(t, "0102", tree["content"])

	back, err := Convert(j, Raw, Options{RawAs: RawAsHex})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, back.RawBytes())
}

func TestConvertJSONMissingContentFieldFails(t *testing.T) {
	j := NewJSON(map[string]interface{}{"other": "x"})
	_, err := Convert(j, Raw, Options{})
	require.Error(t, err)
	var ce *errs.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errs.MissingContentField, ce.Kind)
}

func TestConvertTextToProtobufUnsupported(t *testing.T) {
	_, err := Convert(NewText("hi"), Protobuf, Options{})
	require.Error(t, err)
	var ce *errs.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errs.UnsupportedConversion, ce.Kind)
}

func TestConvertTextToHexRejectsNonHex(t *testing.T) {
	_, err := Convert(NewText("not hex!"), Hex, Options{})
	require.Error(t, err)
	var ce *errs.ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errs.InvalidHex, ce.Kind)
}
