package sparkplug

import (
	"testing"

	"github.com/jhump/protoreflect/dynamic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/protobuf"
)

// buildPayload constructs a raw Payload message directly against the
// embedded schema, bypassing Decode/DecodeJSON, so tests can exercise the
// decode path against a known-good wire encoding.
func buildPayload(t *testing.T, timestamp uint64, seq uint64) []byte {
	t.Helper()
	md, err := payloadDescriptor()
	require.NoError(t, err)

	m := protobuf.New(md)
	dyn := m.Dynamic()
	require.NoError(t, dyn.TrySetFieldByName("timestamp", timestamp))
	require.NoError(t, dyn.TrySetFieldByName("seq", seq))

	metricFD := md.FindFieldByName("metrics")
	metricMD := metricFD.GetMessageType()

	metric := dynamic.NewMessage(metricMD)
	require.NoError(t, metric.TrySetFieldByName("name", "temperature"))
	require.NoError(t, metric.TrySetFieldByName("datatype", uint32(DTDouble)))
	require.NoError(t, metric.TrySetFieldByName("double_value", 42.5))

	require.NoError(t, dyn.TryAddRepeatedFieldByName("metrics", metric))

	b, err := m.Encode()
	require.NoError(t, err)
	return b
}

func TestDecodeExtractsMetricsAndSeq(t *testing.T) {
	wire := buildPayload(t, 1000, 7)

	d, err := Decode(wire)
	require.NoError(t, err)
	assert.True(t, d.HasSeq)
	assert.EqualValues(t, 7, d.Seq)
	assert.True(t, d.HasTime)
	assert.EqualValues(t, 1000, d.Timestamp)

	require.Len(t, d.Metrics, 1)
	m := d.Metrics[0]
	assert.Equal(t, "temperature", m.Name)
	assert.Equal(t, "double", m.Category)
	assert.InDelta(t, 42.5, m.Value.(float64), 0.0001)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	wire := buildPayload(t, 1000, 7)

	d, err := Decode(wire)
	require.NoError(t, err)

	out, err := d.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestEncodeJSONDecodeJSONRoundTrip(t *testing.T) {
	wire := buildPayload(t, 1000, 7)

	d, err := Decode(wire)
	require.NoError(t, err)

	jsonBytes, err := d.EncodeJSON()
	require.NoError(t, err)

	d2, err := DecodeJSON(jsonBytes)
	require.NoError(t, err)

	out, err := d2.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, out)
}

func TestRenderTextListsMetricsSorted(t *testing.T) {
	wire := buildPayload(t, 1000, 7)

	d, err := Decode(wire)
	require.NoError(t, err)

	text := d.RenderText()
	assert.Contains(t, text, "seq = 7")
	assert.Contains(t, text, "metric temperature = 42.5 (double)")
}

func TestMetricBytesOfStringFallback(t *testing.T) {
	m := Metric{Value: "hello"}
	assert.Equal(t, []byte("hello"), m.BytesOf())

	m2 := Metric{Value: []byte{0x01, 0x02}}
	assert.Equal(t, []byte{0x01, 0x02}, m2.BytesOf())

	m3 := Metric{Value: 42}
	assert.Equal(t, []byte("42"), m3.BytesOf())
}
