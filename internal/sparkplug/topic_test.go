package sparkplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopicNodeMessage(t *testing.T) {
	top, ok := ParseTopic("spBv1.0/Plant1/NDATA/edge1")
	require.True(t, ok)
	assert.Equal(t, "spBv1.0", top.Namespace)
	assert.Equal(t, "Plant1", top.Group)
	assert.Equal(t, NDATA, top.MessageType)
	assert.Equal(t, "edge1", top.EdgeNode)
	assert.False(t, top.HasDevice)
	assert.True(t, top.IsEdgeNodeMessage())
}

func TestParseTopicDeviceMessage(t *testing.T) {
	top, ok := ParseTopic("spBv1.0/Plant1/DDATA/edge1/device1/level2")
	require.True(t, ok)
	assert.Equal(t, DDATA, top.MessageType)
	assert.Equal(t, "edge1", top.EdgeNode)
	assert.True(t, top.HasDevice)
	assert.Equal(t, "device1", top.Device)
	assert.Equal(t, []string{"level2"}, top.MetricLevels)
}

func TestParseTopicDeviceMessageMissingDeviceFails(t *testing.T) {
	_, ok := ParseTopic("spBv1.0/Plant1/DDATA/edge1")
	assert.False(t, ok)
}

func TestParseTopicState(t *testing.T) {
	top, ok := ParseTopic("spBv1.0/STATE/host1")
	require.True(t, ok)
	assert.Equal(t, STATE, top.MessageType)
	assert.Equal(t, "host1", top.EdgeNode)
	assert.False(t, top.IsEdgeNodeMessage())
}

func TestParseTopicRejectsWrongNamespace(t *testing.T) {
	_, ok := ParseTopic("other/Plant1/NDATA/edge1")
	assert.False(t, ok)
}

func TestParseTopicRejectsUnknownMessageType(t *testing.T) {
	_, ok := ParseTopic("spBv1.0/Plant1/BOGUS/edge1")
	assert.False(t, ok)
}

func TestParseTopicRejectsTooFewSegments(t *testing.T) {
	_, ok := ParseTopic("spBv1.0/Plant1")
	assert.False(t, ok)
}
