package sparkplugnet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/log"
	"github.com/kaans/mqtli/internal/sparkplug"
)

func TestSubscriptionPatternsDefaultAndRestricted(t *testing.T) {
	assert.Equal(t, []string{"spBv1.0/#"}, SubscriptionPatterns(nil))
	assert.Equal(t, []string{"spBv1.0/GroupA/#", "spBv1.0/GroupB/#"}, SubscriptionPatterns([]string{"GroupA", "GroupB"}))
}

func TestTrackerResolvesAliasAfterBirth(t *testing.T) {
	var buf bytes.Buffer
	tr := New(log.Noop())
	tr.out = &buf

	birth := &sparkplug.Decoded{Metrics: []sparkplug.Metric{
		{Name: "temperature", HasAlias: true, Alias: 1, Value: 20.0},
	}}
	state := newNodeState()
	tr.handleBirth(state, "", birth)

	data := &sparkplug.Decoded{Metrics: []sparkplug.Metric{
		{HasAlias: true, Alias: 1, Value: 23.5},
	}}
	tr.resolveAliases(state, "", data)

	require.Len(t, data.Metrics, 1)
	assert.Equal(t, "temperature", data.Metrics[0].Name)
}

func TestTrackerDropsStaleAlias(t *testing.T) {
	var buf bytes.Buffer
	tr := New(log.Noop())
	tr.out = &buf

	state := newNodeState()
	data := &sparkplug.Decoded{Metrics: []sparkplug.Metric{
		{HasAlias: true, Alias: 99, Value: 1.0},
	}}
	tr.resolveAliases(state, "", data)

	assert.Empty(t, data.Metrics, "unresolvable alias must be dropped, not rendered")
}

func TestTrackerHandleMessageIgnoresNonSparkplugTopics(t *testing.T) {
	var buf bytes.Buffer
	tr := New(log.Noop())
	tr.out = &buf

	tr.HandleMessage("mqtli/other", []byte("irrelevant"))
	assert.Empty(t, buf.String())
}

func TestTrackerRenderDeathUsesKnownBdSeq(t *testing.T) {
	var buf bytes.Buffer
	tr := New(log.Noop())
	tr.out = &buf

	state := newNodeState()
	birth := &sparkplug.Decoded{Metrics: []sparkplug.Metric{{Name: "bdSeq", Value: uint64(7)}}}
	tr.handleBirth(state, "", birth)

	top, ok := sparkplug.ParseTopic("spBv1.0/GroupA/NDEATH/Edge01")
	require.True(t, ok)
	tr.handleDeath(state, top, &sparkplug.Decoded{})

	assert.Contains(t, buf.String(), "bdSeq=7")
}
