package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/mqttsession"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/topic"
)

func TestBuildSessionMapsProtocolAndVersion(t *testing.T) {
	b := Broker{Host: "broker.local", Port: 1883, Protocol: "websocket", MQTTVer: "v5", TLSVersion: "v13"}
	sc := BuildSession(b)
	assert.Equal(t, mqttsession.ProtocolWebSocket, sc.Protocol)
	assert.Equal(t, mqttsession.VersionV5, sc.Version)
	assert.Equal(t, mqttsession.TLS13, sc.TLS.MinVersion)
}

func TestBuildEntriesRoundTripsScenario2Shape(t *testing.T) {
	count := 3
	topics := []Topic{{
		TopicPattern: "mqtli/json",
		Payload:      FormatSpec{Kind: "json"},
		Subscription: &Subscription{
			Enabled: true,
			QoS:     1,
			Outputs: []Output{{Type: "console", Format: &FormatSpec{Kind: "text"}}},
			Filters: []Filter{
				{Type: "extract_json", JSONPath: "$.array[*].name"},
				{Type: "to_upper"},
			},
		},
		Publish: &Publish{
			Enabled: true,
			Input:   PublishInput{Type: "text", Content: "hello"},
			Triggers: []TriggerSpec{
				{IntervalMs: 100, InitialDelayMs: 0, Count: &count},
			},
		},
	}}

	entries, err := BuildEntries(topics)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, payload.JSON, e.Format.Kind)
	require.NotNil(t, e.Subscription)
	assert.Equal(t, byte(1), e.Subscription.QoS)
	require.Len(t, e.Subscription.Outputs, 1)
	assert.Equal(t, topic.OutputConsole, e.Subscription.Outputs[0].Kind)

	require.NotNil(t, e.Publish)
	require.Len(t, e.Publish.Triggers, 1)
	assert.EqualValues(t, 100, e.Publish.Triggers[0].IntervalMs)
	assert.True(t, e.Publish.Triggers[0].HasCount)
	assert.EqualValues(t, 3, e.Publish.Triggers[0].Count)
}

func TestBuildEntriesRejectsUnknownOutputType(t *testing.T) {
	topics := []Topic{{
		TopicPattern: "a/b",
		Payload:      FormatSpec{Kind: "text"},
		Subscription: &Subscription{Enabled: true, Outputs: []Output{{Type: "carrier-pigeon"}}},
	}}
	_, err := BuildEntries(topics)
	assert.Error(t, err)
}

func TestBuildFilterUnknownTypeErrors(t *testing.T) {
	_, err := buildFilter(Filter{Type: "nonexistent"})
	assert.Error(t, err)
}
