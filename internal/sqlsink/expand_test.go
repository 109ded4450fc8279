package sqlsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/sparkplug"
)

func TestExpandLiteralAndMarkerPlaceholders(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	f := dispatchFields{
		topic: "mqtli/test", retain: true, qos: 1, now: now,
		payloadBytes: []byte("hello"),
	}
	sqlStr, binds, err := expand(
		`INSERT INTO t(topic, retain, qos, created_at, body) VALUES ("{{topic}}", {{retain}}, {{qos}}, {{created_at}}, {{payload}});`, f)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO t(topic, retain, qos, created_at, body) VALUES ("mqtli/test", 1, 1, 1785412800, ?);`, sqlStr)
	require.Len(t, binds, 1)
	assert.Equal(t, []byte("hello"), binds[0])
}

func TestExpandSparkplugMetricFanOutFields(t *testing.T) {
	spTopic, ok := sparkplug.ParseTopic("spBv1.0/GroupA/NDATA/Edge01")
	require.True(t, ok)

	f := dispatchFields{
		topic: "spBv1.0/GroupA/NDATA/Edge01",
		now:   time.Now(),

		hasSparkplugTopic: true,
		sp:                spTopic,

		hasMetric:   true,
		metricName:  "temperature",
		metricValue: []byte("23.5"),
	}
	sqlStr, binds, err := expand(
		`INSERT INTO sp_metrics(group_id,edge,metric,value) VALUES("{{sp_group_id}}","{{sp_edge_node_id}}","{{sp_metric_name}}",{{sp_metric_value}});`, f)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO sp_metrics(group_id,edge,metric,value) VALUES("'GroupA'","'Edge01'","'temperature'",?);`, sqlStr)
	require.Len(t, binds, 1)
	assert.Equal(t, []byte("23.5"), binds[0])
}

func TestExpandMetricLevelNullWhenAbsent(t *testing.T) {
	spTopic, ok := sparkplug.ParseTopic("spBv1.0/GroupA/NDATA/Edge01")
	require.True(t, ok)
	f := dispatchFields{hasSparkplugTopic: true, sp: spTopic}
	sqlStr, _, err := expand(`level={{sp_metric_level}}`, f)
	require.NoError(t, err)
	assert.Equal(t, "level=null", sqlStr)
}

func TestExpandMetricLevelQuotedWhenPresent(t *testing.T) {
	spTopic, ok := sparkplug.ParseTopic("spBv1.0/GroupA/NDATA/Edge01/sub/leaf")
	require.True(t, ok)
	f := dispatchFields{hasSparkplugTopic: true, sp: spTopic}
	sqlStr, _, err := expand(`level={{sp_metric_level}}`, f)
	require.NoError(t, err)
	assert.Equal(t, "level='sub/leaf'", sqlStr)
}

func TestExpandUnknownPlaceholderErrors(t *testing.T) {
	_, _, err := expand(`{{bogus}}`, dispatchFields{})
	assert.Error(t, err)
}

func TestHostStateFromTree(t *testing.T) {
	online, ts, ok := hostStateFromTree(map[string]interface{}{"online": true, "timestamp": float64(1234)})
	require.True(t, ok)
	assert.True(t, online)
	assert.EqualValues(t, 1234, ts)

	_, _, ok = hostStateFromTree("not a map")
	assert.False(t, ok)
}
