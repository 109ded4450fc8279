package sqlsink

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/sparkplug"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// dispatchFields carries every value a template placeholder may reference
// for one row, per spec §4.7's table.
type dispatchFields struct {
	topic  string
	retain bool
	qos    byte
	now    time.Time

	payloadBytes []byte

	hasSparkplugTopic bool
	sp                sparkplug.Topic

	hasHostState bool
	hostOnline   bool
	hostTime     uint64

	hasMetric   bool
	metricName  string
	metricValue []byte
}

// Execute implements topic.SqlSink: expand insertStatement's {{...}}
// placeholders against the dispatch context and run one or more statements.
// When topicName is a Sparkplug edge-node topic and p is a decoded
// Sparkplug payload, it iterates metrics and executes once per metric
// (spec §4.7); otherwise it executes a single statement with {{payload}}
// bound to p's serialized wire bytes.
func (s *Storage) Execute(ctx context.Context, insertStatement, topicName string, p payload.Payload, qos byte, retain bool, now time.Time) error {
	base := dispatchFields{topic: topicName, retain: retain, qos: qos, now: now}

	if spTopic, ok := sparkplug.ParseTopic(topicName); ok {
		base.hasSparkplugTopic = true
		base.sp = spTopic
		if spTopic.MessageType == sparkplug.STATE && p.Kind() == payload.JSON {
			if online, ts, ok := hostStateFromTree(p.Tree()); ok {
				base.hasHostState = true
				base.hostOnline = online
				base.hostTime = ts
			}
		}
	}

	if base.hasSparkplugTopic && base.sp.IsEdgeNodeMessage() && p.Kind() == payload.Sparkplug {
		decoded := p.SparkplugPayload()
		for _, m := range decoded.Metrics {
			f := base
			f.hasMetric = true
			f.metricName = m.Name
			f.metricValue = m.BytesOf()
			if err := s.executeOne(ctx, insertStatement, f); err != nil {
				return err
			}
		}
		return nil
	}

	if strings.Contains(insertStatement, "{{sp_") && !base.hasSparkplugTopic {
		// Sparkplug placeholders on a non-matching topic resolve to empty
		// strings / literal null, per spec §4.7. No warning is logged for
		// this case: sqlsink has no logger dependency and the topic engine
		// does not check for it.
	}

	wire, err := p.Serialize()
	if err != nil {
		return err
	}
	base.payloadBytes = wire
	return s.executeOne(ctx, insertStatement, base)
}

func (s *Storage) executeOne(ctx context.Context, insertStatement string, f dispatchFields) error {
	questionSQL, binds, err := expand(insertStatement, f)
	if err != nil {
		return err
	}
	return s.execRow(ctx, questionSQL, binds)
}

// expand walks insertStatement once, substituting literal placeholders
// inline and replacing parameter-marker placeholders ({{payload}},
// {{sp_metric_value}}) with "?", collecting their bound values in order.
func expand(tmpl string, f dispatchFields) (string, []interface{}, error) {
	var binds []interface{}
	var expandErr error

	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(tok string) string {
		name := strings.TrimSpace(tok[2 : len(tok)-2])
		lit, isMarker, bind, err := resolvePlaceholder(name, f)
		if err != nil {
			expandErr = err
			return tok
		}
		if isMarker {
			binds = append(binds, bind)
			return "?"
		}
		return lit
	})
	if expandErr != nil {
		return "", nil, expandErr
	}
	return out, binds, nil
}

// resolvePlaceholder returns either a literal substitution string, or
// (isMarker=true, bind) for the two byte-bound placeholders.
func resolvePlaceholder(name string, f dispatchFields) (literal string, isMarker bool, bind interface{}, err error) {
	switch name {
	case "topic":
		return f.topic, false, nil, nil
	case "retain":
		if f.retain {
			return "1", false, nil, nil
		}
		return "0", false, nil, nil
	case "qos":
		return strconv.Itoa(int(f.qos)), false, nil, nil
	case "created_at":
		return strconv.FormatInt(f.now.Unix(), 10), false, nil, nil
	case "created_at_millis":
		return strconv.FormatInt(f.now.UnixMilli(), 10), false, nil, nil
	case "created_at_iso":
		return "'" + f.now.UTC().Format("2006-01-02 15:04:05.000") + "'", false, nil, nil
	case "payload":
		return "", true, f.payloadBytes, nil

	case "sp_version":
		if f.hasSparkplugTopic {
			return "'" + f.sp.Namespace + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_message_type":
		if f.hasSparkplugTopic {
			return "'" + string(f.sp.MessageType) + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_group_id":
		if f.hasSparkplugTopic {
			return "'" + f.sp.Group + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_edge_node_id":
		if f.hasSparkplugTopic {
			return "'" + f.sp.EdgeNode + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_device_id":
		if f.hasSparkplugTopic && f.sp.HasDevice {
			return "'" + f.sp.Device + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_host_id":
		if f.hasSparkplugTopic && f.sp.MessageType == sparkplug.STATE {
			return "'" + f.sp.EdgeNode + "'", false, nil, nil // STATE carries host_id in the EdgeNode slot, see sparkplug.ParseTopic
		}
		return "''", false, nil, nil
	case "sp_metric_level":
		if f.hasSparkplugTopic && len(f.sp.MetricLevels) > 0 {
			return "'" + strings.Join(f.sp.MetricLevels, "/") + "'", false, nil, nil
		}
		return "null", false, nil, nil
	case "sp_host_online":
		if f.hasHostState {
			if f.hostOnline {
				return "1", false, nil, nil
			}
			return "0", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_host_timestamp":
		if f.hasHostState {
			return strconv.FormatUint(f.hostTime, 10), false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_metric_name":
		if f.hasMetric {
			return "'" + f.metricName + "'", false, nil, nil
		}
		return "''", false, nil, nil
	case "sp_metric_value":
		if f.hasMetric {
			return "", true, f.metricValue, nil
		}
		return "", true, []byte(nil), nil

	default:
		return "", false, nil, fmt.Errorf("unknown sql placeholder {{%s}}", name)
	}
}

// hostStateFromTree reads the "online"/"timestamp" fields of a decoded
// STATE JSON payload (spec §4.7).
func hostStateFromTree(tree interface{}) (online bool, ts uint64, ok bool) {
	m, isMap := tree.(map[string]interface{})
	if !isMap {
		return false, 0, false
	}
	if v, present := m["online"]; present {
		online, _ = v.(bool)
	}
	if v, present := m["timestamp"]; present {
		switch n := v.(type) {
		case float64:
			ts = uint64(n)
		case int:
			ts = uint64(n)
		}
	}
	return online, ts, true
}
