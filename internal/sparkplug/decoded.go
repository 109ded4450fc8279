package sparkplug

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"

	"github.com/kaans/mqtli/internal/protobuf"
)

// Metric datatype codes per Eclipse Sparkplug B 3.0.0 §6.4.16.
const (
	DTInt8 = iota + 1
	DTInt16
	DTInt32
	DTInt64
	DTUInt8
	DTUInt16
	DTUInt32
	DTUInt64
	DTFloat
	DTDouble
	DTBoolean
	DTString
	DTDateTime
	DTText
	DTUUID
	DTDataSet
	DTBytes
	DTFile
	DTTemplate
)

// Metric is the structured per-metric view named in spec §4.2: name, alias,
// timestamp and datatype are optional per the schema; Value dispatches on
// Datatype into one of int/uint/float/double/bool/string/bytes/dataset/
// template/extension.
type Metric struct {
	Name      string
	HasAlias  bool
	Alias     uint64
	HasTime   bool
	Timestamp uint64
	Datatype  uint32
	Category  string
	Value     interface{}
	dyn       *dynamic.Message
}

// Decoded is a Sparkplug-B payload decoded under the fixed embedded schema.
type Decoded struct {
	msg       *protobuf.Message
	Metrics   []Metric
	HasSeq    bool
	Seq       uint64
	Timestamp uint64
	HasTime   bool
}

// Decode parses Sparkplug-B wire bytes into a Decoded payload.
func Decode(data []byte) (*Decoded, error) {
	md, err := payloadDescriptor()
	if err != nil {
		return nil, err
	}
	m, err := protobuf.Decode(md, data)
	if err != nil {
		return nil, err
	}
	return fromMessage(m), nil
}

// DecodeJSON parses a JSON rendering of the Sparkplug payload (used for the
// JSON/YAML → Sparkplug conversion cells).
func DecodeJSON(data []byte) (*Decoded, error) {
	md, err := payloadDescriptor()
	if err != nil {
		return nil, err
	}
	m, err := protobuf.DecodeJSON(md, data)
	if err != nil {
		return nil, err
	}
	return fromMessage(m), nil
}

func fromMessage(m *protobuf.Message) *Decoded {
	d := &Decoded{msg: m}
	dyn := m.Dynamic()

	if dyn.HasFieldName("timestamp") {
		if v, err := dyn.TryGetFieldByName("timestamp"); err == nil {
			d.Timestamp, d.HasTime = v.(uint64)
		}
	}
	if dyn.HasFieldName("seq") {
		if v, err := dyn.TryGetFieldByName("seq"); err == nil {
			d.Seq, d.HasSeq = v.(uint64)
		}
	}

	metricFD := m.Desc.FindFieldByName("metrics")
	if metricFD == nil {
		return d
	}
	raw, err := dyn.TryGetField(metricFD)
	if err != nil {
		return d
	}
	list, ok := raw.([]interface{})
	if !ok {
		return d
	}
	metricMD := metricFD.GetMessageType()
	for _, item := range list {
		metricDyn, ok := item.(*dynamic.Message)
		if !ok {
			continue
		}
		d.Metrics = append(d.Metrics, extractMetric(metricDyn, metricMD))
	}
	return d
}

func extractMetric(dyn *dynamic.Message, md *desc.MessageDescriptor) Metric {
	var met Metric
	met.dyn = dyn

	if dyn.HasFieldName("name") {
		if v, _ := dyn.TryGetFieldByName("name"); v != nil {
			met.Name, _ = v.(string)
		}
	}
	if dyn.HasFieldName("alias") {
		if v, _ := dyn.TryGetFieldByName("alias"); v != nil {
			met.Alias, met.HasAlias = v.(uint64)
		}
	}
	if dyn.HasFieldName("timestamp") {
		if v, _ := dyn.TryGetFieldByName("timestamp"); v != nil {
			met.Timestamp, met.HasTime = v.(uint64)
		}
	}
	if v, _ := dyn.TryGetFieldByName("datatype"); v != nil {
		met.Datatype, _ = v.(uint32)
	}

	met.Category, met.Value = metricValue(dyn, md, met.Datatype)
	return met
}

// metricValue reads whichever oneof case of Metric.value is set and
// categorizes it per the int/uint/float/double/bool/string/bytes/dataset/
// template/extension dispatch named in spec §4.2. Missing fields default to
// the zero value of their category, per Sparkplug-B optional-field rules.
func metricValue(dyn *dynamic.Message, md *desc.MessageDescriptor, datatype uint32) (string, interface{}) {
	get := func(name string) (interface{}, bool) {
		fd := md.FindFieldByName(name)
		if fd == nil || !dyn.HasField(fd) {
			return nil, false
		}
		return dyn.GetField(fd), true
	}

	switch datatype {
	case DTInt8, DTInt16, DTInt32:
		if v, ok := get("int_value"); ok {
			return "int", int64(int32(v.(uint32)))
		}
		return "int", int64(0)
	case DTInt64:
		if v, ok := get("long_value"); ok {
			return "int", int64(v.(uint64))
		}
		return "int", int64(0)
	case DTUInt8, DTUInt16, DTUInt32:
		if v, ok := get("int_value"); ok {
			return "uint", uint64(v.(uint32))
		}
		return "uint", uint64(0)
	case DTUInt64, DTDateTime:
		if v, ok := get("long_value"); ok {
			return "uint", v.(uint64)
		}
		return "uint", uint64(0)
	case DTFloat:
		if v, ok := get("float_value"); ok {
			return "float", v.(float32)
		}
		return "float", float32(0)
	case DTDouble:
		if v, ok := get("double_value"); ok {
			return "double", v.(float64)
		}
		return "double", float64(0)
	case DTBoolean:
		if v, ok := get("boolean_value"); ok {
			return "bool", v.(bool)
		}
		return "bool", false
	case DTString, DTText, DTUUID:
		if v, ok := get("string_value"); ok {
			return "string", v.(string)
		}
		return "string", ""
	case DTBytes, DTFile:
		if v, ok := get("bytes_value"); ok {
			return "bytes", v.([]byte)
		}
		return "bytes", []byte(nil)
	case DTDataSet:
		if v, ok := get("dataset_value"); ok {
			return "dataset", v
		}
		return "dataset", nil
	case DTTemplate:
		if v, ok := get("template_value"); ok {
			return "template", v
		}
		return "template", nil
	default:
		if v, ok := get("extension_value"); ok {
			return "extension", v
		}
		return "extension", nil
	}
}

// Encode marshals the payload back to Sparkplug-B wire bytes.
func (d *Decoded) Encode() ([]byte, error) {
	return d.msg.Encode()
}

// EncodeJSON renders the payload's well-known JSON projection.
func (d *Decoded) EncodeJSON() ([]byte, error) {
	return d.msg.EncodeJSON()
}

// RenderText produces the human-readable "[field_no] name = value (type)"
// form used for the Sparkplug → Text conversion cell.
func (d *Decoded) RenderText() string {
	var sb strings.Builder
	if d.HasTime {
		fmt.Fprintf(&sb, "timestamp = %d\n", d.Timestamp)
	}
	if d.HasSeq {
		fmt.Fprintf(&sb, "seq = %d\n", d.Seq)
	}
	metrics := append([]Metric{}, d.Metrics...)
	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	for _, m := range metrics {
		fmt.Fprintf(&sb, "metric %s = %v (%s)\n", m.Name, m.Value, m.Category)
	}
	return sb.String()
}

// BytesOf renders a metric value as the byte representation bound to a SQL
// parameter marker for {{sp_metric_value}} (spec §4.7).
func (m Metric) BytesOf() []byte {
	switch v := m.Value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
