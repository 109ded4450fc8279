package protobuf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/protobuf/jsonpb" //nolint:staticcheck // dynamic.Message's JSON path still speaks the v1 jsonpb interfaces.
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"

	"github.com/kaans/mqtli/internal/errs"
)

// Message is a descriptor-bound protobuf value: a decoded message plus the
// descriptor it was built against, so every conversion out of it (bytes,
// JSON, YAML, Text) stays tied to the schema that produced it.
type Message struct {
	Desc *desc.MessageDescriptor
	Name string
	dyn  *dynamic.Message
}

// New creates an empty message for the given descriptor.
func New(md *desc.MessageDescriptor) *Message {
	return &Message{Desc: md, Name: md.GetFullyQualifiedName(), dyn: dynamic.NewMessage(md)}
}

// Dynamic exposes the underlying dynamic message for packages (such as
// internal/sparkplug) that need field-level reflection beyond this type's
// own encode/decode surface.
func (m *Message) Dynamic() *dynamic.Message { return m.dyn }

// Decode unmarshals wire-format bytes into a new message bound to md.
func Decode(md *desc.MessageDescriptor, data []byte) (*Message, error) {
	m := New(md)
	if err := m.dyn.Unmarshal(data); err != nil {
		return nil, errs.NewConvertError(errs.ProtobufDecodeError, err)
	}
	return m, nil
}

// Encode marshals the message to wire-format bytes.
func (m *Message) Encode() ([]byte, error) {
	b, err := m.dyn.Marshal()
	if err != nil {
		return nil, errs.NewConvertError(errs.ProtobufEncodeError, err)
	}
	return b, nil
}

// jsonMarshaler/Unmarshaler control well-known-type projection and reject
// unknown fields on the way in, per spec §4.2/§4.1 ("unknown fields fail").
var jsonMarshaler = &jsonpb.Marshaler{EmitDefaults: false, OrigName: true}
var jsonUnmarshaler = &jsonpb.Unmarshaler{AllowUnknownFields: false}

// EncodeJSON renders the message as JSON text (bytes fields become base64
// strings, enums render by name, maps and repeated fields project
// naturally) via the descriptor's well-known JSON mapping.
func (m *Message) EncodeJSON() ([]byte, error) {
	s, err := jsonMarshaler.MarshalToString(m.dyn)
	if err != nil {
		return nil, errs.NewConvertError(errs.ProtobufEncodeError, err)
	}
	return []byte(s), nil
}

// DecodeJSON populates a new message of the given descriptor from JSON text.
// Unknown fields are rejected; enum values may be names or numbers.
func DecodeJSON(md *desc.MessageDescriptor, data []byte) (*Message, error) {
	m := New(md)
	if err := jsonUnmarshaler.Unmarshal(strings.NewReader(string(data)), m.dyn); err != nil {
		return nil, errs.NewConvertError(errs.ProtobufDecodeError, err)
	}
	return m, nil
}

// RenderText produces the "[field_no] name = value (type)" human-readable
// rendering required by spec §4.1 for Protobuf → Text.
func (m *Message) RenderText() string {
	var sb strings.Builder
	renderMessage(&sb, m.dyn, m.Desc, 0)
	return sb.String()
}

func renderMessage(sb *strings.Builder, dynMsg *dynamic.Message, md *desc.MessageDescriptor, indent int) {
	fields := append([]*desc.FieldDescriptor{}, md.GetFields()...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].GetNumber() < fields[j].GetNumber() })

	pad := strings.Repeat("  ", indent)
	for _, fd := range fields {
		if !dynMsg.HasField(fd) && !fd.IsRepeated() {
			continue
		}
		val := dynMsg.GetField(fd)
		renderField(sb, fd, val, pad, indent)
	}
}

func renderField(sb *strings.Builder, fd *desc.FieldDescriptor, val interface{}, pad string, indent int) {
	switch v := val.(type) {
	case []interface{}:
		for i, item := range v {
			fmt.Fprintf(sb, "%s[%d] %s[%d] = ", pad, fd.GetNumber(), fd.GetName(), i)
			renderScalarOrMessage(sb, fd, item, pad, indent)
		}
	case map[interface{}]interface{}:
		for k, item := range v {
			fmt.Fprintf(sb, "%s[%d] %s[%v] = ", pad, fd.GetNumber(), fd.GetName(), k)
			renderScalarOrMessage(sb, fd, item, pad, indent)
		}
	default:
		fmt.Fprintf(sb, "%s[%d] %s = ", pad, fd.GetNumber(), fd.GetName())
		renderScalarOrMessage(sb, fd, val, pad, indent)
	}
}

func renderScalarOrMessage(sb *strings.Builder, fd *desc.FieldDescriptor, val interface{}, pad string, indent int) {
	if nested, ok := val.(*dynamic.Message); ok {
		fmt.Fprintf(sb, "(%s)\n", fd.GetMessageType().GetName())
		renderMessage(sb, nested, fd.GetMessageType(), indent+1)
		return
	}
	typeName := fd.GetType().String()
	if fd.GetEnumType() != nil {
		if n, ok := val.(int32); ok {
			if evd := fd.GetEnumType().FindValueByNumber(n); evd != nil {
				fmt.Fprintf(sb, "%s (enum %s)\n", evd.GetName(), fd.GetEnumType().GetName())
				return
			}
		}
	}
	fmt.Fprintf(sb, "%v (%s)\n", val, typeName)
}
