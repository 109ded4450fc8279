// Package payload implements the typed payload value described in spec §3
// and the total 8x8 conversion matrix of spec §4.1: Raw, Text, Hex, Base64,
// JSON, YAML, Protobuf and Sparkplug, with deterministic conversions between
// every pair that the table marks as defined.
package payload

import (
	"github.com/kaans/mqtli/internal/protobuf"
	"github.com/kaans/mqtli/internal/sparkplug"
)

// Kind identifies which case of the Payload sum type a value holds.
type Kind int

const (
	Raw Kind = iota
	Text
	Hex
	Base64
	JSON
	YAML
	Protobuf
	Sparkplug
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Text:
		return "text"
	case Hex:
		return "hex"
	case Base64:
		return "base64"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case Protobuf:
		return "protobuf"
	case Sparkplug:
		return "sparkplug"
	default:
		return "unknown"
	}
}

// RawAs controls how a binary-like value (Raw/Hex/Base64) is rendered when
// it needs to appear inside a textual form (Text, or the "content" field of
// JSON/YAML). Default is Hex.
type RawAs int

const (
	RawAsHex RawAs = iota
	RawAsBase64
	RawAsUTF8
)

// Options carries the per-conversion knobs from FormatSpec (spec §3):
// raw_as for Text/JSON/YAML targets, and the resolved descriptor + message
// name for Protobuf targets (Sparkplug needs no options, its schema is
// fixed).
type Options struct {
	RawAs        RawAs
	ProtoPool    *protobuf.Pool
	ProtoMessage string
}

// Payload is a closed tagged union over the eight cases in spec §3. Only the
// field(s) matching Kind are meaningful; the zero value is an empty Raw
// payload.
type Payload struct {
	kind Kind

	raw  []byte
	text string
	hex  string
	b64  string
	tree interface{} // generic JSON/YAML tree (map[string]interface{} / []interface{} / scalars)
	pb   *protobuf.Message
	sp   *sparkplug.Decoded
}

// Kind reports which case this Payload holds.
func (p Payload) Kind() Kind { return p.kind }

// NewRaw wraps raw bytes.
func NewRaw(b []byte) Payload {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Payload{kind: Raw, raw: cp}
}

// NewText wraps a UTF-8 string of Unicode scalar values.
func NewText(s string) Payload {
	return Payload{kind: Text, text: s}
}

// NewJSON wraps an already-decoded generic tree as a JSON payload.
func NewJSON(tree interface{}) Payload {
	return Payload{kind: JSON, tree: tree}
}

// NewYAML wraps an already-decoded generic tree as a YAML payload.
func NewYAML(tree interface{}) Payload {
	return Payload{kind: YAML, tree: tree}
}

// NewProtobuf wraps a descriptor-bound protobuf message.
func NewProtobuf(m *protobuf.Message) Payload {
	return Payload{kind: Protobuf, pb: m}
}

// NewSparkplug wraps a decoded Sparkplug-B payload.
func NewSparkplug(s *sparkplug.Decoded) Payload {
	return Payload{kind: Sparkplug, sp: s}
}

// RawBytes returns the raw bytes (valid only when Kind() == Raw).
func (p Payload) RawBytes() []byte { return p.raw }

// TextString returns the text (valid only when Kind() == Text).
func (p Payload) TextString() string { return p.text }

// Tree returns the generic tree (valid only when Kind() is JSON or YAML).
func (p Payload) Tree() interface{} { return p.tree }

// Proto returns the protobuf message (valid only when Kind() == Protobuf).
func (p Payload) Proto() *protobuf.Message { return p.pb }

// SparkplugPayload returns the decoded Sparkplug value (valid only when
// Kind() == Sparkplug).
func (p Payload) SparkplugPayload() *sparkplug.Decoded { return p.sp }
