package payload

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/sparkplug"
)

// FromWire constructs a Payload from wire bytes according to the declared
// FormatSpec kind (spec §4.5 step 1: "construct a Payload from payload_bytes
// using the entry's payload.kind"). This is literal deserialization, not the
// Raw→kind conversion in Convert: a Text-kind topic's bytes are read as
// UTF-8 text outright, they are not hex-rendered per raw_as.
func FromWire(kind Kind, data []byte, opts Options) (Payload, error) {
	switch kind {
	case Raw:
		return NewRaw(data), nil

	case Text:
		return NewText(strings.ToValidUTF8(string(data), "�")), nil

	case Hex:
		s := strings.ToLower(strings.TrimSpace(string(data)))
		if _, err := hex.DecodeString(s); err != nil {
			return Payload{}, errs.NewConvertError(errs.InvalidHex, err)
		}
		return Payload{kind: Hex, hex: s}, nil

	case Base64:
		s := string(data)
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return Payload{}, errs.NewConvertError(errs.InvalidBase64, err)
		}
		return Payload{kind: Base64, b64: s}, nil

	case JSON:
		var tree interface{}
		if err := json.Unmarshal(data, &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.ParseError, err)
		}
		return NewJSON(tree), nil

	case YAML:
		var tree interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.ParseError, err)
		}
		return NewYAML(tree), nil

	case Protobuf:
		md, err := resolveDescriptor(opts)
		if err != nil {
			return Payload{}, err
		}
		m, err := protobufDecode(md, data)
		if err != nil {
			return Payload{}, err
		}
		return NewProtobuf(m), nil

	case Sparkplug:
		sp, err := sparkplug.Decode(data)
		if err != nil {
			return Payload{}, err
		}
		return NewSparkplug(sp), nil
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

// Serialize dumps the Payload's current representation to wire bytes for
// its own Kind — no conversion semantics, used after Convert has already
// produced a Payload of the desired output kind.
func (p Payload) Serialize() ([]byte, error) {
	switch p.kind {
	case Raw:
		return p.raw, nil
	case Text:
		return []byte(p.text), nil
	case Hex:
		return []byte(p.hex), nil
	case Base64:
		return []byte(p.b64), nil
	case JSON:
		b, err := json.Marshal(p.tree)
		if err != nil {
			return nil, errs.NewConvertError(errs.StructuralError, err)
		}
		return b, nil
	case YAML:
		b, err := yaml.Marshal(p.tree)
		if err != nil {
			return nil, errs.NewConvertError(errs.StructuralError, err)
		}
		return b, nil
	case Protobuf:
		return p.pb.Encode()
	case Sparkplug:
		return p.sp.Encode()
	}
	return nil, errs.NewConvertError(errs.UnsupportedConversion, nil)
}
