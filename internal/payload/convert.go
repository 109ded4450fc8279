package payload

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"gopkg.in/yaml.v3"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/protobuf"
	"github.com/kaans/mqtli/internal/sparkplug"
)

// Convert implements the total 8x8 conversion table of spec §4.1. It is the
// function both the filter pipeline's auto-coercion step and the topic
// engine's output/publish encoding step build on.
func Convert(p Payload, target Kind, opts Options) (Payload, error) {
	if p.kind == target {
		return p, nil
	}
	switch p.kind {
	case Raw, Hex, Base64:
		b, err := toRawBytes(p)
		if err != nil {
			return Payload{}, err
		}
		return fromRawBytes(b, target, opts)
	case Text:
		return convertFromText(p.text, target, opts)
	case JSON, YAML:
		return convertFromStructural(p, target, opts)
	case Protobuf:
		return convertFromProtobuf(p.pb, target, opts)
	case Sparkplug:
		return convertFromSparkplug(p.sp, target, opts)
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, fmt.Errorf("unknown source kind"))
}

// --- binary-like group (Raw/Hex/Base64 behave identically once decoded) ---

func toRawBytes(p Payload) ([]byte, error) {
	switch p.kind {
	case Raw:
		return p.raw, nil
	case Hex:
		b, err := hex.DecodeString(p.hex)
		if err != nil {
			return nil, errs.NewConvertError(errs.InvalidHex, err)
		}
		return b, nil
	case Base64:
		b, err := base64.StdEncoding.DecodeString(p.b64)
		if err != nil {
			return nil, errs.NewConvertError(errs.InvalidBase64, err)
		}
		return b, nil
	}
	return nil, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

func fromRawBytes(b []byte, target Kind, opts Options) (Payload, error) {
	switch target {
	case Raw:
		return NewRaw(b), nil
	case Hex:
		return Payload{kind: Hex, hex: hex.EncodeToString(b)}, nil
	case Base64:
		return Payload{kind: Base64, b64: base64.StdEncoding.EncodeToString(b)}, nil
	case Text:
		return NewText(encodeRawAs(b, opts.RawAs)), nil
	case JSON:
		return NewJSON(map[string]interface{}{"content": encodeRawAs(b, opts.RawAs)}), nil
	case YAML:
		return NewYAML(map[string]interface{}{"content": encodeRawAs(b, opts.RawAs)}), nil
	case Protobuf:
		md, err := resolveDescriptor(opts)
		if err != nil {
			return Payload{}, err
		}
		m, err := protobufDecode(md, b)
		if err != nil {
			return Payload{}, err
		}
		return NewProtobuf(m), nil
	case Sparkplug:
		sp, err := sparkplug.Decode(b)
		if err != nil {
			return Payload{}, err
		}
		return NewSparkplug(sp), nil
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

func encodeRawAs(b []byte, as RawAs) string {
	switch as {
	case RawAsBase64:
		return base64.StdEncoding.EncodeToString(b)
	case RawAsUTF8:
		return strings.ToValidUTF8(string(b), "�")
	default: // RawAsHex
		return hex.EncodeToString(b)
	}
}

// --- Text source ---

func convertFromText(s string, target Kind, opts Options) (Payload, error) {
	switch target {
	case Raw:
		return NewRaw([]byte(s)), nil
	case Hex:
		lower := strings.ToLower(strings.TrimSpace(s))
		if _, err := hex.DecodeString(lower); err != nil {
			return Payload{}, errs.NewConvertError(errs.InvalidHex, err)
		}
		return Payload{kind: Hex, hex: lower}, nil
	case Base64:
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return Payload{}, errs.NewConvertError(errs.InvalidBase64, err)
		}
		return Payload{kind: Base64, b64: s}, nil
	case Text:
		return NewText(s), nil
	case JSON:
		var tree interface{}
		if err := json.Unmarshal([]byte(s), &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.ParseError, err)
		}
		return NewJSON(tree), nil
	case YAML:
		var tree interface{}
		if err := yaml.Unmarshal([]byte(s), &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.ParseError, err)
		}
		return NewYAML(tree), nil
	case Protobuf, Sparkplug:
		return Payload{}, errs.NewConvertError(errs.UnsupportedConversion,
			fmt.Errorf("text lacks structural framing for %s", target))
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

// --- JSON/YAML (structural) source ---

func convertFromStructural(p Payload, target Kind, opts Options) (Payload, error) {
	switch target {
	case Raw, Hex, Base64:
		b, err := contentFieldBytes(p.tree, opts.RawAs)
		if err != nil {
			return Payload{}, err
		}
		return fromRawBytes(b, target, opts)
	case Text:
		var b []byte
		var err error
		if p.kind == JSON {
			b, err = json.Marshal(p.tree)
		} else {
			b, err = yaml.Marshal(p.tree)
		}
		if err != nil {
			return Payload{}, errs.NewConvertError(errs.StructuralError, err)
		}
		return NewText(string(b)), nil
	case JSON:
		normalized, err := normalizeForJSON(p.tree)
		if err != nil {
			return Payload{}, err
		}
		return NewJSON(normalized), nil
	case YAML:
		return NewYAML(p.tree), nil
	case Protobuf:
		md, err := resolveDescriptor(opts)
		if err != nil {
			return Payload{}, err
		}
		jsonBytes, err := treeToJSONBytes(p.tree)
		if err != nil {
			return Payload{}, err
		}
		m, err := protobufDecodeJSON(md, jsonBytes)
		if err != nil {
			return Payload{}, err
		}
		return NewProtobuf(m), nil
	case Sparkplug:
		jsonBytes, err := treeToJSONBytes(p.tree)
		if err != nil {
			return Payload{}, err
		}
		sp, err := sparkplug.DecodeJSON(jsonBytes)
		if err != nil {
			return Payload{}, err
		}
		return NewSparkplug(sp), nil
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

func treeToJSONBytes(tree interface{}) ([]byte, error) {
	normalized, err := normalizeForJSON(tree)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, errs.NewConvertError(errs.StructuralError, err)
	}
	return b, nil
}

// contentFieldBytes implements the reverse of the "Binary → JSON/YAML"
// rule: a top-level object with a string "content" field, decoded per
// raw_as. Anything else fails MissingContentField.
func contentFieldBytes(tree interface{}, as RawAs) ([]byte, error) {
	obj, ok := asStringMap(tree)
	if !ok {
		return nil, errs.NewConvertError(errs.MissingContentField, fmt.Errorf("not an object"))
	}
	raw, ok := obj["content"]
	if !ok {
		return nil, errs.NewConvertError(errs.MissingContentField, fmt.Errorf("missing content field"))
	}
	content, ok := raw.(string)
	if !ok {
		return nil, errs.NewConvertError(errs.MissingContentField, fmt.Errorf("content field is not a string"))
	}
	switch as {
	case RawAsBase64:
		b, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, errs.NewConvertError(errs.InvalidBase64, err)
		}
		return b, nil
	case RawAsUTF8:
		return []byte(content), nil
	default:
		b, err := hex.DecodeString(content)
		if err != nil {
			return nil, errs.NewConvertError(errs.InvalidHex, err)
		}
		return b, nil
	}
}

func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// normalizeForJSON walks a YAML- or JSON-origin generic tree and returns an
// equivalent tree using only types encoding/json can marshal, failing with
// StructuralError on anything it can't represent (non-string map keys,
// NaN/Inf floats — valid YAML, not valid JSON).
func normalizeForJSON(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			nv, err := normalizeForJSON(val)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, errs.NewConvertError(errs.StructuralError, fmt.Errorf("non-string map key %v", k))
			}
			nv, err := normalizeForJSON(val)
			if err != nil {
				return nil, err
			}
			out[ks] = nv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			nv, err := normalizeForJSON(val)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, errs.NewConvertError(errs.StructuralError, fmt.Errorf("non-finite number %v", t))
		}
		return t, nil
	default:
		return t, nil
	}
}

// --- Protobuf source ---

func convertFromProtobuf(m *protobuf.Message, target Kind, opts Options) (Payload, error) {
	switch target {
	case Raw, Hex, Base64:
		b, err := m.Encode()
		if err != nil {
			return Payload{}, err
		}
		return fromRawBytes(b, target, Options{})
	case Text:
		return NewText(m.RenderText()), nil
	case JSON, YAML:
		jsonBytes, err := m.EncodeJSON()
		if err != nil {
			return Payload{}, err
		}
		var tree interface{}
		if err := json.Unmarshal(jsonBytes, &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.StructuralError, err)
		}
		if target == JSON {
			return NewJSON(tree), nil
		}
		return NewYAML(tree), nil
	case Protobuf:
		if opts.ProtoPool == nil {
			return NewProtobuf(m), nil
		}
		md, err := resolveDescriptor(opts)
		if err != nil {
			return Payload{}, err
		}
		b, err := m.Encode()
		if err != nil {
			return Payload{}, err
		}
		nm, err := protobufDecode(md, b)
		if err != nil {
			return Payload{}, err
		}
		return NewProtobuf(nm), nil
	case Sparkplug:
		b, err := m.Encode()
		if err != nil {
			return Payload{}, err
		}
		sp, err := sparkplug.Decode(b)
		if err != nil {
			return Payload{}, err
		}
		return NewSparkplug(sp), nil
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

// --- Sparkplug source ---

func convertFromSparkplug(s *sparkplug.Decoded, target Kind, opts Options) (Payload, error) {
	switch target {
	case Raw, Hex, Base64:
		b, err := s.Encode()
		if err != nil {
			return Payload{}, err
		}
		return fromRawBytes(b, target, Options{})
	case Text:
		return NewText(s.RenderText()), nil
	case JSON, YAML:
		jsonBytes, err := s.EncodeJSON()
		if err != nil {
			return Payload{}, err
		}
		var tree interface{}
		if err := json.Unmarshal(jsonBytes, &tree); err != nil {
			return Payload{}, errs.NewConvertError(errs.StructuralError, err)
		}
		if target == JSON {
			return NewJSON(tree), nil
		}
		return NewYAML(tree), nil
	case Protobuf:
		md, err := resolveDescriptor(opts)
		if err != nil {
			return Payload{}, err
		}
		b, err := s.Encode()
		if err != nil {
			return Payload{}, err
		}
		m, err := protobufDecode(md, b)
		if err != nil {
			return Payload{}, err
		}
		return NewProtobuf(m), nil
	case Sparkplug:
		return NewSparkplug(s), nil
	}
	return Payload{}, errs.NewConvertError(errs.UnsupportedConversion, nil)
}

// --- shared protobuf/sparkplug descriptor helpers ---

func resolveDescriptor(opts Options) (*desc.MessageDescriptor, error) {
	if opts.ProtoPool == nil {
		return nil, errs.NewConvertError(errs.ProtobufDecodeError, fmt.Errorf("no descriptor pool configured"))
	}
	md, err := opts.ProtoPool.ResolveMessage(opts.ProtoMessage)
	if err != nil {
		return nil, err
	}
	return md, nil
}

func protobufDecode(md *desc.MessageDescriptor, data []byte) (*protobuf.Message, error) {
	return protobuf.Decode(md, data)
}

func protobufDecodeJSON(md *desc.MessageDescriptor, data []byte) (*protobuf.Message, error) {
	return protobuf.DecodeJSON(md, data)
}
