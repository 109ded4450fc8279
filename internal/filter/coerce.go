package filter

import "github.com/kaans/mqtli/internal/payload"

// ToText and ToJson force the payload into the named Kind by calling the
// conversion matrix (payload.Convert) themselves. Their InputKind is KindAny
// so the chain never pre-coerces on their behalf, per spec §4.3.
type ToText struct{}

func (ToText) Name() string    { return "to_text" }
func (ToText) InputKind() Kind { return KindAny }

func (ToText) Apply(p payload.Payload, opts payload.Options) ([]payload.Payload, error) {
	out, err := payload.Convert(p, payload.Text, opts)
	if err != nil {
		return nil, err
	}
	return []payload.Payload{out}, nil
}

type ToJson struct{}

func (ToJson) Name() string    { return "to_json" }
func (ToJson) InputKind() Kind { return KindAny }

func (ToJson) Apply(p payload.Payload, opts payload.Options) ([]payload.Payload, error) {
	out, err := payload.Convert(p, payload.JSON, opts)
	if err != nil {
		return nil, err
	}
	return []payload.Payload{out}, nil
}
