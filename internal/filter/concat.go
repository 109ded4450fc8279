package filter

import "github.com/kaans/mqtli/internal/payload"

// Prepend and Append perform string concatenation in Text, per spec §4.3.
type Prepend struct {
	Content string
}

func (f *Prepend) Name() string    { return "prepend" }
func (f *Prepend) InputKind() Kind { return KindText }

func (f *Prepend) Apply(p payload.Payload, _ payload.Options) ([]payload.Payload, error) {
	return []payload.Payload{payload.NewText(f.Content + p.TextString())}, nil
}

type Append struct {
	Content string
}

func (f *Append) Name() string    { return "append" }
func (f *Append) InputKind() Kind { return KindText }

func (f *Append) Apply(p payload.Payload, _ payload.Options) ([]payload.Payload, error) {
	return []payload.Payload{payload.NewText(p.TextString() + f.Content)}, nil
}
