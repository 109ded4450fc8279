package filter

import "github.com/kaans/mqtli/internal/payload"

// ToUpper and ToLower perform ASCII-only case mapping; non-ASCII bytes pass
// through unchanged, per spec §4.3.
type ToUpper struct{}

func (ToUpper) Name() string    { return "to_upper" }
func (ToUpper) InputKind() Kind { return KindText }

func (ToUpper) Apply(p payload.Payload, _ payload.Options) ([]payload.Payload, error) {
	return []payload.Payload{payload.NewText(asciiUpper(p.TextString()))}, nil
}

type ToLower struct{}

func (ToLower) Name() string    { return "to_lower" }
func (ToLower) InputKind() Kind { return KindText }

func (ToLower) Apply(p payload.Payload, _ payload.Options) ([]payload.Payload, error) {
	return []payload.Payload{payload.NewText(asciiLower(p.TextString()))}, nil
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
