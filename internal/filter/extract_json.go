package filter

import (
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"github.com/kaans/mqtli/internal/payload"
)

// ExtractJSON evaluates a JSONPath expression against a JSON payload. A
// multi-match result fans out into one downstream payload per element; a
// single-value result passes through as one payload; zero matches drop the
// message entirely, per spec §4.3.
type ExtractJSON struct {
	Path string
}

func (f *ExtractJSON) Name() string    { return "extract_json" }
func (f *ExtractJSON) InputKind() Kind { return KindJSON }

func (f *ExtractJSON) Apply(p payload.Payload, _ payload.Options) ([]payload.Payload, error) {
	result, err := jsonpath.Get(f.Path, p.Tree())
	if err != nil {
		return nil, fmt.Errorf("jsonpath %q: %w", f.Path, err)
	}
	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, nil
		}
		out := make([]payload.Payload, len(arr))
		for i, v := range arr {
			out[i] = payload.NewJSON(v)
		}
		return out, nil
	}
	return []payload.Payload{payload.NewJSON(result)}, nil
}
