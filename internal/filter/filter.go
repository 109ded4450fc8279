// Package filter implements the ordered filter pipeline of spec §4.3: each
// stage declares a required input Kind, the chain auto-coerces the current
// payload into that Kind via payload.Convert before invoking the stage, and
// a stage may fan a single input out into zero, one, or many outputs (only
// ExtractJson does, today).
package filter

import (
	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/payload"
)

// Kind is the coarse payload category a filter declares for its input, per
// spec §3's Filter type.
type Kind int

const (
	KindJSON Kind = iota
	KindText
	KindAny
)

// Filter is one stage of a chain. Apply receives the active conversion
// Options so stages like ToText/ToJson can invoke payload.Convert themselves
// rather than relying solely on the chain's input-kind coercion.
type Filter interface {
	Name() string
	InputKind() Kind
	Apply(p payload.Payload, opts payload.Options) ([]payload.Payload, error)
}

// Chain is an ordered sequence of Filters with automatic coercion inserted
// between stages. An empty chain is the identity function.
type Chain struct {
	filters []Filter
}

// NewChain builds a Chain from an ordered filter list.
func NewChain(filters ...Filter) Chain {
	return Chain{filters: filters}
}

// Run executes the chain over a set of input payloads (normally one, unless
// an earlier chain already fanned out), returning the resulting payloads or
// the first coercion/filter failure encountered.
func (c Chain) Run(inputs []payload.Payload, opts payload.Options) ([]payload.Payload, error) {
	current := inputs
	for _, f := range c.filters {
		var next []payload.Payload
		for _, p := range current {
			coerced := p
			if target, ok := kindTarget(f.InputKind()); ok {
				converted, err := payload.Convert(p, target, opts)
				if err != nil {
					return nil, &errs.FilterError{Filter: f.Name(), Cause: err}
				}
				coerced = converted
			}
			outs, err := f.Apply(coerced, opts)
			if err != nil {
				return nil, &errs.FilterError{Filter: f.Name(), Cause: err}
			}
			next = append(next, outs...)
		}
		current = next
	}
	return current, nil
}

func kindTarget(k Kind) (payload.Kind, bool) {
	switch k {
	case KindJSON:
		return payload.JSON, true
	case KindText:
		return payload.Text, true
	default:
		return 0, false
	}
}
