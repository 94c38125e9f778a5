// Package transformer defines the frame-to-frame transformation contract and
// an ordered Chain of transformations.
//
// Every transformer that can also be expressed as SQL implements
// sqlplan.Step, which lets a Chain be compiled for engines that clean data
// in place.
package transformer

import (
	"fmt"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// Transformer rewrites a frame. Implementations may modify the input frame
// in place and return it.
type Transformer interface {
	Apply(f *frame.Frame) (*frame.Frame, error)
}

// Func adapts a plain function to Transformer.
type Func func(f *frame.Frame) (*frame.Frame, error)

// Apply calls fn.
func (fn Func) Apply(f *frame.Frame) (*frame.Frame, error) { return fn(f) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order, stopping at the first error.
func (c Chain) Apply(in *frame.Frame) (*frame.Frame, error) {
	out := in
	for i, t := range c {
		var err error
		if out, err = t.Apply(out); err != nil {
			return nil, fmt.Errorf("transform step %d (%T): %w", i, t, err)
		}
	}
	return out, nil
}

// Plan compiles the chain into p. Every element must implement sqlplan.Step.
func (c Chain) Plan(p *sqlplan.Plan) error {
	for i, t := range c {
		s, ok := t.(sqlplan.Step)
		if !ok {
			return fmt.Errorf("transform step %d (%T) has no SQL form", i, t)
		}
		if err := s.Plan(p); err != nil {
			return fmt.Errorf("transform step %d (%T): %w", i, t, err)
		}
	}
	return nil
}
