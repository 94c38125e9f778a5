package builtin

import (
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// Check reports whether a row passes a rule.
type Check func(row []any) bool

// Rule is a single row-level quality predicate.
type Rule interface {
	// Name identifies the rule in rejection counts, e.g. "positive:pulocation_id".
	Name() string
	// Bind resolves the rule's columns against the frame schema.
	Bind(f *frame.Frame) (Check, error)
	sqlplan.Step
}

// Rejected describes a row removed by Filter.
type Rejected struct {
	Rule string
	Row  []any
}

// Filter keeps rows that satisfy every rule. Membership is a pure
// conjunction; the rule named in Rejected is the first failing one in
// configured order.
type Filter struct {
	Rules  []Rule
	Reject func(Rejected) // optional sink
}

// Apply filters f in place. All rules are bound before any row is examined,
// so a rule naming a missing column fails without touching the frame.
func (flt Filter) Apply(f *frame.Frame) (*frame.Frame, error) {
	checks := make([]Check, len(flt.Rules))
	for i, r := range flt.Rules {
		c, err := r.Bind(f)
		if err != nil {
			return nil, err
		}
		checks[i] = c
	}

	f.Filter(func(row []any) bool {
		for i, c := range checks {
			if !c(row) {
				if flt.Reject != nil {
					flt.Reject(Rejected{Rule: flt.Rules[i].Name(), Row: row})
				}
				return false
			}
		}
		return true
	})
	return f, nil
}

// Plan implements sqlplan.Step.
func (flt Filter) Plan(p *sqlplan.Plan) error {
	for _, r := range flt.Rules {
		if err := r.Plan(p); err != nil {
			return err
		}
	}
	return nil
}
