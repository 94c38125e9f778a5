// Package builtin contains the transformers used by the silver cleaner:
// column renames, quality filtering, and column drops.
package builtin

import (
	"sort"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// Rename renames columns. Every source column must exist.
type Rename struct {
	// Columns maps source name to new name.
	Columns map[string]string
}

// pairs returns the renames in a stable order.
func (r Rename) pairs() [][2]string {
	from := make([]string, 0, len(r.Columns))
	for k := range r.Columns {
		from = append(from, k)
	}
	sort.Strings(from)
	out := make([][2]string, len(from))
	for i, k := range from {
		out[i] = [2]string{k, r.Columns[k]}
	}
	return out
}

// Apply renames the columns of f in place.
func (r Rename) Apply(f *frame.Frame) (*frame.Frame, error) {
	for _, p := range r.pairs() {
		if err := f.Rename(p[0], p[1]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Plan implements sqlplan.Step.
func (r Rename) Plan(p *sqlplan.Plan) error {
	for _, pr := range r.pairs() {
		if err := p.Rename(pr[0], pr[1]); err != nil {
			return err
		}
	}
	return nil
}
