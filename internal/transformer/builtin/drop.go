package builtin

import (
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// Drop removes columns. Columns that are already absent are ignored.
type Drop struct {
	Columns []string
}

// Apply drops the columns from f in place.
func (d Drop) Apply(f *frame.Frame) (*frame.Frame, error) {
	f.Drop(d.Columns...)
	return f, nil
}

// Plan implements sqlplan.Step.
func (d Drop) Plan(p *sqlplan.Plan) error {
	p.Drop(d.Columns...)
	return nil
}
