package builtin

import (
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// NotNull returns a rule rejecting rows whose column is NULL.
func NotNull(column string) Rule { return notNull{column} }

type notNull struct{ column string }

func (r notNull) Name() string { return "not_null:" + r.column }

func (r notNull) Bind(f *frame.Frame) (Check, error) {
	i, err := f.Index(r.column)
	if err != nil {
		return nil, err
	}
	return func(row []any) bool { return row[i] != nil }, nil
}

func (r notNull) Plan(p *sqlplan.Plan) error { return p.NotNull(r.column) }

// Positive returns a rule rejecting rows whose column is NULL, not a number,
// or not strictly greater than zero.
func Positive(column string) Rule { return positive{column} }

type positive struct{ column string }

func (r positive) Name() string { return "positive:" + r.column }

func (r positive) Bind(f *frame.Frame) (Check, error) {
	i, err := f.Index(r.column)
	if err != nil {
		return nil, err
	}
	return func(row []any) bool {
		n, ok := frame.AsFloat64(row[i])
		return ok && n > 0
	}, nil
}

func (r positive) Plan(p *sqlplan.Plan) error { return p.GreaterThan(r.column, 0) }

// NotBefore returns a rule rejecting rows where column is earlier than
// reference. Rows where either side is NULL or not a timestamp are rejected
// too, matching SQL comparison semantics.
func NotBefore(column, reference string) Rule { return notBefore{column, reference} }

type notBefore struct{ column, reference string }

func (r notBefore) Name() string { return "not_before:" + r.column + ">=" + r.reference }

func (r notBefore) Bind(f *frame.Frame) (Check, error) {
	i, err := f.Index(r.column)
	if err != nil {
		return nil, err
	}
	j, err := f.Index(r.reference)
	if err != nil {
		return nil, err
	}
	return func(row []any) bool {
		a, ok := frame.AsTime(row[i])
		if !ok {
			return false
		}
		b, ok := frame.AsTime(row[j])
		if !ok {
			return false
		}
		return !a.Before(b)
	}, nil
}

func (r notBefore) Plan(p *sqlplan.Plan) error { return p.NotBefore(r.column, r.reference) }
