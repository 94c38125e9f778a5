// Package sqlplan compiles a rename/filter/drop chain into a single
// SELECT statement so that an engine able to run SQL can do the cleaning
// itself instead of shipping rows to the process.
//
// A Plan tracks every output column together with the source column it is
// read from, so predicates written against renamed columns are emitted
// against the underlying source names (WHERE cannot see SELECT aliases).
package sqlplan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fhvclean/internal/frame"
)

// ErrNotPushable is returned when a predicate would compare a column whose
// type the engine orders differently than the in-process rules do, such as
// numbers stored as text.
var ErrNotPushable = errors.New("predicate cannot be pushed down")

// Dialect supplies identifier quoting for one SQL engine.
type Dialect interface {
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent(name string) string
	// QuoteTable quotes a possibly qualified table name.
	QuoteTable(name string) string
}

// Step contributes one transformation to a Plan.
type Step interface {
	Plan(p *Plan) error
}

// Op is a predicate operator.
type Op int

const (
	OpNotNull Op = iota + 1
	OpGreaterThan
	OpNotBefore
)

// Cond is a single predicate over source columns.
type Cond struct {
	Op     Op
	Column string // source column
	Other  string // source column compared against (OpNotBefore)
	Value  int64  // literal bound (OpGreaterThan)
}

type binding struct {
	name   string // output name
	source string // source column name
	kind   frame.Kind
	dbType string
}

// Plan is a compiled SELECT over a single table.
type Plan struct {
	table string
	cols  []binding
	where []Cond
}

// New starts a plan reading every column of table.
func New(table string, cols []frame.Column) *Plan {
	p := &Plan{table: table, cols: make([]binding, len(cols))}
	for i, c := range cols {
		p.cols[i] = binding{name: c.Name, source: c.Name, kind: c.Kind, dbType: c.DBType}
	}
	return p
}

// Compile builds a plan for table by applying steps in order.
func Compile(table string, cols []frame.Column, steps ...Step) (*Plan, error) {
	p := New(table, cols)
	for _, s := range steps {
		if err := s.Plan(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Plan) resolve(name string) (int, error) {
	for i, b := range p.cols {
		if b.name == name {
			return i, nil
		}
	}
	for i, b := range p.cols {
		if frame.SameName(b.name, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("sqlplan: %q: %w", name, frame.ErrColumnNotFound)
}

// Rename gives the output column from the name to.
func (p *Plan) Rename(from, to string) error {
	i, err := p.resolve(from)
	if err != nil {
		return err
	}
	if j, err := p.resolve(to); err == nil && j != i {
		return fmt.Errorf("sqlplan: rename %q to %q: %w", from, to, frame.ErrColumnExists)
	}
	p.cols[i].name = to
	return nil
}

// Drop removes output columns; unknown names are ignored.
func (p *Plan) Drop(names ...string) {
	out := p.cols[:0]
	for _, b := range p.cols {
		dropped := false
		for _, n := range names {
			if frame.SameName(b.name, n) {
				dropped = true
				break
			}
		}
		if !dropped {
			out = append(out, b)
		}
	}
	p.cols = out
}

// NotNull requires col to be non-null.
func (p *Plan) NotNull(col string) error {
	i, err := p.resolve(col)
	if err != nil {
		return err
	}
	p.where = append(p.where, Cond{Op: OpNotNull, Column: p.cols[i].source})
	return nil
}

// GreaterThan requires col > v. col must be numeric.
func (p *Plan) GreaterThan(col string, v int64) error {
	i, err := p.resolve(col)
	if err != nil {
		return err
	}
	if k := p.cols[i].kind; !numeric(k) {
		return fmt.Errorf("sqlplan: %q is %s: %w", col, k, ErrNotPushable)
	}
	p.where = append(p.where, Cond{Op: OpGreaterThan, Column: p.cols[i].source, Value: v})
	return nil
}

// NotBefore requires col >= ref. Both columns must be timestamps or both
// numeric.
func (p *Plan) NotBefore(col, ref string) error {
	i, err := p.resolve(col)
	if err != nil {
		return err
	}
	j, err := p.resolve(ref)
	if err != nil {
		return err
	}
	ki, kj := p.cols[i].kind, p.cols[j].kind
	if !(ki == frame.Timestamp && kj == frame.Timestamp) && !(numeric(ki) && numeric(kj)) {
		return fmt.Errorf("sqlplan: %q is %s and %q is %s: %w", col, ki, ref, kj, ErrNotPushable)
	}
	p.where = append(p.where, Cond{Op: OpNotBefore, Column: p.cols[i].source, Other: p.cols[j].source})
	return nil
}

func numeric(k frame.Kind) bool { return k == frame.Int || k == frame.Float }

// Columns returns the output schema.
func (p *Plan) Columns() []frame.Column {
	out := make([]frame.Column, len(p.cols))
	for i, b := range p.cols {
		out[i] = frame.Column{Name: b.name, Kind: b.kind, DBType: b.dbType}
	}
	return out
}

// Conds returns the predicates in the order they were added.
func (p *Plan) Conds() []Cond { return append([]Cond(nil), p.where...) }

// Render emits the SELECT statement for d.
func (p *Plan) Render(d Dialect) (string, error) {
	if len(p.cols) == 0 {
		return "", errors.New("sqlplan: no output columns")
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, b := range p.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdent(b.source))
		if b.name != b.source {
			sb.WriteString(" AS ")
			sb.WriteString(d.QuoteIdent(b.name))
		}
	}
	sb.WriteString(" FROM ")
	sb.WriteString(d.QuoteTable(p.table))

	for i, c := range p.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		switch c.Op {
		case OpNotNull:
			sb.WriteString(d.QuoteIdent(c.Column) + " IS NOT NULL")
		case OpGreaterThan:
			sb.WriteString(d.QuoteIdent(c.Column) + " > " + strconv.FormatInt(c.Value, 10))
		case OpNotBefore:
			sb.WriteString(d.QuoteIdent(c.Column) + " >= " + d.QuoteIdent(c.Other))
		default:
			return "", fmt.Errorf("sqlplan: unknown operator %d", c.Op)
		}
	}
	return sb.String(), nil
}
