package query

import (
	"fmt"

	"github.com/pxql/pxql/internal/record"
)

// Condition is an unparsed (field, operator, value) triple as supplied by
// callers.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Predicate is a validated condition.
type Predicate struct {
	Field    string
	Operator Operator
	Value    record.Value
}

func (p Predicate) String() string {
	if p.Value.Kind() == record.KindText || p.Value.Kind() == record.KindDate {
		return fmt.Sprintf("%s %s %q", p.Field, p.Operator, p.Value.String())
	}
	if p.Value.IsNull() {
		return fmt.Sprintf("%s %s null", p.Field, p.Operator)
	}
	return fmt.Sprintf("%s %s %s", p.Field, p.Operator, p.Value.String())
}

// matches fails when the row lacks the field or the values are
// incomparable.
func (p Predicate) matches(row record.Row) bool {
	actual, ok := row.Get(p.Field)
	if !ok {
		return false
	}
	cmp, ok := record.Compare(actual, p.Value)
	if !ok {
		return false
	}
	return p.Operator.holds(cmp)
}

type rowMatcher interface {
	matches(row record.Row) bool
}

// evaluate applies matchers as a conjunction, stopping at the first failure.
func evaluate(row record.Row, matchers []rowMatcher) bool {
	for _, m := range matchers {
		if !m.matches(row) {
			return false
		}
	}
	return true
}

func newPredicate(c Condition) (Predicate, error) {
	if c.Field == "" {
		return Predicate{}, fmt.Errorf("%w: field name is required", ErrInvalidPredicate)
	}
	op, err := ParseOperator(c.Operator)
	if err != nil {
		return Predicate{}, err
	}
	value, err := record.LiteralOf(c.Value)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: %v", ErrInvalidPredicate, err)
	}
	return Predicate{Field: c.Field, Operator: op, Value: value}, nil
}
