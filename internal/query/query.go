package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pxql/pxql/internal/record"
)

// NoLimitSet is the limit of a query whose limit was never configured. Such a
// query, like one limited to zero rows, returns nothing.
const NoLimitSet = -1

// FieldSet is the ordered, duplicate-free list of projected fields.
type FieldSet struct {
	names []string
}

// AllFields is the empty field set: rows are returned unprojected.
var AllFields = FieldSet{}

// IsAll reports whether no field was selected, meaning every field is kept.
func (f FieldSet) IsAll() bool {
	return len(f.names) == 0
}

// Names returns a copy of the selected field names in selection order.
func (f FieldSet) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

func (f FieldSet) contains(name string) bool {
	for _, existing := range f.names {
		if existing == name {
			return true
		}
	}
	return false
}

// Spec is a snapshot of a query's configuration.
type Spec struct {
	Fields     FieldSet
	Predicates []Predicate
	Limit      int
	Offset     int
}

// Result holds the rows of one execution together with scan counters.
type Result struct {
	Rows     []record.Row
	Scanned  int
	Matched  int
	Duration time.Duration
}

// Query accumulates a select/where/limit configuration and executes it
// against one store. Configuration methods return the receiver for chaining.
// The first configuration error is kept and reported by Err, Get and Execute.
type Query struct {
	store      record.Store
	fields     FieldSet
	predicates []rowMatcher
	limit      int
	offset     int
	err        error
}

// New returns an unconfigured query over store.
func New(store record.Store) *Query {
	return &Query{store: store, fields: AllFields, limit: NoLimitSet}
}

// Select adds fields to the projection. Each argument may be a single name or
// a comma-separated list. Blank and already-selected names are ignored.
func (q *Query) Select(fields ...string) *Query {
	for _, arg := range fields {
		for _, name := range strings.Split(arg, ",") {
			q.addField(strings.TrimSpace(name))
		}
	}
	return q
}

// SelectValues adds the string entries of values to the projection and skips
// everything else.
func (q *Query) SelectValues(values []any) *Query {
	for _, value := range values {
		name, ok := value.(string)
		if !ok {
			continue
		}
		q.addField(strings.TrimSpace(name))
	}
	return q
}

func (q *Query) addField(name string) {
	if name == "" || q.fields.contains(name) {
		return
	}
	q.fields.names = append(q.fields.names, name)
}

// Where adds one predicate to the conjunction.
func (q *Query) Where(field, operator string, value any) *Query {
	return q.WhereAll([]Condition{{Field: field, Operator: operator, Value: value}})
}

// WhereAll adds every condition to the conjunction, stopping at the first
// invalid one.
func (q *Query) WhereAll(conditions []Condition) *Query {
	for _, condition := range conditions {
		predicate, err := newPredicate(condition)
		if err != nil {
			q.fail(fmt.Errorf("where predicate %d (%s %s %v): %w", len(q.predicates), condition.Field, condition.Operator, condition.Value, err))
			continue
		}
		q.predicates = append(q.predicates, predicate)
	}
	return q
}

// Limit caps the number of returned rows. The offset is left unchanged.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.fail(fmt.Errorf("%w: limit %d is negative", ErrInvalidLimit, n))
		return q
	}
	q.limit = n
	return q
}

// LimitOffset skips the first offset matching rows and returns at most n of
// the rest.
func (q *Query) LimitOffset(offset, n int) *Query {
	if offset < 0 {
		q.fail(fmt.Errorf("%w: offset %d is negative", ErrInvalidLimit, offset))
		return q
	}
	q.offset = offset
	return q.Limit(n)
}

func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Err returns the first configuration error, if any.
func (q *Query) Err() error {
	return q.err
}

// Spec returns a copy of the current configuration.
func (q *Query) Spec() Spec {
	predicates := make([]Predicate, 0, len(q.predicates))
	for _, m := range q.predicates {
		if p, ok := m.(Predicate); ok {
			predicates = append(predicates, p)
		}
	}
	return Spec{
		Fields:     FieldSet{names: q.fields.Names()},
		Predicates: predicates,
		Limit:      q.limit,
		Offset:     q.offset,
	}
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.fields.IsAll() {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.fields.names, ", "))
	}
	spec := q.Spec()
	if len(spec.Predicates) > 0 {
		parts := make([]string, 0, len(spec.Predicates))
		for _, p := range spec.Predicates {
			parts = append(parts, p.String())
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}
	switch {
	case q.limit == NoLimitSet:
	case q.offset > 0:
		fmt.Fprintf(&b, " LIMIT %d, %d", q.offset, q.limit)
	default:
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	return b.String()
}

// Get executes the query and returns only the rows.
func (q *Query) Get(ctx context.Context) ([]record.Row, error) {
	result, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// Execute scans the store in ordinal order. Matching rows are counted against
// the offset first; rows past the offset are projected and collected until
// the limit is reached or the store is exhausted.
func (q *Query) Execute(ctx context.Context) (Result, error) {
	if q.err != nil {
		return Result{}, q.err
	}
	if q.store == nil {
		return Result{}, ErrStoreRequired
	}

	start := time.Now()
	result := Result{Rows: make([]record.Row, 0)}
	if q.limit <= 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	total, err := q.store.RecordCount(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count records: %w", err)
	}

	skip := q.offset
	for ordinal := 0; ordinal < total && len(result.Rows) < q.limit; ordinal++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("scan stopped at record %d: %w", ordinal, err)
		}
		row, err := q.store.RetrieveRecord(ctx, ordinal)
		if err != nil {
			return Result{}, &ReadError{Ordinal: ordinal, Err: err}
		}
		result.Scanned++
		if !evaluate(row, q.predicates) {
			continue
		}
		result.Matched++
		if skip > 0 {
			skip--
			continue
		}
		result.Rows = append(result.Rows, row.Project(q.fields.names))
	}

	result.Duration = time.Since(start)
	return result, nil
}
