package query

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pxql/pxql/internal/record"
	"github.com/pxql/pxql/internal/store/memory"
)

func statusStore() *memory.Store {
	statuses := []string{"A", "B", "A", "C", "A"}
	rows := make([]record.Row, 0, len(statuses))
	for i, status := range statuses {
		rows = append(rows, record.NewRow(
			record.NewField("id", record.Int(int64(i))),
			record.NewField("status", record.Text(status)),
			record.NewField("name", record.Text("row"+string(rune('0'+i)))),
		))
	}
	return memory.New(rows...)
}

func ids(t *testing.T, rows []record.Row) []string {
	t.Helper()
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		value, ok := row.Get("id")
		if !ok {
			t.Fatalf("row without id: %v", row.Names())
		}
		out = append(out, value.String())
	}
	return out
}

func TestGetReturnsFirstMatchesUpToLimit(t *testing.T) {
	rows, err := New(statusStore()).Where("status", "==", "A").Limit(2).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(t, rows); !reflect.DeepEqual(got, []string{"0", "2"}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestGetHonorsOffset(t *testing.T) {
	rows, err := New(statusStore()).Where("status", "==", "A").LimitOffset(1, 1).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(t, rows); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestOffsetWindowsMatchSequence(t *testing.T) {
	ctx := context.Background()
	all, err := New(statusStore()).Where("status", "!=", "Z").Limit(100).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	full := ids(t, all)
	for offset := 0; offset <= len(full); offset++ {
		for n := 0; n <= len(full)+1; n++ {
			rows, err := New(statusStore()).Where("status", "!=", "Z").LimitOffset(offset, n).Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			end := offset + n
			if end > len(full) {
				end = len(full)
			}
			want := full[offset:end]
			if got := ids(t, rows); !reflect.DeepEqual(got, want) && !(len(got) == 0 && len(want) == 0) {
				t.Fatalf("offset=%d n=%d ids = %v, want %v", offset, n, got, want)
			}
		}
	}
}

func TestGetWithoutLimitReturnsNothing(t *testing.T) {
	store := statusStore()
	q := New(store).Where("status", "==", "A")
	if q.Spec().Limit != NoLimitSet {
		t.Fatalf("Limit = %d, want NoLimitSet", q.Spec().Limit)
	}
	rows, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d", len(rows))
	}
	if store.Reads() != 0 {
		t.Fatalf("Reads() = %d, want no store reads", store.Reads())
	}
}

func TestGetStopsReadingAtLimit(t *testing.T) {
	store := statusStore()
	if _, err := New(store).Limit(2).Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if store.Reads() != 2 {
		t.Fatalf("Reads() = %d", store.Reads())
	}
}

func TestSelectDeduplicatesInFirstSeenOrder(t *testing.T) {
	q := New(statusStore()).Select("name, age").SelectValues([]any{"age", 7, "city", nil})
	if got := q.Spec().Fields.Names(); !reflect.DeepEqual(got, []string{"name", "age", "city"}) {
		t.Fatalf("fields = %v", got)
	}
	q.Select("city", "name,id")
	if got := q.Spec().Fields.Names(); !reflect.DeepEqual(got, []string{"name", "age", "city", "id"}) {
		t.Fatalf("fields = %v", got)
	}
}

func TestProjectionNarrowsRows(t *testing.T) {
	rows, err := New(statusStore()).Select("status", "missing").Limit(1).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := rows[0].Names(); !reflect.DeepEqual(got, []string{"status"}) {
		t.Fatalf("names = %v", got)
	}
}

func TestEmptySelectionReturnsEveryField(t *testing.T) {
	q := New(statusStore())
	if !q.Spec().Fields.IsAll() {
		t.Fatal("expected AllFields by default")
	}
	rows, err := q.Limit(1).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := rows[0].Names(); !reflect.DeepEqual(got, []string{"id", "status", "name"}) {
		t.Fatalf("names = %v", got)
	}
}

func TestMissingPredicateFieldMatchesNothing(t *testing.T) {
	rows, err := New(statusStore()).Where("nope", "==", "A").Limit(10).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d", len(rows))
	}
}

func TestNumericComparisonOnTextField(t *testing.T) {
	store := memory.New(
		record.NewRow(record.NewField("qty", record.Text("9"))),
		record.NewRow(record.NewField("qty", record.Text("10"))),
		record.NewRow(record.NewField("qty", record.Text("100"))),
	)
	rows, err := New(store).Where("qty", ">", 9).Limit(10).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (numeric, not lexical)", len(rows))
	}
}

func TestWhereAllIsConjunction(t *testing.T) {
	rows, err := New(statusStore()).WhereAll([]Condition{
		{Field: "status", Operator: "==", Value: "A"},
		{Field: "id", Operator: ">", Value: 0},
	}).Limit(10).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(t, rows); !reflect.DeepEqual(got, []string{"2", "4"}) {
		t.Fatalf("ids = %v", got)
	}
}

type countingMatcher struct {
	calls  int
	result bool
}

func (c *countingMatcher) matches(record.Row) bool {
	c.calls++
	return c.result
}

func TestEvaluationShortCircuits(t *testing.T) {
	first := &countingMatcher{result: false}
	second := &countingMatcher{result: true}
	q := New(statusStore()).Limit(10)
	q.predicates = append(q.predicates, first, second)

	rows, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d", len(rows))
	}
	if first.calls != 5 {
		t.Fatalf("first calls = %d", first.calls)
	}
	if second.calls != 0 {
		t.Fatalf("second calls = %d, want 0", second.calls)
	}
}

func TestEmptyConjunctionPasses(t *testing.T) {
	if !evaluate(record.NewRow(), nil) {
		t.Fatal("expected empty conjunction to pass")
	}
}

func TestConfigurationErrorsFailFast(t *testing.T) {
	tests := []struct {
		name  string
		build func(q *Query) *Query
		want  error
	}{
		{name: "operator", build: func(q *Query) *Query { return q.Where("status", "LIKE", "A") }, want: ErrUnsupportedOperator},
		{name: "field", build: func(q *Query) *Query { return q.Where("", "==", "A") }, want: ErrInvalidPredicate},
		{name: "value", build: func(q *Query) *Query { return q.Where("status", "==", []int{1}) }, want: ErrInvalidPredicate},
		{name: "nan value", build: func(q *Query) *Query { return q.Where("id", ">", math.NaN()) }, want: ErrInvalidPredicate},
		{name: "infinite value", build: func(q *Query) *Query { return q.Where("id", ">", math.Inf(1)) }, want: ErrInvalidPredicate},
		{name: "limit", build: func(q *Query) *Query { return q.Limit(-1) }, want: ErrInvalidLimit},
		{name: "offset", build: func(q *Query) *Query { return q.LimitOffset(-2, 1) }, want: ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := statusStore()
			q := tt.build(New(store)).Limit(5)
			if !errors.Is(q.Err(), tt.want) {
				t.Fatalf("Err() = %v, want %v", q.Err(), tt.want)
			}
			if _, err := q.Get(context.Background()); !errors.Is(err, tt.want) {
				t.Fatalf("Get() error = %v, want %v", err, tt.want)
			}
			if store.Reads() != 0 {
				t.Fatalf("Reads() = %d, want 0", store.Reads())
			}
		})
	}
}

func TestNonFiniteStoredValuesDoNotMatchNumbers(t *testing.T) {
	store := memory.New(
		record.NewRow(record.NewField("id", record.Int(0)), record.NewField("score", record.Float(math.NaN()))),
		record.NewRow(record.NewField("id", record.Int(1)), record.NewField("score", record.Float(3))),
		record.NewRow(record.NewField("id", record.Int(2)), record.NewField("score", record.Float(math.Inf(-1)))),
	)

	rows, err := New(store).Where("score", "<", 10).Limit(5).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(t, rows); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("ids = %v, want [1 2]", got)
	}

	rows, err = New(store).Where("score", "==", "NaN").Limit(5).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := ids(t, rows); !reflect.DeepEqual(got, []string{"0"}) {
		t.Fatalf("ids = %v, want [0]", got)
	}
}

type failingStore struct {
	*memory.Store
	failAt int
}

func (f *failingStore) RetrieveRecord(ctx context.Context, ordinal int) (record.Row, error) {
	if ordinal == f.failAt {
		return record.Row{}, errors.New("corrupt block")
	}
	return f.Store.RetrieveRecord(ctx, ordinal)
}

func TestReadErrorAbortsExecution(t *testing.T) {
	store := &failingStore{Store: statusStore(), failAt: 3}
	rows, err := New(store).Limit(10).Get(context.Background())
	if err == nil {
		t.Fatal("expected read error")
	}
	if rows != nil {
		t.Fatalf("rows = %v, want no partial result", rows)
	}
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("error = %T, want *ReadError", err)
	}
	if readErr.Ordinal != 3 {
		t.Fatalf("Ordinal = %d", readErr.Ordinal)
	}
}

func TestExecuteStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(statusStore()).Limit(1).Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecuteReportsStats(t *testing.T) {
	result, err := New(statusStore()).Where("status", "==", "A").LimitOffset(1, 5).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Scanned != 5 || result.Matched != 3 || len(result.Rows) != 2 {
		t.Fatalf("scanned=%d matched=%d rows=%d", result.Scanned, result.Matched, len(result.Rows))
	}
}

func TestExecuteRequiresStore(t *testing.T) {
	if _, err := New(nil).Limit(1).Execute(context.Background()); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestString(t *testing.T) {
	q := New(nil).Select("name, age").Where("status", "==", "A").Where("age", ">=", 30).LimitOffset(1, 2)
	want := `SELECT name, age WHERE status == "A" AND age >= 30 LIMIT 1, 2`
	if q.String() != want {
		t.Fatalf("String() = %q", q.String())
	}
}
