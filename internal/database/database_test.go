package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pxql/pxql/internal/record"
	"github.com/pxql/pxql/internal/store/memory"
)

func peopleStore() *memory.Store {
	return memory.New(
		record.NewRow(record.NewField("id", record.Int(1)), record.NewField("name", record.Text("Ada")), record.NewField("status", record.Text("A"))),
		record.NewRow(record.NewField("id", record.Int(2)), record.NewField("name", record.Text("Bob")), record.NewField("status", record.Text("B"))),
		record.NewRow(record.NewField("id", record.Int(3)), record.NewField("name", record.Text("Cy")), record.NewField("status", record.Text("A"))),
	)
}

func TestDatabaseEntryPointsStartFreshQueries(t *testing.T) {
	db := New("people", peopleStore(), nil)
	ctx := context.Background()

	rows, err := db.Where("status", "==", "A").Select("name").Limit(10).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if got, _ := rows[1].Get("name"); got.String() != "Cy" {
		t.Fatalf("rows[1].name = %q, want Cy", got.String())
	}

	rows, err = db.Limit(1).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Len() != 3 {
		t.Fatalf("second query rows = %#v, want one full row", rows)
	}

	rows, err = db.Select("id").Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("query without limit returned %d rows, want 0", len(rows))
	}
}

func TestDatabaseCounts(t *testing.T) {
	db := New("people", peopleStore(), nil)
	ctx := context.Background()

	records, err := db.NumRecords(ctx)
	if err != nil {
		t.Fatalf("NumRecords() error = %v", err)
	}
	if records != 3 {
		t.Fatalf("NumRecords() = %d, want 3", records)
	}
	fields, err := db.NumFields(ctx)
	if err != nil {
		t.Fatalf("NumFields() error = %v", err)
	}
	if fields != 3 {
		t.Fatalf("NumFields() = %d, want 3", fields)
	}
}

func TestDatabaseCloseIsIdempotent(t *testing.T) {
	calls := 0
	db := New("people", peopleStore(), func() error {
		calls++
		return nil
	})
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("closer calls = %d, want 1", calls)
	}
	if _, err := db.NumRecords(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("NumRecords() after close error = %v, want ErrClosed", err)
	}
}
