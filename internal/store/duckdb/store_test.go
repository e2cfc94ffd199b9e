package duckdb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/pxql/pxql/internal/query"
	"github.com/pxql/pxql/internal/record"
)

const peopleCSV = `id,name,status,joined
1,Ada,A,2019-03-01
2,Bob,B,2020-07-15
3,Cy,A,2021-01-09
4,Dee,C,2018-11-30
5,Eve,A,2022-05-05
`

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestOpenFileQueriesCSV(t *testing.T) {
	path := writeTempFile(t, "people.csv", []byte(peopleCSV))
	store, err := OpenFile(context.Background(), path, FormatCSV)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	count, err := store.RecordCount(context.Background())
	if err != nil || count != 5 {
		t.Fatalf("RecordCount() = %d, %v", count, err)
	}
	fields, err := store.FieldCount(context.Background())
	if err != nil || fields != 4 {
		t.Fatalf("FieldCount() = %d, %v", fields, err)
	}

	rows, err := query.New(store).Select("name").Where("status", "==", "A").LimitOffset(1, 1).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if name, _ := rows[0].Get("name"); name.String() != "Cy" {
		t.Fatalf("name = %q", name.String())
	}
}

func TestOpenFileMapsDates(t *testing.T) {
	path := writeTempFile(t, "people.csv", []byte(peopleCSV))
	store, err := OpenFile(context.Background(), path, FormatCSV)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	row, err := store.RetrieveRecord(context.Background(), 0)
	if err != nil {
		t.Fatalf("RetrieveRecord() error = %v", err)
	}
	joined, _ := row.Get("joined")
	if joined.Kind() != record.KindDate || joined.String() != "2019-03-01" {
		t.Fatalf("joined = %s (%s)", joined.String(), joined.Kind())
	}
}

type row struct {
	ID    int64  `parquet:"id"`
	Value string `parquet:"value"`
}

func TestOpenFileReadsParquet(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[row](buf)
	if _, err := writer.Write([]row{{ID: 1, Value: "a"}, {ID: 2, Value: "b"}}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	path := writeTempFile(t, "values.parquet", buf.Bytes())

	store, err := OpenFile(context.Background(), path, FormatParquet)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	rows, err := query.New(store).Where("id", ">=", 2).Limit(10).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0].Names(), []string{"id", "value"}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.csv":     FormatCSV,
		"A.PARQUET": FormatParquet,
		"x.ndjson":  FormatJSON,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Fatalf("FormatFromPath(%q) = %q, %v", path, got, err)
		}
	}
	if _, err := FormatFromPath("legacy.db"); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestOpenFileRejectsMissingFile(t *testing.T) {
	if _, err := OpenFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), FormatCSV); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := writeTempFile(t, "x.csv", []byte("a\n1\n"))
	if _, err := OpenFile(context.Background(), path, Format("xml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
