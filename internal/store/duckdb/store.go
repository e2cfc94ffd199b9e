package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/pxql/pxql/internal/store/sqltable"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

const viewName = "records"

// FormatFromPath infers the file format from its extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".json", ".ndjson", ".jsonl":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer table format from %q", path)
	}
}

// OpenFile exposes a local file through an in-process DuckDB view. The
// returned store owns the DuckDB handle.
func OpenFile(ctx context.Context, path string, format Format) (*sqltable.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat table file %q: %w", path, err)
	}
	reader, err := readerFunc(format)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM %s(%s)`, sqltable.QuoteIdent(viewName), reader, quoteString(path))
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create view for %q: %w", path, err)
	}

	store, err := sqltable.New(db, sqltable.Config{Table: viewName})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.OwnDB(), nil
}

func readerFunc(format Format) (string, error) {
	switch format {
	case FormatCSV:
		return "read_csv_auto", nil
	case FormatParquet:
		return "read_parquet", nil
	case FormatJSON:
		return "read_json_auto", nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
