package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pxql/pxql/internal/record"
)

type Config struct {
	Table   string
	OrderBy []string
}

// Store exposes one SQL table or view as a record sequence. Sequential
// ordinals are served from a single streaming cursor; any other ordinal
// reopens the cursor at that offset.
type Store struct {
	db      *sql.DB
	table   string
	orderBy []string
	builder sq.StatementBuilderType
	closeDB bool

	rows    *sql.Rows
	columns []string
	next    int
}

func New(db *sql.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	table, err := quoteQualified(cfg.Table)
	if err != nil {
		return nil, err
	}
	orderBy := make([]string, 0, len(cfg.OrderBy))
	for _, col := range cfg.OrderBy {
		quoted, err := quoteQualified(col)
		if err != nil {
			return nil, fmt.Errorf("order by: %w", err)
		}
		orderBy = append(orderBy, quoted)
	}
	return &Store{
		db:      db,
		table:   table,
		orderBy: orderBy,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// OwnDB makes Close also close the underlying database handle.
func (s *Store) OwnDB() *Store {
	s.closeDB = true
	return s
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	sqlText, args, err := s.builder.Select("COUNT(*)").From(s.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records in %s: %w", s.table, err)
	}
	return int(count), nil
}

func (s *Store) FieldCount(ctx context.Context) (int, error) {
	sqlText, args, err := s.builder.Select("*").From(s.table).Limit(0).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build columns query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return 0, fmt.Errorf("query columns of %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()
	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("read columns of %s: %w", s.table, err)
	}
	return len(columns), nil
}

func (s *Store) RetrieveRecord(ctx context.Context, ordinal int) (record.Row, error) {
	if ordinal < 0 {
		return record.Row{}, fmt.Errorf("retrieve record %d: %w", ordinal, record.ErrRecordOutOfRange)
	}
	if s.rows == nil || ordinal != s.next {
		if err := s.openCursor(ctx, ordinal); err != nil {
			return record.Row{}, err
		}
	}

	if !s.rows.Next() {
		err := s.rows.Err()
		s.closeCursor()
		if err != nil {
			return record.Row{}, fmt.Errorf("read record %d: %w", ordinal, err)
		}
		return record.Row{}, fmt.Errorf("retrieve record %d: %w", ordinal, record.ErrRecordOutOfRange)
	}

	values := make([]any, len(s.columns))
	targets := make([]any, len(s.columns))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := s.rows.Scan(targets...); err != nil {
		s.closeCursor()
		return record.Row{}, fmt.Errorf("scan record %d: %w", ordinal, err)
	}

	fields := make([]record.Field, 0, len(s.columns))
	for i, name := range s.columns {
		value, err := record.ValueOf(values[i])
		if err != nil {
			s.closeCursor()
			return record.Row{}, fmt.Errorf("record %d field %q: %w", ordinal, name, err)
		}
		fields = append(fields, record.NewField(name, value))
	}
	s.next = ordinal + 1
	return record.NewRow(fields...), nil
}

func (s *Store) openCursor(ctx context.Context, offset int) error {
	s.closeCursor()

	selectBuilder := s.builder.Select("*").From(s.table)
	if len(s.orderBy) > 0 {
		selectBuilder = selectBuilder.OrderBy(s.orderBy...)
	}
	if offset > 0 {
		selectBuilder = selectBuilder.Offset(uint64(offset))
	}
	sqlText, args, err := selectBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("build scan query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return fmt.Errorf("scan %s from %d: %w", s.table, offset, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return fmt.Errorf("read columns of %s: %w", s.table, err)
	}
	s.rows = rows
	s.columns = columns
	s.next = offset
	return nil
}

func (s *Store) closeCursor() {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
}

func (s *Store) Close() error {
	s.closeCursor()
	if s.closeDB {
		return s.db.Close()
	}
	return nil
}

// QuoteIdent quotes a single SQL identifier.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteQualified(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("table name is required")
	}
	parts := strings.Split(name, ".")
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return "", fmt.Errorf("invalid identifier %q", name)
		}
		quoted = append(quoted, QuoteIdent(part))
	}
	return strings.Join(quoted, "."), nil
}
