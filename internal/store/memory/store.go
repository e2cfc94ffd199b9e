package memory

import (
	"context"
	"fmt"

	"github.com/pxql/pxql/internal/record"
)

type Store struct {
	rows       []record.Row
	fieldCount int
	reads      int
}

// New builds a store over rows. The field count is the widest row.
func New(rows ...record.Row) *Store {
	fieldCount := 0
	for _, row := range rows {
		if row.Len() > fieldCount {
			fieldCount = row.Len()
		}
	}
	return &Store{rows: rows, fieldCount: fieldCount}
}

func (s *Store) RecordCount(context.Context) (int, error) {
	return len(s.rows), nil
}

func (s *Store) FieldCount(context.Context) (int, error) {
	return s.fieldCount, nil
}

func (s *Store) RetrieveRecord(_ context.Context, ordinal int) (record.Row, error) {
	if ordinal < 0 || ordinal >= len(s.rows) {
		return record.Row{}, fmt.Errorf("retrieve record %d: %w", ordinal, record.ErrRecordOutOfRange)
	}
	s.reads++
	return s.rows[ordinal], nil
}

// Reads reports how many records have been retrieved.
func (s *Store) Reads() int {
	return s.reads
}
