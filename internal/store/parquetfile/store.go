package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/shopspring/decimal"

	"github.com/pxql/pxql/internal/record"
)

type column struct {
	name    string
	logical *format.LogicalType
}

// Store reads a flat Parquet file as a sequence of records. Nested and
// repeated columns keep only their first leaf value.
type Store struct {
	reader  *parquet.Reader
	columns []column
	numRows int64
	next    int64
	buf     []parquet.Row
	closer  io.Closer
}

func Open(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %q: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat parquet file %q: %w", path, err)
	}
	store, err := NewFromReaderAt(file, info.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read parquet file %q: %w", path, err)
	}
	store.closer = file
	return store, nil
}

func NewFromReaderAt(input io.ReaderAt, size int64) (*Store, error) {
	file, err := parquet.OpenFile(input, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	reader := parquet.NewReader(file)
	schema := reader.Schema()

	paths := schema.Columns()
	columns := make([]column, 0, len(paths))
	for _, path := range paths {
		col := column{name: strings.Join(path, ".")}
		if leaf, ok := schema.Lookup(path...); ok {
			col.logical = leaf.Node.Type().LogicalType()
		}
		columns = append(columns, col)
	}

	return &Store{
		reader:  reader,
		columns: columns,
		numRows: reader.NumRows(),
		buf:     make([]parquet.Row, 1),
	}, nil
}

func (s *Store) RecordCount(context.Context) (int, error) {
	return int(s.numRows), nil
}

func (s *Store) FieldCount(context.Context) (int, error) {
	return len(s.columns), nil
}

func (s *Store) RetrieveRecord(_ context.Context, ordinal int) (record.Row, error) {
	if ordinal < 0 || int64(ordinal) >= s.numRows {
		return record.Row{}, fmt.Errorf("retrieve record %d: %w", ordinal, record.ErrRecordOutOfRange)
	}
	if int64(ordinal) != s.next {
		if err := s.reader.SeekToRow(int64(ordinal)); err != nil {
			return record.Row{}, fmt.Errorf("seek to row %d: %w", ordinal, err)
		}
	}

	n, err := s.reader.ReadRows(s.buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return record.Row{}, fmt.Errorf("retrieve record %d: %w", ordinal, record.ErrRecordOutOfRange)
		}
		return record.Row{}, fmt.Errorf("read row %d: %w", ordinal, err)
	}
	s.next = int64(ordinal) + 1

	return s.decodeRow(s.buf[0]), nil
}

func (s *Store) decodeRow(row parquet.Row) record.Row {
	values := make([]record.Value, len(s.columns))
	seen := make([]bool, len(s.columns))
	for _, value := range row {
		index := value.Column()
		if index < 0 || index >= len(s.columns) || seen[index] {
			continue
		}
		seen[index] = true
		values[index] = convertValue(value, s.columns[index].logical)
	}
	fields := make([]record.Field, 0, len(s.columns))
	for i, col := range s.columns {
		fields = append(fields, record.NewField(col.name, values[i]))
	}
	return record.NewRow(fields...)
}

func (s *Store) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("close parquet reader: %w", err)
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func convertValue(value parquet.Value, logical *format.LogicalType) record.Value {
	if value.IsNull() {
		return record.Null()
	}
	switch value.Kind() {
	case parquet.Boolean:
		return record.Text(strconv.FormatBool(value.Boolean()))
	case parquet.Int32:
		switch {
		case logical != nil && logical.Date != nil:
			return record.Date(time.Unix(0, 0).UTC().AddDate(0, 0, int(value.Int32())))
		case logical != nil && logical.Decimal != nil:
			return record.Number(decimal.New(int64(value.Int32()), -logical.Decimal.Scale))
		}
		return record.Int(int64(value.Int32()))
	case parquet.Int64:
		switch {
		case logical != nil && logical.Timestamp != nil:
			return record.Date(timestampFromUnit(value.Int64(), logical.Timestamp.Unit))
		case logical != nil && logical.Decimal != nil:
			return record.Number(decimal.New(value.Int64(), -logical.Decimal.Scale))
		}
		return record.Int(value.Int64())
	case parquet.Float:
		return record.Float32(value.Float())
	case parquet.Double:
		return record.Float(value.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return record.Text(string(value.ByteArray()))
	default:
		return record.Text(value.String())
	}
}

func timestampFromUnit(raw int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Millis != nil:
		return time.UnixMilli(raw).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(raw).UTC()
	default:
		return time.Unix(0, raw).UTC()
	}
}
