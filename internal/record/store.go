package record

import (
	"context"
	"errors"
)

var ErrRecordOutOfRange = errors.New("record ordinal out of range")

// Store is a read-only, sequentially indexed source of records. A Store is
// not safe for concurrent use; concurrent queries each need their own handle.
type Store interface {
	RecordCount(ctx context.Context) (int, error)
	FieldCount(ctx context.Context) (int, error)
	RetrieveRecord(ctx context.Context, ordinal int) (Row, error)
}
