package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pxql/pxql/internal/query"
	"github.com/pxql/pxql/internal/record"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrClosed        = errors.New("database is closed")
)

// Database is an open handle on one legacy table. Each handle owns its store
// exclusively; concurrent callers should open their own handle.
type Database struct {
	name   string
	store  record.Store
	closer func() error

	mu     sync.Mutex
	closed bool
}

// New wraps an already opened store. closer may be nil.
func New(name string, store record.Store, closer func() error) *Database {
	return &Database{name: name, store: store, closer: closer}
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) Store() record.Store {
	return d.store
}

// Query starts an unconfigured query: every field, no predicates, no limit.
func (d *Database) Query() *query.Query {
	return query.New(d.store)
}

func (d *Database) Select(fields ...string) *query.Query {
	return d.Query().Select(fields...)
}

func (d *Database) Where(field, operator string, value any) *query.Query {
	return d.Query().Where(field, operator, value)
}

func (d *Database) Limit(n int) *query.Query {
	return d.Query().Limit(n)
}

func (d *Database) NumRecords(ctx context.Context) (int, error) {
	if d.isClosed() {
		return 0, ErrClosed
	}
	count, err := d.store.RecordCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records of %q: %w", d.name, err)
	}
	return count, nil
}

func (d *Database) NumFields(ctx context.Context) (int, error) {
	if d.isClosed() {
		return 0, ErrClosed
	}
	count, err := d.store.FieldCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count fields of %q: %w", d.name, err)
	}
	return count, nil
}

// Close releases the store handle. Closing twice is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *Database) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
