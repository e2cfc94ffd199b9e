package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pxql/pxql/internal/observability"
	"github.com/pxql/pxql/internal/record"
	"github.com/pxql/pxql/internal/storage"
	"github.com/pxql/pxql/internal/store/duckdb"
	"github.com/pxql/pxql/internal/store/parquetfile"
	"github.com/pxql/pxql/internal/store/postgres"
)

type OpenerOptions struct {
	Objects  storage.ObjectStore
	Postgres *sql.DB
	TempDir  string
	Logger   *slog.Logger
}

// Opener resolves configured table names to freshly opened handles.
type Opener struct {
	sources  []Source
	byName   map[string]Source
	objects  storage.ObjectStore
	postgres *sql.DB
	tempDir  string
	logger   *slog.Logger
}

func NewOpener(sources []Source, opts OpenerOptions) (*Opener, error) {
	byName := make(map[string]Source, len(sources))
	for _, source := range sources {
		if err := source.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[source.Name]; dup {
			return nil, fmt.Errorf("duplicate table source %q", source.Name)
		}
		switch source.Kind {
		case KindObject:
			if opts.Objects == nil {
				return nil, fmt.Errorf("table %q: object store is required", source.Name)
			}
		case KindPostgres:
			if opts.Postgres == nil {
				return nil, fmt.Errorf("table %q: postgres connection is required", source.Name)
			}
		}
		byName[source.Name] = source
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Opener{
		sources:  append([]Source(nil), sources...),
		byName:   byName,
		objects:  opts.Objects,
		postgres: opts.Postgres,
		tempDir:  opts.TempDir,
		logger:   logger,
	}, nil
}

// Tables returns the configured sources in declaration order.
func (o *Opener) Tables() []Source {
	return append([]Source(nil), o.sources...)
}

func (o *Opener) Source(name string) (Source, bool) {
	source, ok := o.byName[name]
	return source, ok
}

// Open returns a new, exclusively owned handle on the named table.
func (o *Opener) Open(ctx context.Context, name string) (*Database, error) {
	source, ok := o.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}

	start := time.Now()
	var (
		db  *Database
		err error
	)
	switch source.Kind {
	case KindFile:
		db, err = o.openFile(ctx, source, source.Location, nil)
	case KindObject:
		db, err = o.openObject(ctx, source)
	case KindPostgres:
		db, err = o.openPostgres(source)
	default:
		err = fmt.Errorf("table %q: unsupported source kind %q", source.Name, source.Kind)
	}
	if err != nil {
		return nil, err
	}
	observability.ObserveTableOpen(string(source.Kind), time.Since(start))
	observability.TableLogger(ctx, o.logger, source.Name).DebugContext(ctx, "table opened",
		slog.String("kind", string(source.Kind)),
		slog.String("duration", time.Since(start).String()),
	)
	return db, nil
}

func (o *Opener) openFile(ctx context.Context, source Source, localPath string, cleanup func() error) (*Database, error) {
	if _, err := os.Stat(localPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q (%s)", ErrTableNotFound, source.Name, localPath)
		}
		return nil, fmt.Errorf("stat table file %q: %w", localPath, err)
	}

	var (
		store  record.Store
		closer io.Closer
	)
	switch source.Format {
	case FormatParquet:
		pq, err := parquetfile.Open(localPath)
		if err != nil {
			return nil, fmt.Errorf("open table %q: %w", source.Name, err)
		}
		store, closer = pq, pq
	case FormatCSV, FormatJSON:
		view, err := duckdb.OpenFile(ctx, localPath, duckdb.Format(source.Format))
		if err != nil {
			return nil, fmt.Errorf("open table %q: %w", source.Name, err)
		}
		store, closer = view, view
	default:
		return nil, fmt.Errorf("table %q: unsupported file format %q", source.Name, source.Format)
	}

	return New(source.Name, store, func() error {
		err := closer.Close()
		if cleanup != nil {
			if cleanupErr := cleanup(); err == nil {
				err = cleanupErr
			}
		}
		return err
	}), nil
}

// openObject downloads the table file into a private temp dir that is
// removed when the handle closes.
func (o *Opener) openObject(ctx context.Context, source Source) (*Database, error) {
	if _, err := o.objects.Stat(ctx, source.Location); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %q (object %s)", ErrTableNotFound, source.Name, source.Location)
		}
		return nil, fmt.Errorf("stat object %q: %w", source.Location, err)
	}

	workDir, err := os.MkdirTemp(o.tempDir, "pxql-table-")
	if err != nil {
		return nil, fmt.Errorf("create table temp dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(workDir) }

	reader, err := o.objects.Get(ctx, source.Location)
	if err != nil {
		_ = cleanup()
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %q (object %s)", ErrTableNotFound, source.Name, source.Location)
		}
		return nil, fmt.Errorf("get object %q: %w", source.Location, err)
	}

	localPath := filepath.Join(workDir, path.Base(source.Location))
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		_ = cleanup()
		return nil, fmt.Errorf("write local table file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("close object %q: %w", source.Location, err)
	}

	db, err := o.openFile(ctx, source, localPath, cleanup)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	return db, nil
}

func (o *Opener) openPostgres(source Source) (*Database, error) {
	store, err := postgres.OpenTable(o.postgres, source.Location, source.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", source.Name, err)
	}
	return New(source.Name, store, store.Close), nil
}
