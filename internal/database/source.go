package database

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pxql/pxql/internal/store/duckdb"
)

type Kind string

const (
	KindFile     Kind = "file"
	KindObject   Kind = "object"
	KindPostgres Kind = "postgres"
)

type Format string

const (
	FormatParquet  Format = "parquet"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatPostgres Format = "postgres"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// Source describes where one named legacy table lives. Location is a local
// path, an object key, or a (optionally schema-qualified) Postgres table.
type Source struct {
	Name     string
	Kind     Kind
	Format   Format
	Location string
	OrderBy  []string
}

func (s Source) Validate() error {
	if !tableNamePattern.MatchString(s.Name) {
		return fmt.Errorf("invalid table name %q", s.Name)
	}
	if strings.TrimSpace(s.Location) == "" {
		return fmt.Errorf("table %q: location is required", s.Name)
	}
	switch s.Kind {
	case KindFile, KindObject:
		switch s.Format {
		case FormatParquet, FormatCSV, FormatJSON:
		default:
			return fmt.Errorf("table %q: unsupported file format %q", s.Name, s.Format)
		}
	case KindPostgres:
		if s.Format != FormatPostgres {
			return fmt.Errorf("table %q: postgres sources use format %q", s.Name, FormatPostgres)
		}
	default:
		return fmt.Errorf("table %q: unsupported source kind %q", s.Name, s.Kind)
	}
	return nil
}

// ParseSources reads a comma-separated list of `name=kind:location` entries.
// A `|col1;col2` suffix sets the scan order for postgres sources. File formats
// are inferred from the location extension.
func ParseSources(spec string) ([]Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	entries := strings.Split(spec, ",")
	sources := make([]Source, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, target, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid table source %q: expected name=kind:location", entry)
		}
		kind, location, ok := strings.Cut(target, ":")
		if !ok {
			return nil, fmt.Errorf("invalid table source %q: expected name=kind:location", entry)
		}

		source := Source{
			Name:     strings.TrimSpace(name),
			Kind:     Kind(strings.ToLower(strings.TrimSpace(kind))),
			Location: strings.TrimSpace(location),
		}
		if location, order, found := strings.Cut(source.Location, "|"); found {
			source.Location = strings.TrimSpace(location)
			for _, column := range strings.Split(order, ";") {
				if column = strings.TrimSpace(column); column != "" {
					source.OrderBy = append(source.OrderBy, column)
				}
			}
		}

		format, err := formatFor(source.Kind, source.Location)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", source.Name, err)
		}
		source.Format = format

		if err := source.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[source.Name]; dup {
			return nil, fmt.Errorf("duplicate table source %q", source.Name)
		}
		seen[source.Name] = struct{}{}
		sources = append(sources, source)
	}
	return sources, nil
}

func formatFor(kind Kind, location string) (Format, error) {
	if kind == KindPostgres {
		return FormatPostgres, nil
	}
	format, err := duckdb.FormatFromPath(filepath.Base(location))
	if err != nil {
		return "", err
	}
	switch format {
	case duckdb.FormatParquet:
		return FormatParquet, nil
	case duckdb.FormatJSON:
		return FormatJSON, nil
	default:
		return FormatCSV, nil
	}
}

// FileSource describes a local table file, inferring its format from the
// extension.
func FileSource(name, location string) (Source, error) {
	format, err := formatFor(KindFile, location)
	if err != nil {
		return Source{}, err
	}
	source := Source{Name: name, Kind: KindFile, Format: format, Location: location}
	if err := source.Validate(); err != nil {
		return Source{}, err
	}
	return source, nil
}
