package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pxql/pxql/internal/database"
	"github.com/pxql/pxql/internal/observability"
)

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "table sources are not configured", false, nil)
		return
	}

	sources := deps.Tables.Tables()
	items := make([]map[string]any, 0, len(sources))
	for _, source := range sources {
		items = append(items, map[string]any{
			"table_name": source.Name,
			"kind":       source.Kind,
			"format":     source.Format,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": items})
}

func handleDescribeTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "table sources are not configured", false, nil)
		return
	}

	name := r.PathValue("table")
	db, ok := openTable(deps, w, r, name)
	if !ok {
		return
	}
	defer closeTable(deps, r, db)

	ctx := r.Context()
	records, err := db.NumRecords(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusBadGateway, "STORE_READ_FAILED", "failed to count table records", true, map[string]any{"details": err.Error()})
		return
	}
	fields, err := db.NumFields(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusBadGateway, "STORE_READ_FAILED", "failed to count table fields", true, map[string]any{"details": err.Error()})
		return
	}

	fieldNames := []string{}
	if records > 0 {
		first, err := db.Store().RetrieveRecord(ctx, 0)
		if err != nil {
			writeError(ctx, w, http.StatusBadGateway, "STORE_READ_FAILED", "failed to read first record", true, map[string]any{"details": err.Error()})
			return
		}
		fieldNames = first.Names()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table_name":   name,
		"record_count": records,
		"field_count":  fields,
		"fields":       fieldNames,
	})
}

// openTable writes the error response itself when the table cannot be opened.
func openTable(deps Dependencies, w http.ResponseWriter, r *http.Request, name string) (*database.Database, bool) {
	db, err := deps.Tables.Open(r.Context(), name)
	if err == nil {
		return db, true
	}
	if errors.Is(err, database.ErrTableNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table was not found", false, map[string]any{"table": name})
		return nil, false
	}
	observability.TableLogger(r.Context(), deps.Logger, name).ErrorContext(r.Context(), "open table failed", slog.String("error", err.Error()))
	writeError(r.Context(), w, http.StatusBadGateway, "TABLE_UNAVAILABLE", "failed to open table", true, map[string]any{"table": name, "details": err.Error()})
	return nil, false
}

func closeTable(deps Dependencies, r *http.Request, db *database.Database) {
	if err := db.Close(); err != nil {
		observability.TableLogger(r.Context(), deps.Logger, db.Name()).WarnContext(r.Context(), "close table failed", slog.String("error", err.Error()))
	}
}
