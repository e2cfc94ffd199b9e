package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pxql/pxql/internal/observability"
	"github.com/pxql/pxql/internal/query"
	"github.com/pxql/pxql/internal/record"
)

// queryRequest accepts `select` as a comma-separated string or an array of
// names, and `where` as one [field, op, value] triple or an array of them.
type queryRequest struct {
	Table  string `json:"table"`
	Select any    `json:"select"`
	Where  []any  `json:"where"`
	Limit  *int   `json:"limit"`
	Offset int    `json:"offset"`
}

type queryResponse struct {
	Table string         `json:"table"`
	Query string         `json:"query"`
	Rows  []record.Row   `json:"rows"`
	Stats map[string]any `json:"stats"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "table sources are not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	request.Table = strings.TrimSpace(request.Table)
	if request.Table == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TABLE_REQUIRED", "table is required", false, nil)
		return
	}
	if request.Limit != nil && *request.Limit > deps.MaxRowLimit {
		writeError(r.Context(), w, http.StatusBadRequest, "LIMIT_TOO_LARGE", "limit exceeds the configured maximum", false, map[string]any{
			"limit":     *request.Limit,
			"max_limit": deps.MaxRowLimit,
		})
		return
	}
	if request.Limit == nil && request.Offset != 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_QUERY", "offset requires a limit", false, nil)
		return
	}
	conditions, err := parseConditions(request.Where)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), false, nil)
		return
	}

	db, ok := openTable(deps, w, r, request.Table)
	if !ok {
		return
	}
	defer closeTable(deps, r, db)

	q := db.Query()
	switch selected := request.Select.(type) {
	case nil:
	case string:
		q.Select(selected)
	case []any:
		q.SelectValues(selected)
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_QUERY", "select must be a string or an array of field names", false, nil)
		return
	}
	q.WhereAll(conditions)
	if request.Limit != nil {
		q.LimitOffset(request.Offset, *request.Limit)
	}
	if err := q.Err(); err != nil {
		observability.ObserveQuery(request.Table, observability.QueryStatusInvalid, 0, 0, 0)
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), false, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), deps.QueryTimeout)
	defer cancel()
	result, err := q.Execute(ctx)
	if err != nil {
		writeQueryError(deps, w, r, request.Table, q, result, err)
		return
	}
	observability.ObserveQuery(request.Table, observability.QueryStatusOK, result.Scanned, len(result.Rows), result.Duration)
	observability.TableLogger(r.Context(), deps.Logger, request.Table).DebugContext(r.Context(), "query executed",
		slog.String("query", q.String()),
		slog.Int("scanned", result.Scanned),
		slog.Int("returned", len(result.Rows)),
	)

	writeJSON(w, http.StatusOK, queryResponse{
		Table: request.Table,
		Query: q.String(),
		Rows:  result.Rows,
		Stats: map[string]any{
			"duration_ms":     result.Duration.Milliseconds(),
			"records_scanned": result.Scanned,
			"rows_matched":    result.Matched,
			"rows_returned":   len(result.Rows),
		},
	})
}

func writeQueryError(deps Dependencies, w http.ResponseWriter, r *http.Request, table string, q *query.Query, result query.Result, err error) {
	var readErr *query.ReadError
	switch {
	case errors.As(err, &readErr):
		observability.ObserveQuery(table, observability.QueryStatusReadError, result.Scanned, 0, result.Duration)
		observability.TableLogger(r.Context(), deps.Logger, table).ErrorContext(r.Context(), "query store read failed",
			slog.String("query", q.String()),
			slog.Int("ordinal", readErr.Ordinal),
			slog.String("error", readErr.Err.Error()),
		)
		writeError(r.Context(), w, http.StatusBadGateway, "STORE_READ_FAILED", "failed to read table record", true, map[string]any{
			"table":   table,
			"ordinal": readErr.Ordinal,
			"details": readErr.Err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		observability.ObserveQuery(table, observability.QueryStatusCanceled, 0, 0, deps.QueryTimeout)
		writeError(r.Context(), w, http.StatusGatewayTimeout, "QUERY_TIMEOUT", "query exceeded the configured timeout", true, map[string]any{"timeout_ms": deps.QueryTimeout.Milliseconds()})
	case errors.Is(err, context.Canceled):
		observability.ObserveQuery(table, observability.QueryStatusCanceled, 0, 0, 0)
		writeError(r.Context(), w, http.StatusServiceUnavailable, "QUERY_CANCELED", "query was canceled", true, nil)
	default:
		observability.ObserveQuery(table, observability.QueryStatusUnavailable, 0, 0, 0)
		writeError(r.Context(), w, http.StatusBadGateway, "QUERY_FAILED", "query execution failed", true, map[string]any{"details": err.Error()})
	}
}

// parseConditions accepts either a single triple or a list of triples.
func parseConditions(raw []any) ([]query.Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if _, nested := raw[0].([]any); !nested {
		condition, err := parseTriple(raw)
		if err != nil {
			return nil, err
		}
		return []query.Condition{condition}, nil
	}

	conditions := make([]query.Condition, 0, len(raw))
	for i, item := range raw {
		triple, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("where[%d] must be a [field, operator, value] triple", i)
		}
		condition, err := parseTriple(triple)
		if err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

func parseTriple(triple []any) (query.Condition, error) {
	if len(triple) != 3 {
		return query.Condition{}, fmt.Errorf("where condition must have 3 elements, got %d", len(triple))
	}
	field, ok := triple[0].(string)
	if !ok {
		return query.Condition{}, fmt.Errorf("where field must be a string")
	}
	operator, ok := triple[1].(string)
	if !ok {
		return query.Condition{}, fmt.Errorf("where operator must be a string")
	}
	return query.Condition{Field: field, Operator: operator, Value: triple[2]}, nil
}

