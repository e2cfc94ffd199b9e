package pxqlctl

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pxql/pxql/internal/query"
)

type whereList []string

func (w *whereList) String() string {
	return strings.Join(*w, "; ")
}

func (w *whereList) Set(value string) error {
	*w = append(*w, value)
	return nil
}

type queryFlags struct {
	selectList string
	where      whereList
	limit      int
	offset     int
}

func parseQueryFlags(command string, args []string, stderr io.Writer) (queryFlags, string, bool) {
	fs := flag.NewFlagSet("pxqlctl "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags queryFlags
	fs.StringVar(&flags.selectList, "select", "", "comma-separated fields to return (default all)")
	fs.Var(&flags.where, "where", `predicate "field op value"; repeat for a conjunction`)
	fs.IntVar(&flags.limit, "limit", query.NoLimitSet, "maximum rows to return; without it no rows are returned")
	fs.IntVar(&flags.offset, "offset", 0, "matching rows to skip before collecting")
	if err := fs.Parse(args); err != nil {
		return queryFlags{}, "", false
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintf(stderr, "usage: pxqlctl %s [query flags] <target>\n", command)
		return queryFlags{}, "", false
	}
	return flags, fs.Arg(0), true
}

func (f queryFlags) conditions() ([]query.Condition, error) {
	conditions := make([]query.Condition, 0, len(f.where))
	for _, raw := range f.where {
		condition, err := parseWhere(raw)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

func (f queryFlags) requestBody(table string) ([]byte, error) {
	conditions, err := f.conditions()
	if err != nil {
		return nil, err
	}
	where := make([][]any, 0, len(conditions))
	for _, c := range conditions {
		where = append(where, []any{c.Field, c.Operator, c.Value})
	}
	payload := map[string]any{"table": table, "where": where}
	if f.selectList != "" {
		payload["select"] = f.selectList
	}
	if f.limit != query.NoLimitSet {
		payload["limit"] = f.limit
		payload["offset"] = f.offset
	} else if f.offset != 0 {
		return nil, fmt.Errorf("-offset requires -limit")
	}
	return json.Marshal(payload)
}

// parseWhere splits "field op value". The value keeps inner spaces; surrounding
// quotes are removed and a bare null becomes a null value.
func parseWhere(raw string) (query.Condition, error) {
	parts := strings.Fields(raw)
	if len(parts) < 3 {
		return query.Condition{}, fmt.Errorf("invalid -where %q: expected \"field op value\"", raw)
	}
	field, operator := parts[0], parts[1]
	rest := strings.TrimSpace(raw)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, field))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, operator))

	var value any = rest
	switch {
	case rest == "null":
		value = nil
	case len(rest) >= 2 && (rest[0] == '"' || rest[0] == '\'') && rest[len(rest)-1] == rest[0]:
		value = rest[1 : len(rest)-1]
	}
	return query.Condition{Field: field, Operator: operator, Value: value}, nil
}
