package pxqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/pxql/pxql/internal/database"
	"github.com/pxql/pxql/internal/query"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("pxqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "pxql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	method := http.MethodGet
	path := ""
	var body []byte
	switch command {
	case "health":
		path = "/v1/health"
	case "ready":
		path = "/v1/ready"
	case "tables":
		path = "/v1/tables"
	case "describe":
		if len(rest) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: pxqlctl describe <table>")
			return 2
		}
		path = "/v1/tables/" + url.PathEscape(rest[0])
	case "query":
		flags, table, ok := parseQueryFlags("query", rest, stderr)
		if !ok {
			return 2
		}
		payload, err := flags.requestBody(table)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
		method, path, body = http.MethodPost, "/v1/query", payload
	case "local":
		flags, file, ok := parseQueryFlags("local", rest, stderr)
		if !ok {
			return 2
		}
		return runLocal(ctx, file, flags, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

// runLocal executes the query in-process against a Parquet, CSV or JSON file.
func runLocal(ctx context.Context, file string, flags queryFlags, stdout, stderr io.Writer) int {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	source, err := database.FileSource(name, file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	opener, err := database.NewOpener([]database.Source{source}, database.OpenerOptions{})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	db, err := opener.Open(ctx, source.Name)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open %s: %v\n", file, err)
		return 1
	}
	defer func() { _ = db.Close() }()

	q := db.Query()
	if flags.selectList != "" {
		q.Select(flags.selectList)
	}
	conditions, err := flags.conditions()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	q.WhereAll(conditions)
	if flags.limit != query.NoLimitSet {
		q.LimitOffset(flags.offset, flags.limit)
	}
	if err := q.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid query: %v\n", err)
		return 2
	}

	result, err := q.Execute(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "query failed: %v\n", err)
		return 1
	}
	formatted, err := json.MarshalIndent(map[string]any{
		"table": source.Name,
		"query": q.String(),
		"rows":  result.Rows,
		"stats": map[string]any{
			"duration_ms":     result.Duration.Milliseconds(),
			"records_scanned": result.Scanned,
			"rows_matched":    result.Matched,
			"rows_returned":   len(result.Rows),
		},
	}, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "encode result: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, string(formatted))
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: pxqlctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                         GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                          GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  tables                         GET /v1/tables")
	_, _ = fmt.Fprintln(w, "  describe <table>               GET /v1/tables/{table}")
	_, _ = fmt.Fprintln(w, "  query [query flags] <table>    POST /v1/query")
	_, _ = fmt.Fprintln(w, "  local [query flags] <file>     run a query against a local parquet/csv/json file")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "query flags:")
	_, _ = fmt.Fprintln(w, "  -select \"a, b\"   -where \"field op value\" (repeatable)   -limit n   -offset n")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
