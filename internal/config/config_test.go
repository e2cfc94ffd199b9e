package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("pxql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.Postgres.DSN != "" {
		t.Fatalf("Postgres.DSN = %q, want empty", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxOpenConns != 10 {
		t.Fatalf("Postgres.MaxOpenConns = %d", cfg.Postgres.MaxOpenConns)
	}
	if cfg.Query.MaxRowLimit != 10000 {
		t.Fatalf("Query.MaxRowLimit = %d", cfg.Query.MaxRowLimit)
	}
	if cfg.Query.Timeout != 20*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
	if cfg.Tables.Sources != "" {
		t.Fatalf("Tables.Sources = %q", cfg.Tables.Sources)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"PXQL_PROFILE": "prod"})
	cfg, err := Load("pxql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PXQL_PROFILE":                 "test",
		"PXQL_HTTP_ADDR":               ":9999",
		"PXQL_HTTP_READ_TIMEOUT":       "2s",
		"PXQL_HTTP_WRITE_TIMEOUT":      "3s",
		"PXQL_LOG_LEVEL":               "error",
		"PXQL_AUTH_REQUIRED":           "true",
		"PXQL_AUTH_STATIC_KEYS":        "k1:ops:table_reader",
		"PXQL_POSTGRES_DSN":            "postgres://example",
		"PXQL_POSTGRES_MAX_OPEN_CONNS": "42",
		"PXQL_POSTGRES_MAX_IDLE_CONNS": "17",
		"PXQL_SERVICE_NAME":            "pxql-custom",
		"PXQL_OBJECTSTORE_ENDPOINT":    "s3.example.com",
		"PXQL_OBJECTSTORE_BUCKET":      "legacy-prod",
		"PXQL_OBJECTSTORE_REGION":      "us-west-2",
		"PXQL_OBJECTSTORE_ACCESS_KEY":  "abc",
		"PXQL_OBJECTSTORE_SECRET_KEY":  "def",
		"PXQL_OBJECTSTORE_USE_SSL":     "true",
		"PXQL_OBJECTSTORE_PREFIX":      "exports",
		"PXQL_TABLES":                  "people=file:/data/people.parquet",
		"PXQL_TABLES_TEMP_DIR":         "/var/tmp/pxql",
		"PXQL_QUERY_MAX_ROW_LIMIT":     "250",
		"PXQL_QUERY_TIMEOUT":           "7s",
	})
	cfg, err := Load("pxql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "pxql-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:ops:table_reader" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
	if cfg.Postgres.DSN != "postgres://example" {
		t.Fatalf("Postgres.DSN = %q", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxOpenConns != 42 {
		t.Fatalf("Postgres.MaxOpenConns = %d", cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns != 17 {
		t.Fatalf("Postgres.MaxIdleConns = %d", cfg.Postgres.MaxIdleConns)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "legacy-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
	if cfg.ObjectStore.Prefix != "exports" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
	if cfg.Tables.Sources != "people=file:/data/people.parquet" {
		t.Fatalf("Tables.Sources = %q", cfg.Tables.Sources)
	}
	if cfg.Tables.TempDir != "/var/tmp/pxql" {
		t.Fatalf("Tables.TempDir = %q", cfg.Tables.TempDir)
	}
	if cfg.Query.MaxRowLimit != 250 {
		t.Fatalf("Query.MaxRowLimit = %d", cfg.Query.MaxRowLimit)
	}
	if cfg.Query.Timeout != 7*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"PXQL_PROFILE": "oops"},
		{"PXQL_HTTP_READ_TIMEOUT": "NaN"},
		{"PXQL_POSTGRES_MAX_OPEN_CONNS": "oops"},
		{"PXQL_QUERY_MAX_ROW_LIMIT": "oops"},
		{"PXQL_QUERY_MAX_ROW_LIMIT": "0"},
		{"PXQL_QUERY_TIMEOUT": "-1s"},
		{"PXQL_AUTH_REQUIRED": "not-bool"},
		{"PXQL_LOG_LEVEL": "verbose"},
		{"PXQL_HTTP_ADDR": ""},
	}
	for _, env := range tests {
		_, err := Load("pxql-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
