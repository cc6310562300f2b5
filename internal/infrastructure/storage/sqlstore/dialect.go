// Package sqlstore implements the relational store over database/sql for
// PostgreSQL, MySQL and SQLite.
package sqlstore

import (
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between supported stores.
type Dialect struct {
	// Name is the config value selecting this dialect.
	Name string
	// Driver is the database/sql driver name.
	Driver      string
	Placeholder sq.PlaceholderFormat
	// Returning reports support for INSERT ... RETURNING.
	Returning bool
	// StatementTimeout reports support for SET LOCAL statement_timeout.
	StatementTimeout bool
	// Like is the case-insensitive substring operator.
	Like   string
	System attribute.KeyValue
}

var (
	Postgres = Dialect{
		Name:             "postgres",
		Driver:           "pgx",
		Placeholder:      sq.Dollar,
		Returning:        true,
		StatementTimeout: true,
		Like:             "ILIKE",
		System:           semconv.DBSystemPostgreSQL,
	}
	MySQL = Dialect{
		Name:        "mysql",
		Driver:      "mysql",
		Placeholder: sq.Question,
		Like:        "LIKE",
		System:      semconv.DBSystemMySQL,
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		Placeholder: sq.Question,
		Returning:   true,
		Like:        "LIKE",
		System:      semconv.DBSystemSqlite,
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// Builder returns a squirrel statement builder with this dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// PrepareDSN adds the connection options the store relies on.
//
// MySQL reports matched rather than changed rows so an update that writes
// identical values still counts as affected, and scans DATETIME into
// time.Time. SQLite enforces foreign keys, waits on a busy database and writes
// times in a format that compares with CURRENT_TIMESTAMP.
func (d Dialect) PrepareDSN(dsn string) (string, error) {
	switch d.Name {
	case MySQL.Name:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		if _, ok := cfg.Params["charset"]; !ok {
			cfg.Params["charset"] = "utf8mb4"
		}
		return cfg.FormatDSN(), nil
	case SQLite.Name:
		base, query, _ := strings.Cut(dsn, "?")
		values, err := url.ParseQuery(query)
		if err != nil {
			return "", fmt.Errorf("parse sqlite dsn: %w", err)
		}
		pragmas := strings.Join(values["_pragma"], ",")
		if !strings.Contains(pragmas, "foreign_keys") {
			values.Add("_pragma", "foreign_keys(1)")
		}
		if !strings.Contains(pragmas, "busy_timeout") {
			values.Add("_pragma", "busy_timeout(5000)")
		}
		if values.Get("_time_format") == "" {
			values.Set("_time_format", "sqlite")
		}
		return base + "?" + values.Encode(), nil
	default:
		return dsn, nil
	}
}
