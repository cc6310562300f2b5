package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies pending embedded migrations for the store's dialect. Each
// file runs in its own transaction and is recorded in schema_migrations.
func Migrate(ctx context.Context, db *DB) (applied int, err error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) NOT NULL PRIMARY KEY
	)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	dir := path.Join("migrations", db.Dialect.Name)
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return 0, fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	txm := NewTxManager(db, 0)
	b := db.Dialect.Builder()
	for _, name := range names {
		done, err := migrationApplied(ctx, db, b, name)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		body, err := migrationsFS.ReadFile(path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}

		err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
			q := txm.GetQuerier(ctx)
			for _, stmt := range splitStatements(string(body)) {
				if _, err := q.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("%s: %w", firstLine(stmt), err)
				}
			}
			query, args, err := b.Insert("schema_migrations").Columns("version").Values(name).ToSql()
			if err != nil {
				return err
			}
			_, err = q.ExecContext(ctx, query, args...)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied++
		logger.Info(ctx, "migration applied", "version", name, "dialect", db.Dialect.Name)
	}
	return applied, nil
}

func migrationApplied(ctx context.Context, db *DB, b sq.StatementBuilderType, name string) (bool, error) {
	n, err := scanInt64(ctx, db, b.Select("COUNT(*)").From("schema_migrations").Where(sq.Eq{"version": name}))
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return n > 0, nil
}

// splitStatements splits a migration on statement-terminating semicolons.
// Migrations never contain semicolons inside statements.
func splitStatements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
