package sqlstore

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pomegranate/internal/core/apperror"
)

type violation int

const (
	noViolation violation = iota
	uniqueViolation
	foreignKeyViolation
)

// classify recognizes constraint violations across drivers.
func classify(err error) violation {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueViolation
		case "23503":
			return foreignKeyViolation
		}
		return noViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return uniqueViolation
		case 1451, 1452:
			return foreignKeyViolation
		}
		return noViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return uniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return foreignKeyViolation
		}
	}
	return noViolation
}

// wrapErr maps a driver error into the error taxonomy. Constraint violations
// become 409 conflicts; everything else is a persistence failure.
func wrapErr(err error, table string) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	switch classify(err) {
	case uniqueViolation:
		return apperror.NewConflict("duplicate entry").
			WithDetail("table", table).
			WithCause(err)
	case foreignKeyViolation:
		return apperror.NewConflict("referenced record is missing or still in use").
			WithDetail("table", table).
			WithCause(err)
	default:
		return apperror.NewPersistence(err).WithDetail("table", table)
	}
}
