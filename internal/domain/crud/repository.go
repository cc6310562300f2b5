package crud

import (
	"context"
	"time"
)

// Repository is the persistence contract the engine needs. Implementations
// must resolve the executor from ctx so calls join the active transaction,
// and must return *apperror.AppError for store failures.
type Repository interface {
	// Insert writes data and returns the new row's primary key.
	Insert(ctx context.Context, cfg *EntityConfig, data Record) (any, error)
	// Update writes data to the row with the given key, returning rows matched.
	Update(ctx context.Context, cfg *EntityConfig, key any, data Record) (int64, error)
	// Delete removes rows by primary key.
	Delete(ctx context.Context, cfg *EntityConfig, keys []any) (int64, error)
	// DeleteWhere removes rows of table whose column is in keys and that
	// match every equality in cond.
	DeleteWhere(ctx context.Context, table, column string, keys []any, cond map[string]any) (int64, error)
	// Exists reports whether table has a row matching where and not matching exclude.
	Exists(ctx context.Context, table string, where, exclude map[string]any) (bool, error)
	// FindOne returns the visible columns of one row, or nil when absent.
	FindOne(ctx context.Context, cfg *EntityConfig, key any) (Record, error)
	// FindList returns one page of visible rows and the total match count.
	FindList(ctx context.Context, cfg *EntityConfig, req ListRequest) ([]Record, int64, error)
}

// Action names written to the audit trail and metrics.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AuditEntry is one recorded change.
type AuditEntry struct {
	Entity string
	Key    any
	Action string
	Before Record
	After  Record
}

// Auditor records changes inside the write transaction.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Observer receives one call per operation for metrics.
type Observer interface {
	ObserveOperation(ctx context.Context, entity, op string, elapsed time.Duration, err error)
}
