package social

import (
	"context"
	"fmt"
	"net/http"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/domain/crud"
)

// mustExist rejects with 404 when no row of table has the given id.
func mustExist(ctx context.Context, store Store, table string, key any, what string) error {
	if key == nil {
		return apperror.Reject(http.StatusNotFound, what+" not found")
	}
	ok, err := store.Exists(ctx, table, map[string]any{"id": key})
	if err != nil {
		return fmt.Errorf("check %s: %w", what, err)
	}
	if !ok {
		return apperror.Reject(http.StatusNotFound, what+" not found").WithDetail("id", key)
	}
	return nil
}

// mustBeNew rejects with 409 when a row matching where already exists.
func mustBeNew(ctx context.Context, store Store, table string, where map[string]any, msg string) error {
	ok, err := store.Exists(ctx, table, where)
	if err != nil {
		return fmt.Errorf("check duplicate %s: %w", table, err)
	}
	if ok {
		return apperror.Reject(http.StatusConflict, msg)
	}
	return nil
}

// findRow loads one row by id, or nil.
func findRow(ctx context.Context, store Store, table string, key any) (crud.Record, error) {
	rows, err := store.Rows(ctx, table, map[string]any{"id": key})
	if err != nil {
		return nil, fmt.Errorf("load %s %v: %w", table, key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func int64Of(r crud.Record, key string) int64 {
	n, _ := r.Int(key)
	return n
}

// keyInt converts an inserted or path key to int64; 0 when it is not numeric.
func keyInt(key any) int64 {
	return int64Of(crud.Record{"id": key}, "id")
}
