package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/internal/domain/crud"
)

// Compile-time check that EntityRepo implements crud.Repository.
var _ crud.Repository = (*EntityRepo)(nil)

// EntityRepo is the generic repository behind every configured entity.
// Table and column names come from trusted EntityConfigs; values are bound.
type EntityRepo struct {
	txm *TxManager
}

// NewEntityRepo creates an EntityRepo.
func NewEntityRepo(txm *TxManager) *EntityRepo {
	return &EntityRepo{txm: txm}
}

func (r *EntityRepo) dialect() Dialect {
	return r.txm.db.Dialect
}

// Builder returns a squirrel builder for the store's placeholder format.
func (r *EntityRepo) Builder() sq.StatementBuilderType {
	return r.dialect().Builder()
}

// Insert writes data and returns the new primary key. When data carries the
// key itself (natural keys) it is returned as is.
func (r *EntityRepo) Insert(ctx context.Context, cfg *crud.EntityConfig, data crud.Record) (any, error) {
	q := r.txm.GetQuerier(ctx)
	b := r.Builder().Insert(cfg.Table).SetMap(map[string]any(data))

	if natural, ok := data[cfg.PrimaryKey]; ok {
		query, args, err := b.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return nil, wrapErr(err, cfg.Table)
		}
		return natural, nil
	}

	if r.dialect().Returning {
		query, args, err := b.Suffix("RETURNING " + cfg.PrimaryKey).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		var key int64
		if err := q.QueryRowContext(ctx, query, args...).Scan(&key); err != nil {
			return nil, wrapErr(err, cfg.Table)
		}
		return key, nil
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, cfg.Table)
	}
	key, err := res.LastInsertId()
	if err != nil {
		return nil, wrapErr(err, cfg.Table)
	}
	return key, nil
}

// Update writes data to one row and returns rows matched.
func (r *EntityRepo) Update(ctx context.Context, cfg *crud.EntityConfig, key any, data crud.Record) (int64, error) {
	query, args, err := r.Builder().
		Update(cfg.Table).
		SetMap(map[string]any(data)).
		Where(sq.Eq{cfg.PrimaryKey: key}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	return r.exec(ctx, cfg.Table, query, args)
}

// Delete removes rows by primary key.
func (r *EntityRepo) Delete(ctx context.Context, cfg *crud.EntityConfig, keys []any) (int64, error) {
	return r.DeleteWhere(ctx, cfg.Table, cfg.PrimaryKey, keys, nil)
}

// DeleteWhere removes rows whose column is one of keys and that match cond.
func (r *EntityRepo) DeleteWhere(ctx context.Context, table, column string, keys []any, cond map[string]any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	where := sq.Eq{column: keys}
	for k, v := range cond {
		where[k] = v
	}
	query, args, err := r.Builder().Delete(table).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	return r.exec(ctx, table, query, args)
}

// Exists reports whether a row matches where and does not match exclude.
// exclude is expected to hold a single key column.
func (r *EntityRepo) Exists(ctx context.Context, table string, where, exclude map[string]any) (bool, error) {
	b := r.Builder().Select("1").From(table).Where(sq.Eq(where)).Limit(1)
	if len(exclude) > 0 {
		b = b.Where(sq.NotEq(exclude))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var one int
	err = r.txm.GetQuerier(ctx).QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err, table)
	}
	return true, nil
}

// FindOne returns the visible columns of one row, or nil.
func (r *EntityRepo) FindOne(ctx context.Context, cfg *crud.EntityConfig, key any) (crud.Record, error) {
	b := r.Builder().
		Select(columnsOf(cfg)...).
		From(cfg.Table).
		Where(sq.Eq{cfg.PrimaryKey: key}).
		Limit(1)

	rec, err := queryRecord(ctx, r.txm.GetQuerier(ctx), b)
	if err != nil {
		return nil, wrapErr(err, cfg.Table)
	}
	return rec, nil
}

// FindList returns one filtered, ordered page and the total match count.
func (r *EntityRepo) FindList(ctx context.Context, cfg *crud.EntityConfig, req crud.ListRequest) ([]crud.Record, int64, error) {
	where, args := buildWhere(r.dialect().Like, cfg.SearchFields, req.Filters)
	q := r.txm.GetQuerier(ctx)

	count := r.Builder().Select("COUNT(*)").From(cfg.Table)
	if where != "" {
		count = count.Where(where, args...)
	}
	total, err := scanInt64(ctx, q, count)
	if err != nil {
		return nil, 0, wrapErr(err, cfg.Table)
	}

	sel := r.Builder().
		Select(columnsOf(cfg)...).
		From(cfg.Table).
		OrderBy(BuildOrderBy(cfg.SortFields, req.SortBy, req.SortOrder, cfg.DefaultOrderBy)).
		Limit(uint64(req.Limit)).
		Offset(uint64(req.Offset))
	if where != "" {
		sel = sel.Where(where, args...)
	}

	rows, err := queryRecords(ctx, q, sel)
	if err != nil {
		return nil, 0, wrapErr(err, cfg.Table)
	}
	return rows, total, nil
}

// AdjustCounter changes an integer column atomically in the store. Negative
// deltas floor the column at zero.
func (r *EntityRepo) AdjustCounter(ctx context.Context, table, column string, where map[string]any, delta int64) error {
	if delta == 0 {
		return nil
	}
	var expr sq.Sqlizer
	if delta > 0 {
		expr = sq.Expr(column+" + ?", delta)
	} else {
		n := -delta
		expr = sq.Expr(fmt.Sprintf("CASE WHEN %s > ? THEN %s - ? ELSE 0 END", column, column), n, n)
	}
	query, args, err := r.Builder().
		Update(table).
		Set(column, expr).
		Where(sq.Eq(where)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build counter update: %w", err)
	}
	_, err = r.exec(ctx, table, query, args)
	return err
}

func (r *EntityRepo) exec(ctx context.Context, table, query string, args []any) (int64, error) {
	res, err := r.txm.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(err, table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(err, table)
	}
	return n, nil
}
