package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"pomegranate/internal/domain/crud"
)

// queryRecords runs a select and scans every row into a Record.
func queryRecords(ctx context.Context, q Querier, b sq.Sqlizer) ([]crud.Record, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := sqlscan.ScanAll(&raw, rows); err != nil {
		return nil, err
	}

	out := make([]crud.Record, len(raw))
	for i, m := range raw {
		out[i] = normalizeRow(m, types)
	}
	return out, nil
}

// queryRecord returns the first row or nil.
func queryRecord(ctx context.Context, q Querier, b sq.Sqlizer) (crud.Record, error) {
	recs, err := queryRecords(ctx, q, b)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// normalizeRow turns driver byte slices into strings or numbers. MySQL's text
// protocol returns every column as []byte; column types tell numbers apart.
func normalizeRow(m map[string]any, types []*sql.ColumnType) crud.Record {
	kinds := make(map[string]string, len(types))
	for _, t := range types {
		kinds[t.Name()] = strings.ToUpper(t.DatabaseTypeName())
	}

	rec := make(crud.Record, len(m))
	for k, v := range m {
		b, ok := v.([]byte)
		if !ok {
			rec[k] = v
			continue
		}
		rec[k] = convertBytes(b, kinds[k])
	}
	return rec
}

func convertBytes(b []byte, dbType string) any {
	s := string(b)
	switch {
	case strings.Contains(dbType, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case dbType == "DECIMAL" || dbType == "FLOAT" || dbType == "DOUBLE" || dbType == "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// scanInt64 runs a single-value query such as COUNT(*).
func scanInt64(ctx context.Context, q Querier, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
