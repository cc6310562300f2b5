package sqlstore

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/internal/domain/crud"
)

// BuildWhere translates list filters into a parameterized predicate. Only
// keys declared in fields contribute; values are always bound, never
// interpolated. Clauses appear in sorted key order. An empty result means no
// predicate.
func BuildWhere(fields map[string]crud.SearchField, params map[string]string) (string, []any) {
	return buildWhere("LIKE", fields, params)
}

func buildWhere(like string, fields map[string]crud.SearchField, params map[string]string) (string, []any) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var conds sq.And
	for _, k := range keys {
		f := fields[k]
		col := f.Column
		if col == "" {
			col = k
		}
		raw := params[k]

		var value any = raw
		if f.Numeric {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				continue
			}
			value = n
		}

		switch f.Operator {
		case crud.Like:
			conds = append(conds, sq.Expr(fmt.Sprintf("%s %s ?", col, like), "%"+raw+"%"))
		default:
			conds = append(conds, sq.Eq{col: value})
		}
	}
	if len(conds) == 0 {
		return "", nil
	}

	clause, args, err := conds.ToSql()
	if err != nil {
		return "", nil
	}
	return clause, args
}

// BuildOrderBy returns "<sortBy> ASC|DESC" when sortBy is allowed, otherwise
// def verbatim. sortOrder is case-insensitive and defaults to DESC.
func BuildOrderBy(allowed []string, sortBy, sortOrder, def string) string {
	columns := make(map[string]string, len(allowed))
	for _, a := range allowed {
		columns[a] = a
	}
	return buildOrderBy(columns, sortBy, sortOrder, def)
}

// buildOrderBy maps an allowed sort key to its (possibly qualified) column.
func buildOrderBy(columns map[string]string, sortBy, sortOrder, def string) string {
	col, ok := columns[sortBy]
	if !ok || sortBy == "" {
		return def
	}
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "ASC") {
		dir = "ASC"
	}
	return col + " " + dir
}

// columnsOf returns the selectable column list, or "*".
func columnsOf(cfg *crud.EntityConfig) []string {
	if cols := cfg.Visible(); len(cols) > 0 {
		return slices.Clone(cols)
	}
	return []string{"*"}
}
