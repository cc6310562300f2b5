package crud

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// memRepo is an in-memory Repository keyed by table name.
type memRepo struct {
	mu      sync.Mutex
	tables  map[string][]Record
	nextID  int64
	cascade []string
}

func newMemRepo() *memRepo {
	return &memRepo{tables: make(map[string][]Record)}
}

func same(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func (m *memRepo) seed(table string, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if _, ok := r["id"]; !ok {
			m.nextID++
			r["id"] = m.nextID
		}
		m.tables[table] = append(m.tables[table], r.Clone())
	}
}

func (m *memRepo) rows(table string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tables[table])
}

func (m *memRepo) snapshot() map[string][]Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]Record, len(m.tables))
	for t, rows := range m.tables {
		cp := make([]Record, len(rows))
		for i, r := range rows {
			cp[i] = r.Clone()
		}
		out[t] = cp
	}
	return out
}

func (m *memRepo) restore(s map[string][]Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = s
}

func (m *memRepo) Insert(_ context.Context, cfg *EntityConfig, data Record) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := data.Clone()
	key, ok := row[cfg.PrimaryKey]
	if !ok {
		m.nextID++
		key = m.nextID
		row[cfg.PrimaryKey] = key
	}
	m.tables[cfg.Table] = append(m.tables[cfg.Table], row)
	return key, nil
}

func (m *memRepo) Update(_ context.Context, cfg *EntityConfig, key any, data Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.tables[cfg.Table] {
		if same(r[cfg.PrimaryKey], key) {
			for k, v := range data {
				r[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Delete(_ context.Context, cfg *EntityConfig, keys []any) (int64, error) {
	return m.deleteWhere(cfg.Table, cfg.PrimaryKey, keys, nil), nil
}

func (m *memRepo) DeleteWhere(_ context.Context, table, column string, keys []any, cond map[string]any) (int64, error) {
	m.mu.Lock()
	m.cascade = append(m.cascade, table+"."+column)
	m.mu.Unlock()
	return m.deleteWhere(table, column, keys, cond), nil
}

func (m *memRepo) deleteWhere(table, column string, keys []any, cond map[string]any) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []Record
	var n int64
	for _, r := range m.tables[table] {
		if matchesAny(r[column], keys) && matchesAll(r, cond) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return n
}

func matchesAny(v any, keys []any) bool {
	for _, k := range keys {
		if same(v, k) {
			return true
		}
	}
	return false
}

func matchesAll(r Record, cond map[string]any) bool {
	for k, v := range cond {
		if !same(r[k], v) {
			return false
		}
	}
	return true
}

func (m *memRepo) Exists(_ context.Context, table string, where, exclude map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[table] {
		if !matchesAll(r, where) {
			continue
		}
		if len(exclude) > 0 && matchesAll(r, exclude) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *memRepo) FindOne(_ context.Context, cfg *EntityConfig, key any) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[cfg.Table] {
		if same(r[cfg.PrimaryKey], key) {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memRepo) FindList(_ context.Context, cfg *EntityConfig, req ListRequest) ([]Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Record
	for _, r := range m.tables[cfg.Table] {
		ok := true
		for f, v := range req.Filters {
			sf, declared := cfg.SearchFields[f]
			if !declared {
				continue
			}
			if sf.Operator == Like {
				ok = ok && strings.Contains(fmt.Sprint(r[f]), v)
			} else {
				ok = ok && same(r[f], v)
			}
		}
		if ok {
			matched = append(matched, r.Clone())
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, _ := matched[i].Int(cfg.PrimaryKey)
		b, _ := matched[j].Int(cfg.PrimaryKey)
		return a < b
	})
	total := int64(len(matched))
	start := min(req.Offset, len(matched))
	end := min(start+req.Limit, len(matched))
	return matched[start:end], total, nil
}

// memTx snapshots the repo on entry and restores it when fn fails.
type memTx struct {
	repo       *memRepo
	savepoints int
	inTx       bool
}

func (t *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.repo.snapshot()
	outer := t.inTx
	t.inTx = true
	defer func() { t.inTx = outer }()
	if err := fn(ctx); err != nil {
		t.repo.restore(snap)
		return err
	}
	return nil
}

func (t *memTx) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	t.savepoints++
	return t.RunInTransaction(ctx, fn)
}

// recordingHooks captures calls and lets tests inject behavior.
type recordingHooks struct {
	NopHooks
	calls          []string
	deleteManyArgs [][]any
	beforeCreate   func(ctx context.Context, data Record) error
	afterCreate    func(ctx context.Context, key any, data Record) error
	beforeUpdate   func(ctx context.Context, key any, data Record) error
}

func (h *recordingHooks) BeforeCreate(ctx context.Context, data Record) error {
	h.calls = append(h.calls, "beforeCreate")
	if h.beforeCreate != nil {
		return h.beforeCreate(ctx, data)
	}
	return nil
}

func (h *recordingHooks) AfterCreate(ctx context.Context, key any, data Record) error {
	h.calls = append(h.calls, "afterCreate")
	if h.afterCreate != nil {
		return h.afterCreate(ctx, key, data)
	}
	return nil
}

func (h *recordingHooks) BeforeUpdate(ctx context.Context, key any, data Record) error {
	h.calls = append(h.calls, "beforeUpdate")
	if h.beforeUpdate != nil {
		return h.beforeUpdate(ctx, key, data)
	}
	return nil
}

func (h *recordingHooks) AfterUpdate(context.Context, any, Record) error {
	h.calls = append(h.calls, "afterUpdate")
	return nil
}

func (h *recordingHooks) BeforeDelete(context.Context, any) error {
	h.calls = append(h.calls, "beforeDelete")
	return nil
}

func (h *recordingHooks) BeforeDeleteMany(_ context.Context, keys []any) error {
	h.calls = append(h.calls, "beforeDeleteMany")
	h.deleteManyArgs = append(h.deleteManyArgs, keys)
	return nil
}
