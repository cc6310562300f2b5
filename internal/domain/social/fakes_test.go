package social

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pomegranate/internal/domain/crud"
)

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	tables   map[string][]crud.Record
	nextID   int64
	tagErr   error
	counters []string
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string][]crud.Record)}
}

func (m *memStore) seed(table string, rows ...crud.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if _, ok := r["id"]; !ok {
			m.nextID++
			r["id"] = m.nextID
		}
		m.tables[table] = append(m.tables[table], r)
	}
}

func (m *memStore) row(table string, key int64) crud.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[table] {
		if int64Of(r, "id") == key {
			return r
		}
	}
	return nil
}

func (m *memStore) all(table string) []crud.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tables[table])
}

func same(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func matches(r crud.Record, where map[string]any) bool {
	for k, want := range where {
		switch w := want.(type) {
		case []any:
			if !slices.ContainsFunc(w, func(v any) bool { return same(r[k], v) }) {
				return false
			}
		default:
			if !same(r[k], w) {
				return false
			}
		}
	}
	return true
}

func (m *memStore) Exists(ctx context.Context, table string, where map[string]any) (bool, error) {
	n, err := m.Count(ctx, table, where)
	return n > 0, err
}

func (m *memStore) Rows(_ context.Context, table string, where map[string]any) ([]crud.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []crud.Record
	for _, r := range m.tables[table] {
		if matches(r, where) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, table string, where map[string]any) (int64, error) {
	rows, err := m.Rows(ctx, table, where)
	return int64(len(rows)), err
}

func (m *memStore) AdjustCounter(_ context.Context, table, column string, where map[string]any, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, fmt.Sprintf("%s.%s%+d", table, column, delta))
	for _, r := range m.tables[table] {
		if matches(r, where) {
			r[column] = max(int64Of(r, column)+delta, 0)
		}
	}
	return nil
}

func (m *memStore) EnsureTag(_ context.Context, name string) (int64, error) {
	if m.tagErr != nil {
		return 0, m.tagErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables["tags"] {
		if r["name"] == name {
			return int64Of(r, "id"), nil
		}
	}
	m.nextID++
	m.tables["tags"] = append(m.tables["tags"], crud.Record{"id": m.nextID, "name": name, "use_count": int64(0)})
	return m.nextID, nil
}

func (m *memStore) PostTagIDs(_ context.Context, postIDs []any) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, r := range m.tables["post_tags"] {
		if matches(r, map[string]any{"post_id": postIDs}) {
			out = append(out, int64Of(r, "tag_id"))
		}
	}
	return out, nil
}

func (m *memStore) ReplacePostTags(_ context.Context, postID any, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables["post_tags"] = slices.DeleteFunc(m.tables["post_tags"], func(r crud.Record) bool {
		return same(r["post_id"], postID)
	})
	for _, t := range tagIDs {
		m.tables["post_tags"] = append(m.tables["post_tags"], crud.Record{"post_id": postID, "tag_id": t})
	}
	return nil
}

func (m *memStore) ReplacePostImages(_ context.Context, postID any, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables["post_images"] = slices.DeleteFunc(m.tables["post_images"], func(r crud.Record) bool {
		return same(r["post_id"], postID)
	})
	for _, u := range urls {
		m.tables["post_images"] = append(m.tables["post_images"], crud.Record{"post_id": postID, "image_url": u})
	}
	return nil
}

func (m *memStore) InsertNotification(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.tables["notifications"] = append(m.tables["notifications"], crud.Record{
		"id":         m.nextID,
		"user_id":    n.UserID,
		"sender_id":  n.SenderID,
		"type":       int64(n.Type),
		"title":      n.Title,
		"target_id":  n.TargetID,
		"comment_id": n.CommentID,
	})
	return nil
}

func (m *memStore) UserKeys(_ context.Context, publicIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, r := range m.tables["users"] {
		if pid := r.String("user_id"); slices.Contains(publicIDs, pid) {
			out[pid] = int64Of(r, "id")
		}
	}
	return out, nil
}

// fakeUploader returns a fixed URL per payload, or fails payloads listed in fail.
type fakeUploader struct {
	fail  map[string]bool
	calls int
}

func (u *fakeUploader) UploadDataURL(_ context.Context, dataURL string) (string, error) {
	u.calls++
	if u.fail[dataURL] {
		return "", errors.New("upstream 500")
	}
	return fmt.Sprintf("https://img.example/%d.png", u.calls), nil
}

type fakeGeo struct {
	loc string
	err error
}

func (g fakeGeo) Locate(context.Context, string) (string, error) {
	return g.loc, g.err
}

// memRepo exposes memStore as the engine's generic repository so entity
// configs can be exercised end to end.
type memRepo struct {
	*memStore
}

func (r memRepo) Insert(_ context.Context, cfg *crud.EntityConfig, data crud.Record) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := data.Clone()
	key, ok := row[cfg.PrimaryKey]
	if !ok {
		r.nextID++
		key = r.nextID
		row[cfg.PrimaryKey] = key
	}
	r.tables[cfg.Table] = append(r.tables[cfg.Table], row)
	return key, nil
}

func (r memRepo) Update(_ context.Context, cfg *crud.EntityConfig, key any, data crud.Record) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.tables[cfg.Table] {
		if same(row[cfg.PrimaryKey], key) {
			for k, v := range data {
				row[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (r memRepo) Delete(ctx context.Context, cfg *crud.EntityConfig, keys []any) (int64, error) {
	return r.DeleteWhere(ctx, cfg.Table, cfg.PrimaryKey, keys, nil)
}

func (r memRepo) DeleteWhere(_ context.Context, table, column string, keys []any, cond map[string]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.tables[table])
	r.tables[table] = slices.DeleteFunc(r.tables[table], func(row crud.Record) bool {
		return matches(row, map[string]any{column: keys}) && matches(row, cond)
	})
	return int64(before - len(r.tables[table])), nil
}

func (r memRepo) Exists(ctx context.Context, table string, where, exclude map[string]any) (bool, error) {
	rows, _ := r.Rows(ctx, table, where)
	for _, row := range rows {
		if len(exclude) == 0 || !matches(row, exclude) {
			return true, nil
		}
	}
	return false, nil
}

func (r memRepo) FindOne(ctx context.Context, cfg *crud.EntityConfig, key any) (crud.Record, error) {
	rows, _ := r.Rows(ctx, cfg.Table, map[string]any{cfg.PrimaryKey: key})
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r memRepo) FindList(ctx context.Context, cfg *crud.EntityConfig, _ crud.ListRequest) ([]crud.Record, int64, error) {
	rows, _ := r.Rows(ctx, cfg.Table, nil)
	return rows, int64(len(rows)), nil
}

// directTx runs fn without isolation.
type directTx struct{}

func (directTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (directTx) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// newRegistry registers every entity over one shared memStore.
func newRegistry(t *testing.T, store *memStore, d Deps) *crud.Registry {
	t.Helper()
	d.Store = store
	reg, err := crud.NewRegistry(crud.Deps{Repo: memRepo{store}, Tx: directTx{}}, Entities(d)...)
	require.NoError(t, err)
	return reg
}

func service(t *testing.T, reg *crud.Registry, name string) *crud.RouteSet {
	t.Helper()
	rs, ok := reg.Get(name)
	require.True(t, ok, "entity %s not registered", name)
	return rs
}
