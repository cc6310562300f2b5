package crud

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one entity payload or row, keyed by column name.
type Record map[string]any

// Normalize converts decoded JSON values into values every SQL driver binds
// the same way: json.Number and integral floats become int64, booleans
// become 0/1.
func (r Record) Normalize() Record {
	for k, v := range r {
		r[k] = normalizeValue(v)
	}
	return r
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case int:
		return int64(t)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// Has reports whether key is present with a non-empty value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && !isEmpty(v)
}

// String returns the value at key formatted as a string, or "".
func (r Record) String(key string) string {
	switch t := r[key].(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the value at key as an int64 when it holds an integer or a
// numeric string.
func (r Record) Int(key string) (int64, bool) {
	switch t := normalizeValue(r[key]).(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// SetDefault assigns value when key is absent or nil.
func (r Record) SetDefault(key string, value any) {
	if v, ok := r[key]; !ok || v == nil {
		r[key] = value
	}
}

// Pick returns a new record holding only the listed fields present in r.
// Nested objects and arrays are JSON-encoded so they bind as text.
func (r Record) Pick(fields []string) (Record, error) {
	out := make(Record, len(fields))
	for _, f := range fields {
		v, ok := r[f]
		if !ok {
			continue
		}
		switch v.(type) {
		case map[string]any, []any, []string, Record:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", f, err)
			}
			v = string(b)
		}
		out[f] = v
	}
	return out, nil
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
