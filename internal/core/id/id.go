// Package id parses entity keys from request paths and generates tokens.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Kind describes how an entity's primary key is represented.
type Kind int

const (
	// Int keys are auto-increment integers.
	Int Kind = iota
	// String keys are natural keys such as a username.
	String
)

// Parse converts a raw path segment into a key value suitable for binding.
func Parse(raw string, kind Kind) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty key")
	}
	if kind == String {
		return raw, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid key %q", raw)
	}
	return n, nil
}

// ParseAny normalizes a decoded JSON value (number or string) into a key.
func ParseAny(v any, kind Kind) (any, error) {
	switch t := v.(type) {
	case string:
		return Parse(t, kind)
	case int64:
		return Parse(strconv.FormatInt(t, 10), kind)
	case int:
		return Parse(strconv.Itoa(t), kind)
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("invalid key %v", t)
		}
		return Parse(strconv.FormatInt(int64(t), 10), kind)
	case fmt.Stringer:
		return Parse(t.String(), kind)
	default:
		return nil, fmt.Errorf("invalid key %v", v)
	}
}

// NewToken returns a lexicographically sortable unique token.
func NewToken() string {
	return ulid.Make().String()
}

// NewSecret returns n random bytes encoded as hex.
func NewSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
