// Package crud turns declarative entity configs into validated,
// transactional create/update/delete/read operations.
package crud

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jinzhu/inflection"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/id"
)

// Operator is a search comparison.
type Operator string

const (
	// Equal matches the value exactly.
	Equal Operator = "="
	// Like matches the value as a substring.
	Like Operator = "LIKE"
)

// SearchField describes one allowed list filter.
type SearchField struct {
	Operator Operator
	// Column overrides the filtered column (e.g. "p.title" in a joined view).
	Column string
	// Numeric filters ignore values that do not parse as integers.
	Numeric bool
}

// Eq is shorthand for an exact-match text filter.
func Eq() SearchField { return SearchField{Operator: Equal} }

// EqInt is shorthand for an exact-match integer filter.
func EqInt() SearchField { return SearchField{Operator: Equal, Numeric: true} }

// Fuzzy is shorthand for a substring filter.
func Fuzzy() SearchField { return SearchField{Operator: Like} }

// CascadeRule deletes rows of Table whose Column references a deleted parent.
// Condition adds equality predicates, e.g. {"target_type": 1} for likes that
// point at posts.
type CascadeRule struct {
	Table     string
	Column    string
	Condition map[string]any
}

// Access controls which principals may reach an entity's routes.
type Access int

const (
	// AdminOnly routes require an admin principal.
	AdminOnly Access = iota
	// Authenticated routes accept any principal.
	Authenticated
)

// CustomQueries fully replace the default read path when set.
type CustomQueries struct {
	GetOne  func(ctx context.Context, key any) (Record, error)
	GetList func(ctx context.Context, req ListRequest) ([]Record, int64, error)
}

// EntityConfig declares one CRUD resource. It is built once at startup and
// treated as read-only afterwards.
type EntityConfig struct {
	// Name identifies the entity in logs, metrics and error messages (plural).
	Name string
	// Route is the path segment, defaults to Name.
	Route string
	Table string
	// PrimaryKey defaults to "id".
	PrimaryKey string
	KeyKind    id.Kind

	// Columns lists the table's columns. When set, every other field list is
	// checked against it and reads select only these columns.
	Columns []string
	// HiddenFields are never returned by the default read path.
	HiddenFields []string

	RequiredFields []string
	UpdateFields   []string
	UniqueFields   []string
	// CreateFields are extra columns an INSERT writes. BeforeCreate must set
	// or validate them.
	CreateFields []string

	SearchFields   map[string]SearchField
	SortFields     []string
	DefaultOrderBy string

	Cascades []CascadeRule
	Hooks    Hooks
	Queries  CustomQueries
	Access   Access
}

// Validate checks the config's internal consistency.
func (c *EntityConfig) Validate() error {
	name := c.Name
	if name == "" {
		name = c.Table
	}
	fail := func(format string, args ...any) error {
		return apperror.NewConfig(name, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Name) == "" {
		return fail("name is required")
	}
	if strings.TrimSpace(c.Table) == "" {
		return fail("table is required")
	}
	if len(c.RequiredFields) == 0 && len(c.UpdateFields) == 0 {
		return fail("requiredFields and updateFields are both empty")
	}
	if strings.TrimSpace(c.DefaultOrderBy) == "" {
		return fail("defaultOrderBy is required")
	}
	for i, rule := range c.Cascades {
		if rule.Table == "" || rule.Column == "" {
			return fail("cascade rule %d must name a dependent table and a foreign key field", i)
		}
	}

	if len(c.Columns) == 0 {
		return nil
	}
	checks := []struct {
		kind   string
		fields []string
	}{
		{"required", c.RequiredFields},
		{"update", c.UpdateFields},
		{"create", c.CreateFields},
		{"unique", c.UniqueFields},
		{"sort", c.SortFields},
		{"hidden", c.HiddenFields},
	}
	for _, check := range checks {
		for _, f := range check.fields {
			if !c.hasColumn(f) {
				return fail("%s field %q is not a column of %s", check.kind, f, c.Table)
			}
		}
	}
	for f, sf := range c.SearchFields {
		if sf.Column == "" && !c.hasColumn(f) {
			return fail("search field %q is not a column of %s", f, c.Table)
		}
		if sf.Operator != Equal && sf.Operator != Like {
			return fail("search field %q has unknown operator %q", f, sf.Operator)
		}
	}
	return nil
}

func (c *EntityConfig) hasColumn(name string) bool {
	return name == c.pk() || slices.Contains(c.Columns, name)
}

func (c *EntityConfig) pk() string {
	if c.PrimaryKey == "" {
		return "id"
	}
	return c.PrimaryKey
}

// withDefaults returns a copy with empty optional attributes filled in.
func (c EntityConfig) withDefaults() *EntityConfig {
	c.PrimaryKey = c.pk()
	if c.Route == "" {
		c.Route = c.Name
	}
	if c.Hooks == nil {
		c.Hooks = NopHooks{}
	}
	return &c
}

// Writable returns the union of required, update and create fields, the only
// fields an INSERT may carry.
func (c *EntityConfig) Writable() []string {
	out := make([]string, 0, len(c.RequiredFields)+len(c.UpdateFields)+len(c.CreateFields))
	out = append(out, c.RequiredFields...)
	for _, list := range [][]string{c.UpdateFields, c.CreateFields} {
		for _, f := range list {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}

// Visible returns the columns the default read path selects. Nil means all.
func (c *EntityConfig) Visible() []string {
	if len(c.Columns) == 0 {
		return nil
	}
	out := []string{c.pk()}
	for _, col := range c.Columns {
		if col != c.pk() && !slices.Contains(c.HiddenFields, col) {
			out = append(out, col)
		}
	}
	return out
}

// DisplayName is the singular human name used in messages ("post", "survey question").
func (c *EntityConfig) DisplayName() string {
	return strings.ReplaceAll(inflection.Singular(c.Name), "_", " ")
}
