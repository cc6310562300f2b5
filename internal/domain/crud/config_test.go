package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomegranate/internal/core/apperror"
)

func TestEntityConfig_Validate(t *testing.T) {
	valid := func() EntityConfig {
		return EntityConfig{
			Name:           "comments",
			Table:          "comments",
			Columns:        []string{"user_id", "post_id", "content", "parent_id", "like_count", "created_at"},
			RequiredFields: []string{"user_id", "post_id", "content"},
			UpdateFields:   []string{"content"},
			SearchFields:   map[string]SearchField{"content": Fuzzy(), "post_id": EqInt()},
			SortFields:     []string{"id", "like_count", "created_at"},
			DefaultOrderBy: "created_at DESC",
			Cascades: []CascadeRule{
				{Table: "likes", Column: "target_id", Condition: map[string]any{"target_type": 2}},
				{Table: "comments", Column: "parent_id"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *EntityConfig)
		wantErr string
	}{
		{"valid", func(*EntityConfig) {}, ""},
		{"empty table", func(c *EntityConfig) { c.Table = " " }, "table is required"},
		{"empty name", func(c *EntityConfig) { c.Name = "" }, "name is required"},
		{"no writable fields", func(c *EntityConfig) { c.RequiredFields, c.UpdateFields = nil, nil }, "both empty"},
		{"no default order", func(c *EntityConfig) { c.DefaultOrderBy = "" }, "defaultOrderBy"},
		{"cascade without column", func(c *EntityConfig) { c.Cascades[1].Column = "" }, "cascade rule 1"},
		{"cascade without table", func(c *EntityConfig) { c.Cascades[0].Table = "" }, "cascade rule 0"},
		{"update field not a column", func(c *EntityConfig) { c.UpdateFields = []string{"body"} }, `update field "body"`},
		{"sort field not a column", func(c *EntityConfig) { c.SortFields = []string{"rank"} }, `sort field "rank"`},
		{"search field not a column", func(c *EntityConfig) { c.SearchFields["nickname"] = Eq() }, `search field "nickname"`},
		{"search field with column override", func(c *EntityConfig) {
			c.SearchFields["nickname"] = SearchField{Operator: Equal, Column: "u.nickname"}
		}, ""},
		{"bad operator", func(c *EntityConfig) { c.SearchFields["content"] = SearchField{Operator: "~"} }, "unknown operator"},
		{"columns unknown", func(c *EntityConfig) { c.Columns = nil; c.UpdateFields = []string{"anything"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.IsConfig(err))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEntityConfig_Defaults(t *testing.T) {
	c := EntityConfig{Name: "survey_questions", Table: "survey_questions", RequiredFields: []string{"q"}, DefaultOrderBy: "id"}.withDefaults()

	assert.Equal(t, "id", c.PrimaryKey)
	assert.Equal(t, "survey_questions", c.Route)
	assert.IsType(t, NopHooks{}, c.Hooks)
	assert.Equal(t, "survey question", c.DisplayName())
}

func TestEntityConfig_WritableAndVisible(t *testing.T) {
	c := EntityConfig{
		Name:           "admins",
		Table:          "admin",
		PrimaryKey:     "username",
		Columns:        []string{"username", "password", "created_at"},
		HiddenFields:   []string{"password"},
		RequiredFields: []string{"username", "password"},
		UpdateFields:   []string{"password"},
	}

	assert.Equal(t, []string{"username", "password"}, c.Writable())
	assert.Equal(t, []string{"username", "created_at"}, c.Visible())
}

func TestEntityConfig_CreateFieldsAreInsertOnly(t *testing.T) {
	c := EntityConfig{
		Name:           "sessions",
		Table:          "user_sessions",
		Columns:        []string{"user_id", "token", "user_agent", "is_active"},
		RequiredFields: []string{"user_id"},
		UpdateFields:   []string{"user_agent", "is_active"},
		CreateFields:   []string{"token", "user_id"},
		DefaultOrderBy: "created_at DESC",
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"user_id", "user_agent", "is_active", "token"}, c.Writable())

	c.CreateFields = []string{"nope"}
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, apperror.IsConfig(err))
}
