package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/social"
	"pomegranate/internal/infrastructure/storage/sqlstore"
)

const fixtureYAML = `
entities:
  - name: tags
    records:
      - name: golang
        description: Go posts
      - name: sql
  - name: survey_questions
    records:
      - question_text: How did you find us?
        question_type: single
        options: '["friend","search"]'
        sort_order: 1
`

func newSeedEnv(t *testing.T, name string) (*sqlstore.TxManager, *crud.Registry) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.Open(ctx, sqlstore.DefaultConfig("sqlite", "file:"+name+"?mode=memory&cache=private"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = sqlstore.Migrate(ctx, db)
	require.NoError(t, err)

	txm := sqlstore.NewTxManager(db, 0)
	reg, err := crud.NewRegistry(
		crud.Deps{Repo: sqlstore.NewEntityRepo(txm), Tx: txm},
		social.Entities(social.Deps{Store: sqlstore.NewSocialStore(txm)})...,
	)
	require.NoError(t, err)
	return txm, reg
}

func TestParseFixtures(t *testing.T) {
	fx, err := parseFixtures(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, fx.Entities, 2)
	assert.Equal(t, "tags", fx.Entities[0].Name)
	assert.Len(t, fx.Entities[0].Records, 2)
	assert.Equal(t, 1, fx.Entities[1].Records[0]["sort_order"])
}

func TestParseFixtures_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"unknown key", "entitys: []"},
		{"missing name", "entities:\n  - records: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFixtures(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestApplyFixtures(t *testing.T) {
	txm, reg := newSeedEnv(t, "seed_apply")
	fx, err := parseFixtures(strings.NewReader(fixtureYAML))
	require.NoError(t, err)

	created, err := applyFixtures(context.Background(), txm, reg, fx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tags": 2, "survey_questions": 1}, created)

	tags, _ := reg.Get("tags")
	res, err := tags.GetList(context.Background(), crud.ListRequest{Pagination: crud.Pagination{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Pagination.Total)
}

func TestApplyFixtures_RollsBackOnFailure(t *testing.T) {
	txm, reg := newSeedEnv(t, "seed_rollback")
	fx := &Fixtures{Entities: []EntityFixture{
		{Name: "tags", Records: []map[string]any{{"name": "first"}, {"description": "no name"}}},
	}}

	_, err := applyFixtures(context.Background(), txm, reg, fx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tags[1]")

	tags, _ := reg.Get("tags")
	res, err := tags.GetList(context.Background(), crud.ListRequest{Pagination: crud.Pagination{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Zero(t, res.Pagination.Total)
}

func TestApplyFixtures_UnknownEntity(t *testing.T) {
	txm, reg := newSeedEnv(t, "seed_unknown")
	_, err := applyFixtures(context.Background(), txm, reg, &Fixtures{Entities: []EntityFixture{{Name: "widgets"}}})
	assert.ErrorContains(t, err, `unknown entity "widgets"`)
}
