package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/survey"
)

func TestSurveyStore_DraftLifecycle(t *testing.T) {
	ctx := context.Background()
	txm := openSQLite(t)
	seedUser(t, txm, 1, "alice")
	svc := survey.NewService(txm, NewSurveyStore(txm))

	p, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, survey.StatusNotStarted, p.Status)

	saved, err := svc.Save(ctx, 1, []any{"a", float64(2)})
	require.NoError(t, err)
	again, err := svc.Save(ctx, 1, []any{"a", float64(2), map[string]any{"q": "x"}})
	require.NoError(t, err)
	assert.Equal(t, saved.ResponseID, again.ResponseID)
	assert.Equal(t, int64(1), countRows(t, txm, "survey_responses"))

	p, err = svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, survey.StatusInProgress, p.Status)
	assert.Equal(t, []any{"a", float64(2), map[string]any{"q": "x"}}, p.LastAnswers)

	answers := make([]any, survey.PassScore)
	for i := range answers {
		answers[i] = "yes"
	}
	res, err := svc.Submit(ctx, 1, answers)
	require.NoError(t, err)
	assert.True(t, res.IsPassed)
	assert.Equal(t, survey.PassScore, res.Score)

	assert.Equal(t, int64(1), countRows(t, txm, "survey_responses"))
	assert.Equal(t, int64(1), intColumn(t, txm, "survey_responses", "is_complete", saved.ResponseID))
	assert.Equal(t, int64(1), intColumn(t, txm, "survey_responses", "is_passed", saved.ResponseID))
	assert.Equal(t, int64(survey.PassScore), intColumn(t, txm, "survey_responses", "score", saved.ResponseID))
	assert.Equal(t, int64(1), intColumn(t, txm, "users", "is_verified", 1))

	p, err = svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &survey.Progress{IsVerified: true, Status: survey.StatusPassed}, p)
}

func TestSurveyStore_FailedSubmitKeepsUserUnverified(t *testing.T) {
	ctx := context.Background()
	txm := openSQLite(t)
	seedUser(t, txm, 1, "alice")
	store := NewSurveyStore(txm)
	svc := survey.NewService(txm, store)

	res, err := svc.Submit(ctx, 1, []any{"only one"})
	require.NoError(t, err)
	assert.False(t, res.IsPassed)
	assert.Equal(t, int64(0), intColumn(t, txm, "users", "is_verified", 1))

	draft, err := store.OpenDraft(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, draft)

	verified, err := store.IsVerified(ctx, 42)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestSurveyStore_ResponsesFollowUserDelete(t *testing.T) {
	ctx := context.Background()
	txm, reg, _ := newEngine(t)
	seedUser(t, txm, 1, "alice")

	_, err := survey.NewService(txm, NewSurveyStore(txm)).Save(ctx, 1, []any{})
	require.NoError(t, err)

	require.NoError(t, entity(t, reg, "users").DeleteOne(ctx, int64(1)))
	assert.Zero(t, countRows(t, txm, "survey_responses"))

	list, err := entity(t, reg, "users").GetList(ctx, crud.ListRequest{Pagination: crud.Pagination{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Zero(t, list.Pagination.Total)
}
