//go:build integration

package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/social"
)

func openPostgres(t *testing.T) *TxManager {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pomegranate"),
		tcpostgres.WithUsername("pomegranate"),
		tcpostgres.WithPassword("pomegranate"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, DefaultConfig("postgres", dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(ctx, db)
	require.NoError(t, err)
	return NewTxManager(db, 0)
}

func TestPostgres_CascadeAndHooks(t *testing.T) {
	ctx := context.Background()
	txm := openPostgres(t)

	reg, err := crud.NewRegistry(
		crud.Deps{Repo: NewEntityRepo(txm), Tx: txm},
		social.Entities(social.Deps{Store: NewSocialStore(txm), Views: NewViews(txm)})...,
	)
	require.NoError(t, err)
	users, _ := reg.Get("users")
	posts, _ := reg.Get("posts")
	likes, _ := reg.Get("likes")

	uid, err := users.Create(ctx, crud.Record{"user_id": "pg", "nickname": "Pg"})
	require.NoError(t, err)
	pid, err := posts.Create(ctx, crud.Record{"user_id": uid, "title": "t", "content": "c", "tags": []any{"pg"}})
	require.NoError(t, err)
	_, err = likes.Create(ctx, crud.Record{"user_id": uid, "target_type": int64(1), "target_id": pid})
	require.NoError(t, err)

	_, err = likes.Create(ctx, crud.Record{"user_id": uid, "target_type": int64(1), "target_id": pid})
	assert.Equal(t, 409, apperror.GetHTTPStatus(err))

	list, err := posts.GetList(ctx, crud.NewListRequest(map[string][]string{"title": {"T"}}, 100))
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Data[0]["like_count"])

	require.NoError(t, users.DeleteOne(ctx, uid))
	var left int64
	require.NoError(t, txm.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM likes").Scan(&left))
	assert.Zero(t, left)
}

func TestPostgres_EnsureTagSurvivesUniqueRace(t *testing.T) {
	ctx := context.Background()
	txm := openPostgres(t)
	store := NewSocialStore(txm)

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := txm.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO tags (name) VALUES ('race')")
		require.NoError(t, err)
		id, err := store.EnsureTag(ctx, "race")
		require.NoError(t, err)
		assert.NotZero(t, id)
		return nil
	})
	require.NoError(t, err)
}
