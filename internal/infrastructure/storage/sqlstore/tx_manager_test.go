package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTx(t *testing.T, d Dialect) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxManager(Wrap(db, d), 0), mock
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	txm, mock := newMockTx(t, MySQL)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM likes").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := txm.GetQuerier(ctx).ExecContext(ctx, "DELETE FROM likes WHERE target_id = ?", 1)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_NestedCallsJoinOuterTransaction(t *testing.T) {
	txm, mock := newMockTx(t, MySQL)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := txm.GetQuerier(ctx).ExecContext(ctx, "UPDATE posts SET title = ?", "t")
			return err
		})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_SavepointFailureKeepsOuterWork(t *testing.T) {
	txm, mock := newMockTx(t, MySQL)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO posts").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("SAVEPOINT sp_").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("fk"))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT sp_").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		q := txm.GetQuerier(ctx)
		if _, err := q.ExecContext(ctx, "INSERT INTO posts (title) VALUES (?)", "t"); err != nil {
			return err
		}
		spErr := txm.RunInSavepoint(ctx, func(ctx context.Context) error {
			_, err := txm.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO notifications (user_id) VALUES (?)", 9)
			return err
		})
		assert.Error(t, spErr)
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_PostgresSetsStatementTimeout(t *testing.T) {
	txm, mock := newMockTx(t, Postgres)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout = '30000ms'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := txm.RunInTransaction(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_PanicRollsBack(t *testing.T) {
	txm, mock := newMockTx(t, MySQL)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = txm.RunInTransaction(context.Background(), func(context.Context) error {
			panic("hook bug")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepo_CascadeStatementsUseConditions(t *testing.T) {
	txm, mock := newMockTx(t, Postgres)
	repo := NewEntityRepo(txm)

	mock.ExpectExec(`DELETE FROM likes WHERE target_id IN \(\$1,\$2\) AND target_type = \$3`).
		WithArgs(int64(1), int64(2), 1).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteWhere(context.Background(), "likes", "target_id", []any{int64(1), int64(2)}, map[string]any{"target_type": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepo_AdjustCounterFloorsAtZero(t *testing.T) {
	txm, mock := newMockTx(t, Postgres)
	repo := NewEntityRepo(txm)

	mock.ExpectExec(`UPDATE posts SET like_count = CASE WHEN like_count > \$1 THEN like_count - \$2 ELSE 0 END WHERE id = \$3`).
		WithArgs(int64(2), int64(2), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AdjustCounter(context.Background(), "posts", "like_count", map[string]any{"id": int64(5)}, -2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
