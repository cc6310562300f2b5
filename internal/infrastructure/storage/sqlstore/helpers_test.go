package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

// openSQLite returns a migrated private in-memory database.
func openSQLite(t *testing.T) *TxManager {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=private", dbSeq.Add(1))
	db, err := Open(ctx, DefaultConfig("sqlite", dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(ctx, db)
	require.NoError(t, err)
	return NewTxManager(db, 0)
}

func execSQL(t *testing.T, txm *TxManager, query string, args ...any) {
	t.Helper()
	_, err := txm.DB().ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func countRows(t *testing.T, txm *TxManager, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, txm.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func intColumn(t *testing.T, txm *TxManager, table, column string, id int64) int64 {
	t.Helper()
	var n int64
	err := txm.DB().QueryRowContext(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", column, table), id).Scan(&n)
	require.NoError(t, err)
	return n
}

func seedUser(t *testing.T, txm *TxManager, id int64, publicID string) {
	t.Helper()
	execSQL(t, txm, "INSERT INTO users (id, user_id, nickname) VALUES (?, ?, ?)", id, publicID, "nick-"+publicID)
}
