package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Maintenance runs the periodic housekeeping statements.
type Maintenance struct {
	txm *TxManager
	now func() time.Time
}

// NewMaintenance creates a Maintenance.
func NewMaintenance(txm *TxManager) *Maintenance {
	return &Maintenance{txm: txm, now: func() time.Time { return time.Now().UTC() }}
}

// DeactivateExpiredSessions marks sessions past expires_at inactive.
func (m *Maintenance) DeactivateExpiredSessions(ctx context.Context) (int64, error) {
	query, args, err := m.txm.db.Dialect.Builder().
		Update("user_sessions").
		Set("is_active", 0).
		Set("updated_at", m.now()).
		Where(sq.And{sq.Eq{"is_active": 1}, sq.Lt{"expires_at": m.now()}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build session expiry: %w", err)
	}
	return NewEntityRepo(m.txm).exec(ctx, "user_sessions", query, args)
}

// PurgeAudit deletes audit rows older than retention.
func (m *Maintenance) PurgeAudit(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	query, args, err := m.txm.db.Dialect.Builder().
		Delete("audit_log").
		Where(sq.Lt{"created_at": m.now().Add(-retention)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit purge: %w", err)
	}
	return NewEntityRepo(m.txm).exec(ctx, "audit_log", query, args)
}
