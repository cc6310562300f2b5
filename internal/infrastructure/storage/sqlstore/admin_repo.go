package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
)

var _ auth.AdminRepository = (*AdminRepo)(nil)

// AdminRepo reads and creates administrator accounts.
type AdminRepo struct {
	txm *TxManager
}

// NewAdminRepo creates an AdminRepo.
func NewAdminRepo(txm *TxManager) *AdminRepo {
	return &AdminRepo{txm: txm}
}

func (r *AdminRepo) get(ctx context.Context, where sq.Eq) (*auth.Admin, error) {
	query, args, err := r.txm.db.Dialect.Builder().
		Select("id", "username", "password", "created_at").
		From("admin").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build admin query: %w", err)
	}

	var admins []*auth.Admin
	if err := sqlscan.Select(ctx, r.txm.GetQuerier(ctx), &admins, query, args...); err != nil {
		return nil, wrapErr(err, "admin")
	}
	if len(admins) == 0 {
		return nil, nil
	}
	return admins[0], nil
}

// GetByUsername returns the account or nil.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*auth.Admin, error) {
	return r.get(ctx, sq.Eq{"username": username})
}

// GetByID returns the account or nil.
func (r *AdminRepo) GetByID(ctx context.Context, adminID int64) (*auth.Admin, error) {
	return r.get(ctx, sq.Eq{"id": adminID})
}

// Create inserts an account. A taken username is a conflict.
func (r *AdminRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	key, err := NewEntityRepo(r.txm).Insert(ctx, &crud.EntityConfig{Table: "admin", PrimaryKey: "id"}, crud.Record{
		"username":   username,
		"password":   passwordHash,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return key.(int64), nil
}
