package crud

import (
	"context"

	"pomegranate/internal/core/apperror"
)

// Hooks are invoked at fixed points of the write pipelines. All calls receive
// the transactional context, so store access through it joins the same
// transaction.
//
// Before hooks may mutate data, return an *apperror.AppError verdict, or any
// other error, which is surfaced as a business rule violation. After hook
// failures are logged and rolled back to a savepoint; the primary write still
// commits.
type Hooks interface {
	BeforeCreate(ctx context.Context, data Record) error
	AfterCreate(ctx context.Context, key any, data Record) error
	BeforeUpdate(ctx context.Context, key any, data Record) error
	AfterUpdate(ctx context.Context, key any, data Record) error
	BeforeDelete(ctx context.Context, key any) error
	BeforeDeleteMany(ctx context.Context, keys []any) error
}

// CreateValidator lets hooks replace the default required/unique validation
// on create with their own verdict.
type CreateValidator interface {
	ValidateCreate(ctx context.Context, data Record) error
}

// CreatePreparer lets hooks do slow work, such as remote lookups, before the
// create transaction opens. It runs after the required-field check, outside
// any transaction, so it must not touch the store.
type CreatePreparer interface {
	PrepareCreate(ctx context.Context, data Record) error
}

// NopHooks implements Hooks with no-ops. Embed it and override what you need.
type NopHooks struct{}

func (NopHooks) BeforeCreate(context.Context, Record) error { return nil }
func (NopHooks) AfterCreate(context.Context, any, Record) error { return nil }
func (NopHooks) BeforeUpdate(context.Context, any, Record) error { return nil }
func (NopHooks) AfterUpdate(context.Context, any, Record) error { return nil }
func (NopHooks) BeforeDelete(context.Context, any) error { return nil }
func (NopHooks) BeforeDeleteMany(context.Context, []any) error { return nil }

// hookError normalizes a before-hook failure into the error taxonomy.
func hookError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewBusinessRule(err.Error()).WithCause(err)
}
