package social

import (
	"context"
	"fmt"

	"pomegranate/internal/domain/crud"
)

type collectionHooks struct {
	crud.NopHooks
	store Store
}

func (h *collectionHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	if err := mustExist(ctx, h.store, "users", data["user_id"], "user"); err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, "posts", data["post_id"], "post"); err != nil {
		return err
	}
	return mustBeNew(ctx, h.store, "collections", map[string]any{
		"user_id": data["user_id"],
		"post_id": data["post_id"],
	}, "post already collected")
}

func (h *collectionHooks) AfterCreate(ctx context.Context, _ any, data crud.Record) error {
	return h.count(ctx, int64Of(data, "post_id"), 1)
}

func (h *collectionHooks) BeforeUpdate(ctx context.Context, key any, data crud.Record) error {
	if !data.Has("post_id") {
		return nil
	}
	if err := mustExist(ctx, h.store, "posts", data["post_id"], "post"); err != nil {
		return err
	}
	cur, err := findRow(ctx, h.store, "collections", key)
	if err != nil || cur == nil {
		return err
	}
	from, to := int64Of(cur, "post_id"), int64Of(data, "post_id")
	if from == to {
		return nil
	}
	if err := h.count(ctx, from, -1); err != nil {
		return err
	}
	return h.count(ctx, to, 1)
}

func (h *collectionHooks) BeforeDelete(ctx context.Context, key any) error {
	return h.BeforeDeleteMany(ctx, []any{key})
}

func (h *collectionHooks) BeforeDeleteMany(ctx context.Context, keys []any) error {
	rows, err := h.store.Rows(ctx, "collections", map[string]any{"id": keys})
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	for _, c := range rows {
		if err := h.count(ctx, int64Of(c, "post_id"), -1); err != nil {
			return err
		}
	}
	return nil
}

func (h *collectionHooks) count(ctx context.Context, postID, delta int64) error {
	if err := h.store.AdjustCounter(ctx, "posts", "collect_count", map[string]any{"id": postID}, delta); err != nil {
		return fmt.Errorf("adjust collect_count: %w", err)
	}
	return nil
}
