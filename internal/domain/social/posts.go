package social

import (
	"context"
	"fmt"

	"pomegranate/internal/domain/crud"
)

type postHooks struct {
	crud.NopHooks
	store  Store
	images ImageUploader
}

func (h *postHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	if err := mustExist(ctx, h.store, "users", data["user_id"], "user"); err != nil {
		return err
	}
	data.SetDefault("category", "")
	return nil
}

func (h *postHooks) AfterCreate(ctx context.Context, key any, data crud.Record) error {
	if hasImages(data) {
		urls := resolveImages(ctx, h.images, data)
		if err := h.store.ReplacePostImages(ctx, key, urls); err != nil {
			return fmt.Errorf("store post images: %w", err)
		}
	}
	if _, ok := data["tags"]; !ok {
		return nil
	}
	tagIDs, err := resolveTags(ctx, h.store, data["tags"])
	if err != nil {
		return err
	}
	if err := h.store.ReplacePostTags(ctx, key, tagIDs); err != nil {
		return fmt.Errorf("link post tags: %w", err)
	}
	return adjustTagUse(ctx, h.store, tagIDs, 1)
}

func (h *postHooks) BeforeUpdate(_ context.Context, _ any, data crud.Record) error {
	if v, ok := data["view_count"]; ok && v != nil {
		n, _ := data.Int("view_count")
		data["view_count"] = max(n, 0)
	}
	if v, ok := data["category"]; ok && v == nil {
		data["category"] = ""
	}
	return nil
}

func (h *postHooks) AfterUpdate(ctx context.Context, key any, data crud.Record) error {
	if hasImages(data) {
		urls := resolveImages(ctx, h.images, data)
		if err := h.store.ReplacePostImages(ctx, key, urls); err != nil {
			return fmt.Errorf("replace post images: %w", err)
		}
	}
	if _, ok := data["tags"]; !ok {
		return nil
	}

	old, err := h.store.PostTagIDs(ctx, []any{key})
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	tagIDs, err := resolveTags(ctx, h.store, data["tags"])
	if err != nil {
		return err
	}
	if err := h.store.ReplacePostTags(ctx, key, tagIDs); err != nil {
		return fmt.Errorf("relink post tags: %w", err)
	}
	if err := adjustTagUse(ctx, h.store, old, -1); err != nil {
		return err
	}
	return adjustTagUse(ctx, h.store, tagIDs, 1)
}

func (h *postHooks) BeforeDelete(ctx context.Context, key any) error {
	return h.BeforeDeleteMany(ctx, []any{key})
}

func (h *postHooks) BeforeDeleteMany(ctx context.Context, keys []any) error {
	tagIDs, err := h.store.PostTagIDs(ctx, keys)
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	return adjustTagUse(ctx, h.store, tagIDs, -1)
}
