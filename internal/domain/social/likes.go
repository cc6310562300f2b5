package social

import (
	"context"
	"fmt"
	"net/http"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/domain/crud"
)

// Like target types.
const (
	TargetPost    int64 = 1
	TargetComment int64 = 2
)

// likeTarget returns the table and display name a like's target_type refers to.
func likeTarget(targetType int64) (table, what string, err error) {
	switch targetType {
	case TargetPost:
		return "posts", "post", nil
	case TargetComment:
		return "comments", "comment", nil
	}
	return "", "", apperror.Reject(http.StatusBadRequest, "target_type must be 1 (post) or 2 (comment)")
}

type likeHooks struct {
	crud.NopHooks
	store Store
}

func (h *likeHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	table, what, err := likeTarget(int64Of(data, "target_type"))
	if err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, "users", data["user_id"], "user"); err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, table, data["target_id"], what); err != nil {
		return err
	}
	return mustBeNew(ctx, h.store, "likes", map[string]any{
		"user_id":     data["user_id"],
		"target_type": data["target_type"],
		"target_id":   data["target_id"],
	}, "already liked")
}

func (h *likeHooks) AfterCreate(ctx context.Context, _ any, data crud.Record) error {
	return h.count(ctx, int64Of(data, "target_type"), int64Of(data, "target_id"), 1)
}

// BeforeUpdate validates a retargeted like and moves its count over.
func (h *likeHooks) BeforeUpdate(ctx context.Context, key any, data crud.Record) error {
	if !data.Has("target_type") && !data.Has("target_id") {
		return nil
	}
	cur, err := findRow(ctx, h.store, "likes", key)
	if err != nil || cur == nil {
		return err
	}

	nextType, nextID := int64Of(cur, "target_type"), int64Of(cur, "target_id")
	if data.Has("target_type") {
		nextType = int64Of(data, "target_type")
	}
	if data.Has("target_id") {
		nextID = int64Of(data, "target_id")
	}
	table, what, err := likeTarget(nextType)
	if err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, table, nextID, what); err != nil {
		return err
	}
	if nextType == int64Of(cur, "target_type") && nextID == int64Of(cur, "target_id") {
		return nil
	}
	if err := h.count(ctx, int64Of(cur, "target_type"), int64Of(cur, "target_id"), -1); err != nil {
		return err
	}
	return h.count(ctx, nextType, nextID, 1)
}

func (h *likeHooks) BeforeDelete(ctx context.Context, key any) error {
	return h.BeforeDeleteMany(ctx, []any{key})
}

func (h *likeHooks) BeforeDeleteMany(ctx context.Context, keys []any) error {
	rows, err := h.store.Rows(ctx, "likes", map[string]any{"id": keys})
	if err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	for _, l := range rows {
		if err := h.count(ctx, int64Of(l, "target_type"), int64Of(l, "target_id"), -1); err != nil {
			return err
		}
	}
	return nil
}

func (h *likeHooks) count(ctx context.Context, targetType, targetID, delta int64) error {
	table, _, err := likeTarget(targetType)
	if err != nil {
		return err
	}
	if err := h.store.AdjustCounter(ctx, table, "like_count", map[string]any{"id": targetID}, delta); err != nil {
		return fmt.Errorf("adjust %s like_count: %w", table, err)
	}
	return nil
}
