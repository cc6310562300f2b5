package social

import (
	"context"
	"fmt"
	"net/http"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/domain/crud"
)

type followHooks struct {
	crud.NopHooks
	store Store
}

func (h *followHooks) validate(ctx context.Context, follower, following int64) error {
	if follower == following {
		return apperror.Reject(http.StatusBadRequest, "users cannot follow themselves")
	}
	if err := mustExist(ctx, h.store, "users", follower, "follower"); err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, "users", following, "followed user"); err != nil {
		return err
	}
	return mustBeNew(ctx, h.store, "follows", map[string]any{
		"follower_id":  follower,
		"following_id": following,
	}, "already following")
}

func (h *followHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	return h.validate(ctx, int64Of(data, "follower_id"), int64Of(data, "following_id"))
}

func (h *followHooks) AfterCreate(ctx context.Context, _ any, data crud.Record) error {
	follower, following := int64Of(data, "follower_id"), int64Of(data, "following_id")
	if err := h.count(ctx, follower, following, 1); err != nil {
		return err
	}
	err := h.store.InsertNotification(ctx, Notification{
		UserID:   following,
		SenderID: follower,
		Type:     NotifyFollow,
		Title:    "started following you",
	})
	if err != nil {
		return fmt.Errorf("notify follow: %w", err)
	}
	return nil
}

func (h *followHooks) BeforeUpdate(ctx context.Context, key any, data crud.Record) error {
	if !data.Has("following_id") {
		return nil
	}
	cur, err := findRow(ctx, h.store, "follows", key)
	if err != nil {
		return err
	}
	if cur == nil {
		return apperror.Reject(http.StatusNotFound, "follow not found")
	}
	follower := int64Of(cur, "follower_id")
	from, to := int64Of(cur, "following_id"), int64Of(data, "following_id")
	if from == to {
		return nil
	}
	if err := h.validate(ctx, follower, to); err != nil {
		return err
	}
	if err := h.adjust(ctx, "fans_count", from, -1); err != nil {
		return err
	}
	return h.adjust(ctx, "fans_count", to, 1)
}

func (h *followHooks) BeforeDelete(ctx context.Context, key any) error {
	return h.BeforeDeleteMany(ctx, []any{key})
}

func (h *followHooks) BeforeDeleteMany(ctx context.Context, keys []any) error {
	rows, err := h.store.Rows(ctx, "follows", map[string]any{"id": keys})
	if err != nil {
		return fmt.Errorf("load follows: %w", err)
	}
	for _, f := range rows {
		if err := h.count(ctx, int64Of(f, "follower_id"), int64Of(f, "following_id"), -1); err != nil {
			return err
		}
	}
	return nil
}

func (h *followHooks) count(ctx context.Context, follower, following, delta int64) error {
	if err := h.adjust(ctx, "follow_count", follower, delta); err != nil {
		return err
	}
	return h.adjust(ctx, "fans_count", following, delta)
}

func (h *followHooks) adjust(ctx context.Context, column string, user, delta int64) error {
	if err := h.store.AdjustCounter(ctx, "users", column, map[string]any{"id": user}, delta); err != nil {
		return fmt.Errorf("adjust users.%s: %w", column, err)
	}
	return nil
}
