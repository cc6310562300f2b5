package social

import (
	"context"
	"fmt"

	"pomegranate/internal/domain/crud"
)

type commentHooks struct {
	crud.NopHooks
	store Store
}

func (h *commentHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	if err := mustExist(ctx, h.store, "users", data["user_id"], "user"); err != nil {
		return err
	}
	if err := mustExist(ctx, h.store, "posts", data["post_id"], "post"); err != nil {
		return err
	}
	if data.Has("parent_id") {
		return mustExist(ctx, h.store, "comments", data["parent_id"], "parent comment")
	}
	// Top-level comments store NULL, never 0.
	delete(data, "parent_id")
	return nil
}

func (h *commentHooks) AfterCreate(ctx context.Context, key any, data crud.Record) error {
	postID := int64Of(data, "post_id")
	if err := h.store.AdjustCounter(ctx, "posts", "comment_count", map[string]any{"id": postID}, 1); err != nil {
		return fmt.Errorf("count comment: %w", err)
	}

	senderID := int64Of(data, "user_id")
	commentID := keyInt(key)

	post, err := findRow(ctx, h.store, "posts", postID)
	if err != nil {
		return err
	}
	if author := int64Of(post, "user_id"); post != nil && author != senderID {
		err := h.store.InsertNotification(ctx, Notification{
			UserID:    author,
			SenderID:  senderID,
			Type:      NotifyComment,
			Title:     "commented on your post",
			TargetID:  postID,
			CommentID: commentID,
		})
		if err != nil {
			return fmt.Errorf("notify comment: %w", err)
		}
	}
	return notifyMentions(ctx, h.store, senderID, postID, commentID, data.String("content"))
}

func (h *commentHooks) BeforeDelete(ctx context.Context, key any) error {
	return h.BeforeDeleteMany(ctx, []any{key})
}

// BeforeDeleteMany decrements comment_count for every comment about to go,
// including the direct replies removed by the cascade.
func (h *commentHooks) BeforeDeleteMany(ctx context.Context, keys []any) error {
	doomed, err := h.store.Rows(ctx, "comments", map[string]any{"id": keys})
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	replies, err := h.store.Rows(ctx, "comments", map[string]any{"parent_id": keys})
	if err != nil {
		return fmt.Errorf("load replies: %w", err)
	}

	seen := make(map[int64]bool, len(doomed)+len(replies))
	perPost := make(map[int64]int64)
	var order []int64
	for _, c := range append(doomed, replies...) {
		cid := int64Of(c, "id")
		if seen[cid] {
			continue
		}
		seen[cid] = true
		pid := int64Of(c, "post_id")
		if perPost[pid] == 0 {
			order = append(order, pid)
		}
		perPost[pid]++
	}
	for _, pid := range order {
		if err := h.store.AdjustCounter(ctx, "posts", "comment_count", map[string]any{"id": pid}, -perPost[pid]); err != nil {
			return fmt.Errorf("uncount comments: %w", err)
		}
	}
	return nil
}
