package social

import (
	"context"
	"fmt"

	"pomegranate/pkg/logger"
	"pomegranate/pkg/mention"
)

// NotificationType classifies a notification.
type NotificationType int

const (
	NotifyLike    NotificationType = 1
	NotifyComment NotificationType = 2
	NotifyFollow  NotificationType = 3
	NotifyMention NotificationType = 4
)

// Notification is one row of the notifications table.
type Notification struct {
	UserID    int64
	SenderID  int64
	Type      NotificationType
	Title     string
	TargetID  int64
	CommentID int64
}

// notifyMentions creates one mention notification per distinct user named in
// content. Unknown users and self-mentions are skipped.
func notifyMentions(ctx context.Context, store Store, senderID, postID, commentID int64, content string) error {
	ids := mention.UserIDs(content)
	if len(ids) == 0 {
		return nil
	}
	keys, err := store.UserKeys(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve mentions: %w", err)
	}

	sent := 0
	for _, publicID := range ids {
		uid, ok := keys[publicID]
		if !ok || uid == senderID {
			continue
		}
		err := store.InsertNotification(ctx, Notification{
			UserID:    uid,
			SenderID:  senderID,
			Type:      NotifyMention,
			Title:     "mentioned you in a comment",
			TargetID:  postID,
			CommentID: commentID,
		})
		if err != nil {
			return fmt.Errorf("notify mention %s: %w", publicID, err)
		}
		sent++
	}
	if sent > 0 {
		logger.Debug(ctx, "mention notifications sent", "comment_id", commentID, "count", sent)
	}
	return nil
}
