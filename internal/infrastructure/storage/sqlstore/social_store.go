package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/social"
)

var _ social.Store = (*SocialStore)(nil)

// SocialStore serves the side-table reads and writes of the entity hooks.
// Every call joins the transaction in ctx.
type SocialStore struct {
	*EntityRepo
}

// NewSocialStore creates a SocialStore.
func NewSocialStore(txm *TxManager) *SocialStore {
	return &SocialStore{EntityRepo: NewEntityRepo(txm)}
}

// Exists reports whether a row of table matches where.
func (s *SocialStore) Exists(ctx context.Context, table string, where map[string]any) (bool, error) {
	return s.EntityRepo.Exists(ctx, table, where, nil)
}

// Rows returns every row of table matching where. Slice values match any element.
func (s *SocialStore) Rows(ctx context.Context, table string, where map[string]any) ([]crud.Record, error) {
	b := s.Builder().Select("*").From(table).Where(sq.Eq(where))
	rows, err := queryRecords(ctx, s.txm.GetQuerier(ctx), b)
	if err != nil {
		return nil, wrapErr(err, table)
	}
	return rows, nil
}

// Count returns the number of rows of table matching where.
func (s *SocialStore) Count(ctx context.Context, table string, where map[string]any) (int64, error) {
	b := s.Builder().Select("COUNT(*)").From(table).Where(sq.Eq(where))
	n, err := scanInt64(ctx, s.txm.GetQuerier(ctx), b)
	if err != nil {
		return 0, wrapErr(err, table)
	}
	return n, nil
}

// EnsureTag returns the id of the named tag, inserting it first if needed.
// The insert runs in a savepoint so losing a race to a concurrent insert
// leaves the transaction usable for the re-read.
func (s *SocialStore) EnsureTag(ctx context.Context, name string) (int64, error) {
	if tid, ok, err := s.tagID(ctx, name); err != nil || ok {
		return tid, err
	}

	var tid int64
	err := s.txm.RunInSavepoint(ctx, func(ctx context.Context) error {
		key, err := s.Insert(ctx, &crud.EntityConfig{Table: "tags", PrimaryKey: "id"}, crud.Record{
			"name":        name,
			"description": "",
			"use_count":   int64(0),
		})
		if err != nil {
			return err
		}
		tid = key.(int64)
		return nil
	})
	if err == nil {
		return tid, nil
	}
	if retry, ok, rerr := s.tagID(ctx, name); rerr == nil && ok {
		return retry, nil
	}
	return 0, fmt.Errorf("insert tag: %w", err)
}

func (s *SocialStore) tagID(ctx context.Context, name string) (int64, bool, error) {
	b := s.Builder().Select("id").From("tags").Where(sq.Eq{"name": name}).Limit(1)
	rec, err := queryRecord(ctx, s.txm.GetQuerier(ctx), b)
	if err != nil {
		return 0, false, wrapErr(err, "tags")
	}
	if rec == nil {
		return 0, false, nil
	}
	n, ok := rec.Int("id")
	return n, ok, nil
}

// PostTagIDs returns one tag id per link of the given posts.
func (s *SocialStore) PostTagIDs(ctx context.Context, postIDs []any) ([]int64, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Rows(ctx, "post_tags", map[string]any{"post_id": postIDs})
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		if n, ok := r.Int("tag_id"); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// ReplacePostTags swaps the post's tag links for tagIDs.
func (s *SocialStore) ReplacePostTags(ctx context.Context, postID any, tagIDs []int64) error {
	if _, err := s.DeleteWhere(ctx, "post_tags", "post_id", []any{postID}, nil); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	b := s.Builder().Insert("post_tags").Columns("post_id", "tag_id")
	for _, t := range tagIDs {
		b = b.Values(postID, t)
	}
	return s.execBuilt(ctx, "post_tags", b)
}

// ReplacePostImages swaps the post's image rows for urls.
func (s *SocialStore) ReplacePostImages(ctx context.Context, postID any, urls []string) error {
	if _, err := s.DeleteWhere(ctx, "post_images", "post_id", []any{postID}, nil); err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}
	b := s.Builder().Insert("post_images").Columns("post_id", "image_url")
	for _, u := range urls {
		b = b.Values(postID, u)
	}
	return s.execBuilt(ctx, "post_images", b)
}

// InsertNotification writes one unread notification. Zero target and comment
// ids are stored as NULL.
func (s *SocialStore) InsertNotification(ctx context.Context, n social.Notification) error {
	b := s.Builder().Insert("notifications").SetMap(map[string]any{
		"user_id":    n.UserID,
		"sender_id":  n.SenderID,
		"type":       int64(n.Type),
		"title":      n.Title,
		"target_id":  nullable(n.TargetID),
		"comment_id": nullable(n.CommentID),
		"is_read":    int64(0),
	})
	return s.execBuilt(ctx, "notifications", b)
}

// UserKeys resolves public user ids to numeric keys.
func (s *SocialStore) UserKeys(ctx context.Context, publicIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(publicIDs))
	if len(publicIDs) == 0 {
		return out, nil
	}
	b := s.Builder().Select("id", "user_id").From("users").Where(sq.Eq{"user_id": publicIDs})
	rows, err := queryRecords(ctx, s.txm.GetQuerier(ctx), b)
	if err != nil {
		return nil, wrapErr(err, "users")
	}
	for _, r := range rows {
		if n, ok := r.Int("id"); ok {
			out[r.String("user_id")] = n
		}
	}
	return out, nil
}

func (s *SocialStore) execBuilt(ctx context.Context, table string, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s write: %w", table, err)
	}
	_, err = s.exec(ctx, table, query, args)
	return err
}

func nullable(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
