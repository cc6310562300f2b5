package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/internal/domain/crud"
)

// view is a joined read model over one base table aliased in from.
type view struct {
	from    string
	joins   []string
	columns []string
	// filters map list parameters to qualified columns.
	filters map[string]crud.SearchField
	// sorts map sort keys to qualified columns.
	sorts map[string]string
	order string
	// displayIDs fills a missing public user id from the numeric key column.
	displayIDs map[string]string
	key        string
}

func (v view) selectBuilder(b sq.StatementBuilderType) sq.SelectBuilder {
	sel := b.Select(v.columns...).From(v.from)
	for _, j := range v.joins {
		sel = sel.LeftJoin(j)
	}
	return sel
}

func (v view) list(ctx context.Context, txm *TxManager, req crud.ListRequest) ([]crud.Record, int64, error) {
	d := txm.db.Dialect
	where, args := buildWhere(d.Like, v.filters, req.Filters)
	q := txm.GetQuerier(ctx)

	count := d.Builder().Select("COUNT(*)").From(v.from)
	for _, j := range v.joins {
		count = count.LeftJoin(j)
	}
	if where != "" {
		count = count.Where(where, args...)
	}
	total, err := scanInt64(ctx, q, count)
	if err != nil {
		return nil, 0, wrapErr(err, v.from)
	}

	sel := v.selectBuilder(d.Builder()).
		OrderBy(buildOrderBy(v.sorts, req.SortBy, req.SortOrder, v.order)).
		Limit(uint64(req.Limit)).
		Offset(uint64(req.Offset))
	if where != "" {
		sel = sel.Where(where, args...)
	}
	rows, err := queryRecords(ctx, q, sel)
	if err != nil {
		return nil, 0, wrapErr(err, v.from)
	}
	v.fillDisplayIDs(rows)
	return rows, total, nil
}

func (v view) one(ctx context.Context, txm *TxManager, key any) (crud.Record, error) {
	sel := v.selectBuilder(txm.db.Dialect.Builder()).Where(sq.Eq{v.key: key}).Limit(1)
	rec, err := queryRecord(ctx, txm.GetQuerier(ctx), sel)
	if err != nil {
		return nil, wrapErr(err, v.from)
	}
	if rec != nil {
		v.fillDisplayIDs([]crud.Record{rec})
	}
	return rec, nil
}

func (v view) fillDisplayIDs(rows []crud.Record) {
	for _, r := range rows {
		for display, keyCol := range v.displayIDs {
			if r.Has(display) || r[keyCol] == nil {
				continue
			}
			r[display] = DisplayUserID(r[keyCol])
		}
	}
}

// DisplayUserID is the public id shown for users that never chose one.
func DisplayUserID(key any) string {
	return fmt.Sprintf("user%03v", key)
}

func sortColumns(alias string, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = alias + "." + k
	}
	return out
}

var (
	postView = view{
		from:  "posts p",
		joins: []string{"users u ON p.user_id = u.id"},
		columns: []string{
			"p.id", "p.user_id", "p.title", "p.content", "p.category",
			"p.view_count", "p.like_count", "p.collect_count", "p.comment_count",
			"p.is_draft", "p.created_at",
			"u.nickname", "u.user_id AS user_display_id",
		},
		filters: map[string]crud.SearchField{
			"title":    {Operator: crud.Like, Column: "p.title"},
			"user_id":  {Operator: crud.Like, Column: "u.user_id"},
			"category": {Operator: crud.Equal, Column: "p.category"},
			"is_draft": {Operator: crud.Equal, Column: "p.is_draft", Numeric: true},
		},
		sorts:      sortColumns("p", "id", "view_count", "like_count", "collect_count", "comment_count", "created_at"),
		order:      "p.created_at DESC",
		displayIDs: map[string]string{"user_display_id": "user_id"},
		key:        "p.id",
	}

	commentView = view{
		from: "comments c",
		joins: []string{
			"users u ON c.user_id = u.id",
			"posts p ON c.post_id = p.id",
		},
		columns: []string{
			"c.id", "c.content", "c.parent_id", "c.like_count", "c.created_at",
			"c.user_id", "u.nickname", "u.user_id AS user_display_id",
			"c.post_id", "p.title AS post_title",
		},
		filters: map[string]crud.SearchField{
			"post_id": {Operator: crud.Equal, Column: "c.post_id", Numeric: true},
			"user_id": {Operator: crud.Like, Column: "u.user_id"},
			"content": {Operator: crud.Like, Column: "c.content"},
		},
		sorts:      sortColumns("c", "id", "like_count", "created_at"),
		order:      "c.created_at DESC",
		displayIDs: map[string]string{"user_display_id": "user_id"},
		key:        "c.id",
	}

	likeView = view{
		from:  "likes l",
		joins: []string{"users u ON l.user_id = u.id"},
		columns: []string{
			"l.id", "l.user_id", "l.target_type", "l.target_id", "l.created_at",
			"u.nickname", "u.user_id AS user_display_id",
		},
		filters: map[string]crud.SearchField{
			"user_id":     {Operator: crud.Equal, Column: "l.user_id", Numeric: true},
			"target_type": {Operator: crud.Equal, Column: "l.target_type", Numeric: true},
			"target_id":   {Operator: crud.Equal, Column: "l.target_id", Numeric: true},
		},
		sorts:      sortColumns("l", "id", "user_id", "created_at"),
		order:      "l.created_at DESC",
		displayIDs: map[string]string{"user_display_id": "user_id"},
		key:        "l.id",
	}

	collectionView = view{
		from: "collections c",
		joins: []string{
			"users u ON c.user_id = u.id",
			"posts p ON c.post_id = p.id",
		},
		columns: []string{
			"c.id", "c.user_id", "c.post_id", "c.created_at",
			"u.nickname", "u.user_id AS user_display_id",
			"p.title AS post_title",
		},
		filters: map[string]crud.SearchField{
			"user_id": {Operator: crud.Equal, Column: "c.user_id", Numeric: true},
			"post_id": {Operator: crud.Equal, Column: "c.post_id", Numeric: true},
		},
		sorts:      sortColumns("c", "id", "user_id", "created_at"),
		order:      "c.created_at DESC",
		displayIDs: map[string]string{"user_display_id": "user_id"},
		key:        "c.id",
	}

	followView = view{
		from: "follows f",
		joins: []string{
			"users u1 ON f.follower_id = u1.id",
			"users u2 ON f.following_id = u2.id",
		},
		columns: []string{
			"f.id", "f.follower_id", "f.following_id", "f.created_at",
			"u1.nickname AS follower_nickname", "u1.user_id AS follower_display_id",
			"u2.nickname AS following_nickname", "u2.user_id AS following_display_id",
		},
		filters: map[string]crud.SearchField{
			"follower_id":  {Operator: crud.Equal, Column: "f.follower_id", Numeric: true},
			"following_id": {Operator: crud.Equal, Column: "f.following_id", Numeric: true},
		},
		sorts: sortColumns("f", "id", "follower_id", "following_id", "created_at"),
		order: "f.created_at DESC",
		displayIDs: map[string]string{
			"follower_display_id":  "follower_id",
			"following_display_id": "following_id",
		},
		key: "f.id",
	}

	notificationView = view{
		from: "notifications n",
		joins: []string{
			"users u1 ON n.user_id = u1.id",
			"users u2 ON n.sender_id = u2.id",
		},
		columns: []string{
			"n.id", "n.user_id", "n.sender_id", "n.type", "n.title",
			"n.target_id", "n.comment_id", "n.is_read", "n.created_at",
			"u1.nickname AS user_nickname", "u1.user_id AS user_display_id",
			"u2.nickname AS sender_nickname", "u2.user_id AS sender_display_id",
		},
		filters: map[string]crud.SearchField{
			"user_id": {Operator: crud.Equal, Column: "n.user_id", Numeric: true},
			"type":    {Operator: crud.Equal, Column: "n.type", Numeric: true},
			"is_read": {Operator: crud.Equal, Column: "n.is_read", Numeric: true},
		},
		sorts: sortColumns("n", "id", "created_at"),
		order: "n.created_at DESC",
		displayIDs: map[string]string{
			"user_display_id":   "user_id",
			"sender_display_id": "sender_id",
		},
		key: "n.id",
	}

	sessionView = view{
		from:  "user_sessions s",
		joins: []string{"users u ON s.user_id = u.id"},
		columns: []string{
			"s.id", "s.user_id", "s.refresh_token", "s.user_agent", "s.is_active",
			"s.expires_at", "s.created_at",
			"u.nickname", "u.user_id AS user_display_id",
		},
		filters: map[string]crud.SearchField{
			"user_id":   {Operator: crud.Equal, Column: "s.user_id", Numeric: true},
			"is_active": {Operator: crud.Equal, Column: "s.is_active", Numeric: true},
		},
		sorts:      sortColumns("s", "id", "is_active", "expires_at", "created_at"),
		order:      "s.created_at DESC",
		displayIDs: map[string]string{"user_display_id": "user_id"},
		key:        "s.id",
	}
)

// Views serves the joined admin read models.
type Views struct {
	txm *TxManager
}

// NewViews creates Views.
func NewViews(txm *TxManager) *Views {
	return &Views{txm: txm}
}

// Post returns one post with its author, images and tags.
func (v *Views) Post(ctx context.Context, key any) (crud.Record, error) {
	rec, err := postView.one(ctx, v.txm, key)
	if err != nil || rec == nil {
		return rec, err
	}
	if err := v.attachPostDetails(ctx, []crud.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Posts lists posts with their authors, images and tags.
func (v *Views) Posts(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	rows, total, err := postView.list(ctx, v.txm, req)
	if err != nil {
		return nil, 0, err
	}
	if err := v.attachPostDetails(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Comments lists comments with author and post title.
func (v *Views) Comments(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return commentView.list(ctx, v.txm, req)
}

// Likes lists likes with the liking user.
func (v *Views) Likes(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return likeView.list(ctx, v.txm, req)
}

// Collections lists collections with user and post title.
func (v *Views) Collections(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return collectionView.list(ctx, v.txm, req)
}

// Follows lists follow edges with both users.
func (v *Views) Follows(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return followView.list(ctx, v.txm, req)
}

// Notifications lists notifications with recipient and sender.
func (v *Views) Notifications(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return notificationView.list(ctx, v.txm, req)
}

// Sessions lists user sessions with their owner.
func (v *Views) Sessions(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error) {
	return sessionView.list(ctx, v.txm, req)
}

// attachPostDetails loads images and tags for all rows with two queries.
func (v *Views) attachPostDetails(ctx context.Context, rows []crud.Record) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]any, 0, len(rows))
	byID := make(map[string]crud.Record, len(rows))
	for _, r := range rows {
		r["images"] = []string{}
		r["tags"] = []crud.Record{}
		ids = append(ids, r["id"])
		byID[fmt.Sprint(r["id"])] = r
	}

	b := v.txm.db.Dialect.Builder()
	q := v.txm.GetQuerier(ctx)

	images, err := queryRecords(ctx, q, b.
		Select("post_id", "image_url").
		From("post_images").
		Where(sq.Eq{"post_id": ids}).
		OrderBy("id"))
	if err != nil {
		return wrapErr(err, "post_images")
	}
	for _, img := range images {
		if r := byID[fmt.Sprint(img["post_id"])]; r != nil {
			r["images"] = append(r["images"].([]string), img.String("image_url"))
		}
	}

	tags, err := queryRecords(ctx, q, b.
		Select("pt.post_id", "t.id", "t.name").
		From("tags t").
		Join("post_tags pt ON t.id = pt.tag_id").
		Where(sq.Eq{"pt.post_id": ids}).
		OrderBy("t.id"))
	if err != nil {
		return wrapErr(err, "post_tags")
	}
	for _, t := range tags {
		r := byID[fmt.Sprint(t["post_id"])]
		if r == nil {
			continue
		}
		r["tags"] = append(r["tags"].([]crud.Record), crud.Record{"id": t["id"], "name": t["name"]})
	}
	return nil
}
