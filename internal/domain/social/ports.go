// Package social declares the content entities served by the admin API and
// the lifecycle hooks that keep their related tables consistent.
package social

import (
	"context"

	"pomegranate/internal/domain/crud"
)

// Store is the persistence the hooks need beyond the generic repository.
// Every method joins the transaction carried by ctx.
type Store interface {
	Exists(ctx context.Context, table string, where map[string]any) (bool, error)
	Rows(ctx context.Context, table string, where map[string]any) ([]crud.Record, error)
	Count(ctx context.Context, table string, where map[string]any) (int64, error)
	// AdjustCounter adds delta to an integer column, flooring at zero.
	AdjustCounter(ctx context.Context, table, column string, where map[string]any, delta int64) error

	// EnsureTag returns the id of the tag named name, creating it if needed.
	EnsureTag(ctx context.Context, name string) (int64, error)
	// PostTagIDs returns the tag ids linked to the posts, one entry per link.
	PostTagIDs(ctx context.Context, postIDs []any) ([]int64, error)
	ReplacePostTags(ctx context.Context, postID any, tagIDs []int64) error
	ReplacePostImages(ctx context.Context, postID any, urls []string) error

	InsertNotification(ctx context.Context, n Notification) error
	// UserKeys maps public user ids to numeric keys; unknown ids are absent.
	UserKeys(ctx context.Context, publicIDs []string) (map[string]int64, error)
}

// Views serves the joined read models used instead of the default reads.
type Views interface {
	Post(ctx context.Context, key any) (crud.Record, error)
	Posts(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Comments(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Likes(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Collections(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Follows(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Notifications(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
	Sessions(ctx context.Context, req crud.ListRequest) ([]crud.Record, int64, error)
}

// ImageUploader stores a data:image/...;base64 payload and returns its URL.
type ImageUploader interface {
	UploadDataURL(ctx context.Context, dataURL string) (string, error)
}

// GeoResolver maps a client IP to a human-readable location.
type GeoResolver interface {
	Locate(ctx context.Context, ip string) (string, error)
}
