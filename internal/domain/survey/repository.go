package survey

import "context"

// Repository persists responses. Every call joins the transaction in ctx.
type Repository interface {
	// OpenDraft returns the user's incomplete response, or nil.
	OpenDraft(ctx context.Context, userID int64) (*Draft, error)
	CreateResponse(ctx context.Context, r Response) (int64, error)
	UpdateResponse(ctx context.Context, id int64, r Response) error

	IsVerified(ctx context.Context, userID int64) (bool, error)
	MarkVerified(ctx context.Context, userID int64) error
}
