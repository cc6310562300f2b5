package auth

import "context"

// AdminRepository reads administrator accounts. Lookups return (nil, nil)
// when no account matches.
type AdminRepository interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	GetByID(ctx context.Context, adminID int64) (*Admin, error)
	// Create inserts an account with an already hashed password.
	Create(ctx context.Context, username, passwordHash string) (int64, error)
}
