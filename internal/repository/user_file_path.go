package repository

import (
	"context"

	"docstore/internal/model"
)

// UserFilePathRepository is the path ownership ledger.
type UserFilePathRepository interface {
	// Register records (UserID, Path). Registering an existing pair is a no-op.
	Register(ctx context.Context, p *model.UserFilePath) error

	// ListByUser returns the user's registered paths, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.UserFilePath, error)
}
