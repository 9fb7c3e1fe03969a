package repository

import (
	"context"

	"docstore/internal/model"
)

// FileRepository persists FileRecord rows.
type FileRepository interface {
	// Create inserts a record. The caller provides ID and CreatedAt.
	Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)

	// FindByID returns ErrNotFound when no record has the id.
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)

	// ListByUploader returns the user's records, newest first.
	ListByUploader(ctx context.Context, uploaderID string) ([]model.FileRecord, error)

	// Delete removes a record and reports whether it existed. A record that
	// still backs a document version yields ErrConflict.
	Delete(ctx context.Context, id string) (bool, error)
}
