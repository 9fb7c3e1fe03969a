package repository

import (
	"context"

	"docstore/internal/model"
)

// DocumentRepository defines data access for documents and their versions using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts the document together with its first version in one
	// atomic unit. The version number is forced to 1.
	Create(ctx context.Context, doc *model.Document, first *model.DocumentVersion) (*model.Document, error)

	// AddVersion appends the next version number to the document.
	// Returns ErrNotFound if the document does not exist and ErrConflict if a
	// concurrent writer claimed the same number.
	AddVersion(ctx context.Context, documentID, versionID, fileRecordID string) (*model.DocumentVersion, error)

	// FindByID returns the document with versions and file metadata resolved.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByOwner returns the owner's documents in insertion order, each with
	// versions (ascending) and file metadata resolved.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// Delete removes the document, its versions and the file records those
	// versions owned. The removed file records are returned so the caller can
	// clean up blobs.
	Delete(ctx context.Context, id string) ([]model.FileRecord, error)
}
