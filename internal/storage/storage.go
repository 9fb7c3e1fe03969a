package storage

import (
	"context"
	"fmt"
	"io"

	"docstore/internal/model"
)

var (
	ErrEmptyFile           = fmt.Errorf("%w: file is empty", model.ErrValidation)
	ErrUnsupportedFileType = fmt.Errorf("%w: file type is not allowed", model.ErrValidation)
	ErrInvalidOwner        = fmt.Errorf("%w: owner id is not usable as a path segment", model.ErrValidation)
	ErrInvalidPath         = fmt.Errorf("%w: path escapes the storage root", model.ErrValidation)
	ErrConflictingPath     = fmt.Errorf("%w: storage path already exists", model.ErrConflict)
	// ErrBlobNotFound means the physical object is absent. It is distinct from
	// a missing metadata row.
	ErrBlobNotFound = fmt.Errorf("%w: blob", model.ErrNotFound)
)

// Upload is an incoming file as handed over by the transport layer.
// Size is the declared byte length; -1 when unknown.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Location describes where Save put the bytes.
type Location struct {
	// Path is the stable, relative storage path recorded in FileRecord.FilePath.
	Path     string
	SafeName string
	Bytes    int64
	SizeKB   int64
}

// Backend is a flat namespace of immutable objects addressed by relative,
// slash-separated keys. Implementations must be safe for concurrent use.
type Backend interface {
	// Create writes r under key. It fails with ErrConflictingPath when the key
	// already exists and never leaves a partial object behind on error.
	Create(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open streams an object. ErrBlobNotFound when absent.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes an object and reports whether it existed.
	Remove(ctx context.Context, key string) (bool, error)
}

// BlobStore writes, reads and deletes file bytes at generated paths.
type BlobStore interface {
	Save(ctx context.Context, up Upload, ownerID string) (Location, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete is best-effort: absence and I/O failures both yield false.
	Delete(ctx context.Context, path string) bool
	ContentType(filename string) string
	PublicURL(path string) string
}

// SizeKB rounds n bytes up to whole kilobytes with a floor of 1.
func SizeKB(n int64) int64 {
	kb := (n + 1023) / 1024
	if kb < 1 {
		return 1
	}
	return kb
}
