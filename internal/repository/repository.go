package repository

import (
	"context"
	"fmt"

	"docstore/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = fmt.Errorf("%w: record", model.ErrNotFound)
	// ErrConflict is returned when a uniqueness or reference constraint rejects a write.
	ErrConflict = fmt.Errorf("%w: constraint violation", model.ErrConflict)
)

// Transactor runs fn inside a single database transaction. Repository calls
// made with the context passed to fn join that transaction. Nested calls
// reuse the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
