package mocks

import (
	"context"

	"docstore/internal/repository"
)

// Transactor runs fn directly and counts invocations. Err, when set, is
// returned instead of calling fn.
type Transactor struct {
	Calls int
	Err   error
}

var _ repository.Transactor = (*Transactor)(nil)

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	return fn(ctx)
}
