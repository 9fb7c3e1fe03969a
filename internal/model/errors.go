package model

import "errors"

// Error categories shared by every layer. Concrete errors wrap one of these
// so callers can branch with errors.Is without knowing the exact cause.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
