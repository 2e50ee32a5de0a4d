package mongodb

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStatusMismatch is returned by conditional updates when the document exists but no
	// longer matches the expected state.
	ErrStatusMismatch = errors.New("document state changed concurrently")
	ErrDuplicate      = errors.New("duplicate key")
)
