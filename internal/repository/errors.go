package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates the write would violate an integrity invariant.
	ErrConflict = errors.New("repository: conflict")
)
