package registry

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("registry: record not found")

	// ErrExists indicates a record with the same id already exists.
	ErrExists = errors.New("registry: record already exists")

	// ErrInvalidRecord indicates the record failed validation.
	ErrInvalidRecord = errors.New("registry: invalid record")
)
