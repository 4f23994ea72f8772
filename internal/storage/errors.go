package storage

import "errors"

var (
	// ErrNotFound indicates no state blob has been persisted yet.
	ErrNotFound = errors.New("storage: state not found")

	// ErrCorrupt indicates the persisted blob could not be decoded.
	ErrCorrupt = errors.New("storage: state corrupt")
)
