package store

import "errors"

var (
	// ErrNotFound is returned when a document does not exist for the owner.
	ErrNotFound = errors.New("document not found")

	// ErrCapabilityUnsupported is returned by QueryContains when the backend
	// has no native containment query.
	ErrCapabilityUnsupported = errors.New("store capability unsupported")
)
