package preview

import "errors"

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidDimensions is returned when a resize would make either
	// dimension non-positive.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrEmptyDocument is returned when a generation tries to complete
	// with no content. An artifact is never populated with an empty
	// document; a failed generation leaves it empty instead.
	ErrEmptyDocument = errors.New("empty document")
)
