package vertical

import "errors"

// Sentinel errors for programmatic handling. The HTTP layer maps these to
// status codes with errors.Is.
var (
	// ErrNotFound means no vertical exists with the given slug.
	ErrNotFound = errors.New("vertical not found")

	// ErrSlugExists means a create collided with an existing slug.
	ErrSlugExists = errors.New("vertical slug already exists")

	// ErrParentNotFound means the referenced parent slug is unknown.
	ErrParentNotFound = errors.New("parent vertical not found")

	// ErrBrainLinked means a delete was refused because a brain is still
	// linked to the vertical.
	ErrBrainLinked = errors.New("vertical has a linked brain")

	// ErrHierarchyCycle means a parent change would make the vertical an
	// ancestor of itself.
	ErrHierarchyCycle = errors.New("vertical hierarchy cycle")

	// ErrInvalidInput means a create or update input failed validation.
	ErrInvalidInput = errors.New("invalid vertical input")
)
