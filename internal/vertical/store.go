package vertical

import "context"

// Store is the persistence interface for vertical records. Implementations
// are point-oriented: each record holds a fixed-dimension vector and the
// Vertical payload. Backends do not retry; failures propagate unchanged.
type Store interface {
	// List returns all verticals, or only active ones when includeInactive
	// is false.
	List(ctx context.Context, includeInactive bool) ([]*Vertical, error)

	// GetBySlug returns the vertical with the given (lowercased) slug.
	GetBySlug(ctx context.Context, slug string) (*Vertical, bool, error)

	// Create inserts a new record with its embedding vector.
	Create(ctx context.Context, v *Vertical, vector []float32) error

	// Update rewrites the payload of an existing record by ID. The stored
	// vector is left untouched.
	Update(ctx context.Context, v *Vertical) error

	// Delete physically removes the record by ID.
	Delete(ctx context.Context, id string) error
}
