package leads

import "context"

// Store is the persistence interface for lead runs.
type Store interface {
	Get(ctx context.Context, id string) (*Run, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Run, bool, error)
	Put(ctx context.Context, run *Run) error
}
