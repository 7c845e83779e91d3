package state

import "context"

// Store is the backend-agnostic interface the reconciler locks, reads, and
// writes state through (spec.md §4.3).
type Store interface {
	// Lock acquires the state lock on behalf of who, returning an opaque
	// lock ID that must be presented to Unlock. Readers (plan, validate)
	// do not call Lock; only apply/destroy do.
	Lock(ctx context.Context, who string) (lockID string, err error)

	// Unlock releases a lock previously acquired with Lock. Safe to call
	// more than once; a best-effort call after an already-released lock
	// must not itself fail the caller's error path.
	Unlock(ctx context.Context, lockID string) error

	// Read returns the current document, or an empty NewDocument() if none
	// exists yet.
	Read(ctx context.Context) (*Document, error)

	// Write atomically replaces the stored document.
	Write(ctx context.Context, doc *Document) error
}
