// Package docstore implements the filesystem-backed hierarchical document
// store: document metadata (document.json per directory), requirement items
// (items/<id>.json), identifier parsing with legacy filename fallback, link
// integrity validation with ancestor-chain authorization, fingerprint-based
// suspect detection, and cascading deletes.
//
// The store assumes a single writer per root directory. There is no file
// locking and no transactional grouping across files; concurrent writers are
// kept honest only by the per-item revision gate, and interrupted cascades
// heal through suspect detection on the next read.
package docstore

import "fmt"

// ValidationError reports a payload, label, link, or revision value that
// violates the store's rules. Never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// DocumentNotFoundError reports a document prefix that does not resolve.
type DocumentNotFoundError struct {
	Prefix string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("unknown document prefix: %s", e.Prefix)
}

// RequirementNotFoundError reports a rid that does not resolve to an item.
type RequirementNotFoundError struct {
	RID string
}

func (e *RequirementNotFoundError) Error() string {
	return fmt.Sprintf("requirement %s not found", e.RID)
}

// RevisionMismatchError is the optimistic-concurrency conflict: the caller
// supplied a revision that no longer matches the stored one. It carries both
// values so callers can decide between reload-and-retry and prompting.
type RevisionMismatchError struct {
	Expected int
	Actual   int
}

func (e *RevisionMismatchError) Error() string {
	return fmt.Sprintf("revision mismatch: expected %d, have %d", e.Expected, e.Actual)
}

// RequirementIDCollisionError reports an attempt to reuse an id that already
// exists in the target document.
type RequirementIDCollisionError struct {
	Prefix string
	ID     int
	RID    string
}

func (e *RequirementIDCollisionError) Error() string {
	return fmt.Sprintf("requirement %s already exists", e.RID)
}
