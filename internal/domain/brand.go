package domain

import "time"

// BrandContext is one immutable snapshot of the brand-knowledge document.
// Pipeline runs capture a snapshot at prompt-assembly time; a concurrent
// reload produces a new snapshot and never mutates this one.
type BrandContext struct {
	Text     string
	Path     string
	LoadedAt time.Time
}

// ContextStore provides snapshots of the brand context.
type ContextStore interface {
	// Current never blocks and never fails; it returns the last
	// successfully loaded snapshot.
	Current() *BrandContext
	// Reload re-reads the source document. On failure the previous
	// snapshot stays in place and the error is returned to the caller.
	Reload() (*BrandContext, error)
}
