package store

import (
	"time"

	"github.com/google/uuid"
)

// Meta is the core-managed envelope every record carries alongside its
// document body. Owner and ParentID use "" to mean null/absent — ids
// are never empty strings in this system, so the zero value is
// unambiguous.
type Meta struct {
	ID        string
	Owner     string
	ParentID  string
	CreatedAt int64
	UpdatedAt int64
}

// Record is a Meta envelope plus its raw document body.
type Record struct {
	Meta
	Doc []byte
}

// CollectionSummary is the per-collection change digest returned by
// Backend.Summary and, filtered by permission, by the Store facade.
type CollectionSummary struct {
	Version       int64
	LastUpdatedAt int64
}

// ListQuery controls Backend.List filtering and pagination.
type ListQuery struct {
	// Filter holds top-level property equality predicates.
	Filter map[string]any

	// FilterByParent, when true, restricts to records whose parent_id
	// equals ParentID ("" meaning top-level/no parent).
	FilterByParent bool
	ParentID       string

	// Limit caps the page size; Backend applies a default when <= 0.
	Limit int

	// Cursor is the opaque (updated_at, id) pagination token returned
	// by the previous call, or "" for the first page.
	Cursor string
}

// Clock returns milliseconds since the Unix epoch. It exists so tests
// can drive monotonicity without sleeping, and so a caller can supply
// a non-system clock per spec.md §6.
type Clock interface {
	NowMillis() int64
}

// SystemClock is the default Clock, backed by the wall clock.
type SystemClock struct{}

// NowMillis implements Clock.
func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// IDGenerator produces record ids when the caller does not supply one.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the default IDGenerator, producing random UUIDv4
// strings — the id-generation choice most represented in the
// retrieval pack.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }
