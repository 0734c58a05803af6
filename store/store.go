// Package store defines the Backend capability set and its two
// implementations: a SQLite-backed relational store for on-disk
// namespaces, and an in-process store for the ":memory:" sentinel and
// hermetic tests.
package store

import (
	"context"

	"github.com/EluvK/syncstore/schema"
)

// Backend is the per-namespace physical persistence capability set:
// table lifecycle, validator compilation (via the embedded registry),
// raw CRUD with validation, and the reserved __acl / __changes
// bookkeeping tables. DataManager holds one Backend per namespace.
type Backend interface {
	// EnsureCollection registers and compiles schemaJSON for
	// collection (idempotent on byte-identical re-registration) and
	// provisions its table and indexes.
	EnsureCollection(ctx context.Context, collection string, schemaJSON []byte) (*schema.Compiled, error)

	// Schema returns the compiled validator for an already-registered
	// collection.
	Schema(collection string) (*schema.Compiled, bool)

	// Insert validates doc, checks cross-references and parent
	// linkage, enforces x-unique, stamps created_at/updated_at, and
	// persists the record. meta.ID/meta.Owner must already be set by
	// the caller (the Store facade); meta.ParentID and the timestamps
	// are computed here from doc and the Backend's Clock.
	Insert(ctx context.Context, collection string, meta Meta, doc []byte) (Meta, error)

	// Update re-validates doc against the same invariants as Insert,
	// retains parent_id when the schema's x-parent-id property is
	// absent from doc, detaches it on an explicit null, and rejects a
	// reassignment between two different non-null parents with
	// ImmutableField. updated_at is strictly greater than the
	// previous value.
	Update(ctx context.Context, collection, id string, meta Meta, doc []byte) (Meta, error)

	// Delete removes a record and its ACL grants. NotFound if absent.
	Delete(ctx context.Context, collection, id string) error

	// Get returns a record's Meta and raw document body.
	Get(ctx context.Context, collection, id string) (Meta, []byte, error)

	// List returns a page of records ordered by (updated_at, id) plus
	// the cursor for the next page ("" when exhausted).
	List(ctx context.Context, collection string, q ListQuery) ([]Record, string, error)

	// Exists reports whether id is present in collection.
	Exists(ctx context.Context, collection, id string) (bool, error)

	// ChildrenOf returns the ids of records in collection whose
	// parent_id equals parentID.
	ChildrenOf(ctx context.Context, collection, parentID string) ([]string, error)

	// Summary returns the per-collection change digest.
	Summary(ctx context.Context) (map[string]CollectionSummary, error)

	// Grant, Revoke, and CheckGrant manage the reserved __acl table.
	// AclManager is a thin wrapper over these; no inheritance logic
	// lives at this layer.
	Grant(ctx context.Context, collection, recordID, subject string, perms Perm) error
	Revoke(ctx context.Context, collection, recordID, subject string) error
	CheckGrant(ctx context.Context, collection, recordID, subject string, action Perm) (bool, error)

	// Close releases the namespace's resources (connection pool or,
	// for MemoryBackend, nothing).
	Close() error
}
