package schema

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/EluvK/syncstore/synerr"
)

// Registry is the append-only, per-namespace set of compiled
// validators. It is process-local and immutable after a schema is
// published: Get takes the read lock only, matching the read-mostly
// publication pattern of spec.md §5.
type Registry struct {
	mu       sync.RWMutex
	compiled map[string]*Compiled
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{compiled: make(map[string]*Compiled)}
}

// Get returns the compiled validator for collection, if registered.
func (r *Registry) Get(collection string) (*Compiled, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.compiled[collection]
	return c, ok
}

// All returns every compiled validator in registration order.
func (r *Registry) All() []*Compiled {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Compiled, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.compiled[name])
	}
	return out
}

// Register compiles schemaJSON for collection and publishes it.
// Registering the same collection again is idempotent iff the bytes
// byte-equal the stored schema; otherwise it fails with
// SchemaConflict. An x-parent-id target must already be registered in
// this registry or be the collection itself (a self-referencing tree) —
// forward references are rejected eagerly.
func (r *Registry) Register(collection string, schemaJSON []byte) (*Compiled, error) {
	const op = "schema.Register"

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.compiled[collection]; ok {
		if bytes.Equal(existing.Raw, schemaJSON) {
			return existing, nil
		}
		return nil, synerr.New(op, synerr.SchemaConflict,
			fmt.Sprintf("collection %q is already registered with a different schema", collection))
	}

	compiled, err := compile(collection, schemaJSON)
	if err != nil {
		return nil, err
	}

	if compiled.ParentCollection != "" && compiled.ParentCollection != collection {
		if _, ok := r.compiled[compiled.ParentCollection]; !ok {
			return nil, synerr.New(op, synerr.InvalidSchema,
				fmt.Sprintf("x-parent-id target %q must be registered before %q", compiled.ParentCollection, collection))
		}
	}

	r.compiled[collection] = compiled
	r.order = append(r.order, collection)
	return compiled, nil
}
