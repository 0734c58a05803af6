package data

import (
	"context"
	"fmt"

	"github.com/EluvK/syncstore/store"
)

// CollectionDef is one collection's schema within a NamespaceDef.
// Schemas whose x-parent-id targets a sibling collection must appear
// after that sibling in the slice — EnsureCollection rejects forward
// references eagerly.
type CollectionDef struct {
	Collection string
	SchemaJSON []byte
}

// NamespaceDef describes one namespace to provision: its name and its
// collection schemas in dependency order (parents before children).
type NamespaceDef struct {
	Name    string
	Schemas []CollectionDef
}

// Builder constructs a Manager from a set of NamespaceDefs, opening
// one Backend per namespace under rootDir and registering every
// collection schema in the order given.
type Builder struct {
	rootDir string
	opts    []store.Option
}

// NewBuilder returns a Builder that opens namespace backends under
// rootDir with opts applied to each.
func NewBuilder(rootDir string, opts ...store.Option) *Builder {
	return &Builder{rootDir: rootDir, opts: opts}
}

// Build opens a Backend for every def and registers its schemas in
// order, failing fast (and closing any backends already opened) on
// the first error.
func (b *Builder) Build(ctx context.Context, defs []NamespaceDef) (*Manager, error) {
	m := NewManager()
	for _, def := range defs {
		backend, err := store.Open(ctx, b.rootDir, def.Name, b.opts...)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("data.Build: open namespace %q: %w", def.Name, err)
		}
		m.Put(def.Name, backend)

		for _, c := range def.Schemas {
			if _, err := backend.EnsureCollection(ctx, c.Collection, c.SchemaJSON); err != nil {
				m.Close()
				return nil, fmt.Errorf("data.Build: namespace %q collection %q: %w", def.Name, c.Collection, err)
			}
		}
	}
	return m, nil
}
