package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// Open creates the Backend for one namespace. namespace == ":memory:"
// selects MemoryBackend; any other name opens (or creates) a SQLite
// file at rootDir/<sanitized-namespace>.db.
func Open(ctx context.Context, rootDir, namespace string, opts ...Option) (Backend, error) {
	if namespace == ":memory:" {
		return NewMemoryBackend(opts...), nil
	}
	path := filepath.Join(rootDir, SanitizeNamespace(namespace)+".db")
	b, err := NewSQLiteBackend(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open backend for namespace %q: %w", namespace, err)
	}
	return b, nil
}
