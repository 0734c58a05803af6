// Package data holds the namespace → Backend registry (DataManager)
// and the Builder that constructs one from a set of namespace and
// collection-schema definitions in dependency order.
package data

import (
	"sync"

	"github.com/EluvK/syncstore/store"
	"github.com/EluvK/syncstore/synerr"
)

// Manager maps namespace names to their open Backend.
type Manager struct {
	mu       sync.RWMutex
	backends map[string]store.Backend
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{backends: make(map[string]store.Backend)}
}

// Get resolves namespace to its Backend, or UnknownNamespace.
func (m *Manager) Get(namespace string) (store.Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.backends[namespace]
	if !ok {
		return nil, synerr.New("data.Get", synerr.UnknownNamespace, namespace)
	}
	return b, nil
}

// Put registers a Backend under namespace, replacing any prior entry.
func (m *Manager) Put(namespace string, b store.Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[namespace] = b
}

// Namespaces returns the registered namespace names in no particular
// order.
func (m *Manager) Namespaces() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.backends))
	for name := range m.backends {
		out = append(out, name)
	}
	return out
}

// Close closes every registered Backend, returning the first error
// encountered (if any) after attempting all of them.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for _, b := range m.backends {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
