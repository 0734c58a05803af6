// Package acl wraps a namespace's Backend with the grant/revoke/check
// operations over the reserved __acl table. It carries no inheritance
// logic — recursive parent-chain traversal is the Store facade's job.
package acl

import (
	"context"

	"github.com/EluvK/syncstore/store"
)

// Manager is a thin wrapper over store.Backend's Grant/Revoke/CheckGrant.
type Manager struct {
	backend store.Backend
}

// NewManager returns a Manager bound to backend.
func NewManager(backend store.Backend) *Manager {
	return &Manager{backend: backend}
}

// Grant records that subject holds perms on (collection, recordID),
// replacing any existing grant for the same tuple.
func (m *Manager) Grant(ctx context.Context, collection, recordID, subject string, perms store.Perm) error {
	return m.backend.Grant(ctx, collection, recordID, subject, perms)
}

// Revoke removes subject's grant on (collection, recordID), if any.
func (m *Manager) Revoke(ctx context.Context, collection, recordID, subject string) error {
	return m.backend.Revoke(ctx, collection, recordID, subject)
}

// Check reports whether subject holds action on (collection, recordID)
// via an explicit grant. It does not consult ownership or ancestors.
func (m *Manager) Check(ctx context.Context, subject, collection, recordID string, action store.Perm) (bool, error) {
	return m.backend.CheckGrant(ctx, collection, recordID, subject, action)
}
