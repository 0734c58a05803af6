// Package users is a thin wrapper over store.Backend for the reserved
// "user" collection: role lookups and existence checks. NewManager
// registers the user schema on its Backend if absent; a Backend does
// not register it on its own.
package users

import (
	"context"
	"encoding/json"

	"github.com/EluvK/syncstore/store"
	"github.com/EluvK/syncstore/synerr"
)

// Collection is the name of the reserved built-in collection.
const Collection = "user"

// Role is a user's access level. Admins bypass ACL checks entirely.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Schema is registered once per namespace, idempotently, the first
// time a Manager is constructed against a Backend.
const Schema = `{
	"type": "object",
	"required": ["id", "name", "role"],
	"properties": {
		"id":   {"type": "string"},
		"name": {"type": "string"},
		"role": {"type": "string", "enum": ["admin", "member"]}
	}
}`

// Manager is bound to one namespace's Backend.
type Manager struct {
	backend store.Backend
}

// NewManager ensures the user collection is registered on backend and
// returns a Manager bound to it.
func NewManager(ctx context.Context, backend store.Backend) (*Manager, error) {
	if _, ok := backend.Schema(Collection); !ok {
		if _, err := backend.EnsureCollection(ctx, Collection, []byte(Schema)); err != nil {
			return nil, err
		}
	}
	return &Manager{backend: backend}, nil
}

// GetRole returns userID's role, or NotFound if no such user exists.
func (m *Manager) GetRole(ctx context.Context, userID string) (Role, error) {
	_, doc, err := m.backend.Get(ctx, Collection, userID)
	if err != nil {
		return "", err
	}
	var fields struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return "", synerr.Wrap("users.GetRole", synerr.Internal, err)
	}
	return fields.Role, nil
}

// MustExist returns NotFound if userID is not a registered user.
func (m *Manager) MustExist(ctx context.Context, userID string) error {
	ok, err := m.backend.Exists(ctx, Collection, userID)
	if err != nil {
		return err
	}
	if !ok {
		return synerr.New("users.MustExist", synerr.NotFound, userID)
	}
	return nil
}
