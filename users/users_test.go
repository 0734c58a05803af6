package users_test

import (
	"context"
	"testing"

	"github.com/EluvK/syncstore/store"
	"github.com/EluvK/syncstore/synerr"
	"github.com/EluvK/syncstore/users"
)

func TestAutoRegisterAndGetRole(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	defer backend.Close()

	m, err := users.NewManager(ctx, backend)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.Schema(users.Collection); !ok {
		t.Fatal("expected user schema to be auto-registered")
	}

	if _, err := backend.Insert(ctx, users.Collection, store.Meta{ID: "u1"}, []byte(`{"id":"u1","name":"A","role":"admin"}`)); err != nil {
		t.Fatal(err)
	}

	role, err := m.GetRole(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if role != users.RoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}

	if err := m.MustExist(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	if err := m.MustExist(ctx, "missing"); synerr.KindOf(err) != synerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestNewManagerIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	defer backend.Close()

	if _, err := users.NewManager(ctx, backend); err != nil {
		t.Fatal(err)
	}
	if _, err := users.NewManager(ctx, backend); err != nil {
		t.Fatalf("second NewManager against the same backend should be idempotent: %v", err)
	}
}
