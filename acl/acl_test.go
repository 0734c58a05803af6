package acl_test

import (
	"context"
	"testing"

	"github.com/EluvK/syncstore/acl"
	"github.com/EluvK/syncstore/store"
)

func TestGrantCheckRevoke(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	defer backend.Close()

	m := acl.NewManager(backend)

	ok, err := m.Check(ctx, "bob", "notes", "n1", store.PermRead)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no grant yet")
	}

	if err := m.Grant(ctx, "notes", "n1", "bob", store.PermRead|store.PermWrite); err != nil {
		t.Fatal(err)
	}
	ok, err = m.Check(ctx, "bob", "notes", "n1", store.PermWrite)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected write grant")
	}
	ok, err = m.Check(ctx, "bob", "notes", "n1", store.PermDelete)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no delete grant")
	}

	if err := m.Revoke(ctx, "notes", "n1", "bob"); err != nil {
		t.Fatal(err)
	}
	ok, err = m.Check(ctx, "bob", "notes", "n1", store.PermRead)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected grant gone after revoke")
	}
}
