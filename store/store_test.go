package store_test

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/EluvK/syncstore/store"
)

const noteSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"slug": {"type": "string", "x-unique": true}
	},
	"required": ["title"]
}`

const commentSchema = `{
	"type": "object",
	"properties": {
		"body": {"type": "string"},
		"note_id": {"type": "string", "x-parent-id": "notes"}
	},
	"required": ["body"]
}`

// runBackendTests runs a common test suite against any Backend
// implementation.
func runBackendTests(t *testing.T, b store.Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.EnsureCollection(ctx, "notes", []byte(noteSchema)); err != nil {
		t.Fatalf("EnsureCollection(notes): %v", err)
	}
	if _, err := b.EnsureCollection(ctx, "comments", []byte(commentSchema)); err != nil {
		t.Fatalf("EnsureCollection(comments): %v", err)
	}

	t.Run("Insert and Get", func(t *testing.T) {
		meta, err := b.Insert(ctx, "notes", store.Meta{ID: "n1", Owner: "alice"}, []byte(`{"title":"hello","slug":"hello"}`))
		if err != nil {
			t.Fatal(err)
		}
		if meta.CreatedAt == 0 || meta.UpdatedAt != meta.CreatedAt {
			t.Fatalf("expected matching fresh timestamps, got %+v", meta)
		}
		got, doc, err := b.Get(ctx, "notes", "n1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Owner != "alice" {
			t.Fatalf("expected owner=alice, got %q", got.Owner)
		}
		if string(doc) != `{"title":"hello","slug":"hello"}` {
			t.Fatalf("unexpected doc: %s", doc)
		}
	})

	t.Run("Insert rejects invalid document", func(t *testing.T) {
		_, err := b.Insert(ctx, "notes", store.Meta{ID: "bad"}, []byte(`{"slug":"x"}`))
		if err == nil {
			t.Fatal("expected validation error for missing required title")
		}
	})

	t.Run("Insert enforces x-unique", func(t *testing.T) {
		_, err := b.Insert(ctx, "notes", store.Meta{ID: "n2"}, []byte(`{"title":"dup","slug":"hello"}`))
		if err == nil {
			t.Fatal("expected unique violation")
		}
	})

	t.Run("Update retains parent_id when omitted", func(t *testing.T) {
		if _, err := b.Insert(ctx, "notes", store.Meta{ID: "n3"}, []byte(`{"title":"parent","slug":"parent3"}`)); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Insert(ctx, "comments", store.Meta{ID: "c1"}, []byte(`{"body":"first","note_id":"n3"}`)); err != nil {
			t.Fatal(err)
		}
		updated, err := b.Update(ctx, "comments", "c1", store.Meta{}, []byte(`{"body":"edited"}`))
		if err != nil {
			t.Fatal(err)
		}
		if updated.ParentID != "n3" {
			t.Fatalf("expected parent_id retained as n3, got %q", updated.ParentID)
		}
	})

	t.Run("Update detaches parent_id on explicit empty", func(t *testing.T) {
		updated, err := b.Update(ctx, "comments", "c1", store.Meta{}, []byte(`{"body":"edited again","note_id":""}`))
		if err != nil {
			t.Fatal(err)
		}
		if updated.ParentID != "" {
			t.Fatalf("expected detached parent_id, got %q", updated.ParentID)
		}
	})

	t.Run("Update rejects reassigning between two non-null parents", func(t *testing.T) {
		if _, err := b.Insert(ctx, "notes", store.Meta{ID: "n4"}, []byte(`{"title":"other","slug":"other4"}`)); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Update(ctx, "comments", "c1", store.Meta{}, []byte(`{"body":"reattach","note_id":"n3"}`)); err != nil {
			t.Fatal(err)
		}
		_, err := b.Update(ctx, "comments", "c1", store.Meta{}, []byte(`{"body":"move","note_id":"n4"}`))
		if err == nil {
			t.Fatal("expected ImmutableField error reassigning parent")
		}
	})

	t.Run("Insert rejects dangling parent reference", func(t *testing.T) {
		_, err := b.Insert(ctx, "comments", store.Meta{ID: "c2"}, []byte(`{"body":"orphan","note_id":"missing"}`))
		if err == nil {
			t.Fatal("expected dangling reference error")
		}
	})

	t.Run("ChildrenOf", func(t *testing.T) {
		ids, err := b.ChildrenOf(ctx, "comments", "n3")
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 || ids[0] != "c1" {
			t.Fatalf("expected [c1], got %v", ids)
		}
	})

	t.Run("List pagination", func(t *testing.T) {
		page, cursor, err := b.List(ctx, "notes", store.ListQuery{Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 2 {
			t.Fatalf("expected page of 2, got %d", len(page))
		}
		if cursor == "" {
			t.Fatal("expected non-empty cursor for a partial page")
		}
	})

	t.Run("Delete removes record and grants", func(t *testing.T) {
		if err := b.Grant(ctx, "notes", "n4", "alice", store.PermRead); err != nil {
			t.Fatal(err)
		}
		if err := b.Delete(ctx, "notes", "n4"); err != nil {
			t.Fatal(err)
		}
		if _, _, err := b.Get(ctx, "notes", "n4"); err == nil {
			t.Fatal("expected NotFound after delete")
		}
		ok, err := b.CheckGrant(ctx, "notes", "n4", "alice", store.PermRead)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected grant to be gone after delete")
		}
	})

	t.Run("Delete missing is NotFound", func(t *testing.T) {
		if err := b.Delete(ctx, "notes", "nope"); err == nil {
			t.Fatal("expected NotFound deleting missing record")
		}
	})

	t.Run("Grant, CheckGrant, Revoke", func(t *testing.T) {
		if err := b.Grant(ctx, "notes", "n1", "bob", store.PermRead|store.PermWrite); err != nil {
			t.Fatal(err)
		}
		ok, err := b.CheckGrant(ctx, "notes", "n1", "bob", store.PermWrite)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected bob to have write")
		}
		if err := b.Revoke(ctx, "notes", "n1", "bob"); err != nil {
			t.Fatal(err)
		}
		ok, err = b.CheckGrant(ctx, "notes", "n1", "bob", store.PermRead)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("expected grant revoked")
		}
	})

	t.Run("Summary reflects writes", func(t *testing.T) {
		summary, err := b.Summary(ctx)
		if err != nil {
			t.Fatal(err)
		}
		s, ok := summary["notes"]
		if !ok || s.Version == 0 {
			t.Fatalf("expected nonzero version for notes, got %+v", summary["notes"])
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	b := store.NewMemoryBackend()
	defer b.Close()
	runBackendTests(t, b)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := store.NewSQLiteBackend(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	runBackendTests(t, b)
}

func TestOpen(t *testing.T) {
	b, err := store.Open(context.Background(), t.TempDir(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, ok := b.(*store.MemoryBackend); !ok {
		t.Fatalf("expected MemoryBackend for :memory:, got %T", b)
	}

	b2, err := store.Open(context.Background(), t.TempDir(), "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	if _, ok := b2.(*store.SQLiteBackend); !ok {
		t.Fatalf("expected SQLiteBackend for a named namespace, got %T", b2)
	}
}
