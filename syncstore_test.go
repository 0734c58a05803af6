package syncstore_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/EluvK/syncstore/store"
	"github.com/EluvK/syncstore/synerr"
	"github.com/EluvK/syncstore/users"

	syncstore "github.com/EluvK/syncstore"
)

const postSchema = `{
	"type": "object",
	"required": ["title", "author"],
	"properties": {
		"title":  {"type": "string"},
		"author": {"type": "string", "$ref": "user.id"}
	}
}`

const profileSchema = `{
	"type": "object",
	"properties": {
		"handle": {"type": "string", "x-unique": true}
	}
}`

const folderSchema = `{"type": "object", "properties": {"name": {"type": "string"}}}`

const noteSchema = `{
	"type": "object",
	"properties": {
		"body":      {"type": "string"},
		"folder_id": {"type": "string", "x-parent-id": "folder"}
	}
}`

const categorySchema = `{
	"type": "object",
	"properties": {
		"name":        {"type": "string"},
		"category_id": {"type": "string", "x-parent-id": "category"}
	}
}`

func openTestStore(t *testing.T, schemas ...syncstore.SchemaConfig) *syncstore.Store {
	t.Helper()
	cfg := syncstore.Config{
		RootDir: t.TempDir(),
		Namespaces: []syncstore.NamespaceConfig{
			{Name: ":memory:", Schemas: schemas},
		},
	}
	s, err := syncstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func schemaOf(collection, raw string) syncstore.SchemaConfig {
	return syncstore.SchemaConfig{Collection: collection, SchemaJSON: json.RawMessage(raw)}
}

func mustInsertUser(t *testing.T, s *syncstore.Store, id, name string, role users.Role) {
	t.Helper()
	doc := `{"id":"` + id + `","name":"` + name + `","role":"` + string(role) + `"}`
	if _, err := s.Insert(context.Background(), syncstore.SystemSubject, ":memory:", users.Collection, []byte(doc)); err != nil {
		t.Fatalf("bootstrap user %s: %v", id, err)
	}
}

// Scenario 1: register-and-insert.
func TestRegisterAndInsert(t *testing.T) {
	s := openTestStore(t, schemaOf("post", postSchema))
	ctx := context.Background()

	mustInsertUser(t, s, "u1", "A", users.RoleMember)

	if _, err := s.Insert(ctx, "u1", ":memory:", "post", []byte(`{"id":"p1","title":"hi","author":"u1"}`)); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Summary(ctx, "u1", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if summary["post"].Version != 1 {
		t.Fatalf("expected post.version=1, got %+v", summary["post"])
	}
}

// Scenario 2: dangling reference.
func TestDanglingReference(t *testing.T) {
	s := openTestStore(t, schemaOf("post", postSchema))
	ctx := context.Background()
	mustInsertUser(t, s, "u1", "A", users.RoleMember)

	_, err := s.Insert(ctx, "u1", ":memory:", "post", []byte(`{"id":"p2","title":"x","author":"u404"}`))
	if synerr.KindOf(err) != synerr.DanglingReference {
		t.Fatalf("expected DanglingReference, got %v", err)
	}

	summary, err := s.Summary(ctx, "u1", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := summary["post"]; ok {
		t.Fatalf("expected no post entries after a failed write, got %+v", summary)
	}
}

// Scenario 3: unique violation.
func TestUniqueViolation(t *testing.T) {
	s := openTestStore(t, schemaOf("profile", profileSchema))
	ctx := context.Background()
	mustInsertUser(t, s, "u1", "A", users.RoleMember)

	if _, err := s.Insert(ctx, "u1", ":memory:", "profile", []byte(`{"handle":"alice"}`)); err != nil {
		t.Fatal(err)
	}
	_, err := s.Insert(ctx, "u1", ":memory:", "profile", []byte(`{"handle":"alice"}`))
	if synerr.KindOf(err) != synerr.UniqueViolation {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}
}

// Scenario 4: parent ACL inheritance.
func TestParentACLInheritance(t *testing.T) {
	s := openTestStore(t, schemaOf("folder", folderSchema), schemaOf("note", noteSchema))
	ctx := context.Background()

	mustInsertUser(t, s, "u1", "A", users.RoleMember)
	mustInsertUser(t, s, "u2", "B", users.RoleMember)
	mustInsertUser(t, s, "u3", "C", users.RoleMember)

	if _, err := s.Insert(ctx, "u1", ":memory:", "folder", []byte(`{"id":"f1","name":"root"}`)); err != nil {
		t.Fatal(err)
	}

	if err := s.Grant(ctx, "u1", ":memory:", "folder", "f1", "u2", store.PermWrite); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Insert(ctx, "u2", ":memory:", "note", []byte(`{"id":"n1","body":"hi","folder_id":"f1"}`)); err != nil {
		t.Fatalf("u2 should be able to create under f1: %v", err)
	}

	if _, err := s.Update(ctx, "u3", ":memory:", "note", "n1", []byte(`{"body":"edited","folder_id":"f1"}`)); synerr.KindOf(err) != synerr.PermissionDenied {
		t.Fatalf("expected PermissionDenied for u3, got %v", err)
	}

	if _, err := s.Update(ctx, "u2", ":memory:", "note", "n1", []byte(`{"body":"edited via inherited grant","folder_id":"f1"}`)); err != nil {
		t.Fatalf("u2's grant on the parent folder should let them write the note: %v", err)
	}
}

// Scenario 5: parent cycle.
func TestParentCycleRejected(t *testing.T) {
	s := openTestStore(t, schemaOf("category", categorySchema))
	ctx := context.Background()
	mustInsertUser(t, s, "u1", "A", users.RoleMember)

	if _, err := s.Insert(ctx, "u1", ":memory:", "category", []byte(`{"id":"c1","name":"root"}`)); err != nil {
		t.Fatal(err)
	}

	_, err := s.Update(ctx, "u1", ":memory:", "category", "c1", []byte(`{"name":"root","category_id":"c1"}`))
	if synerr.KindOf(err) != synerr.ParentCycle {
		t.Fatalf("expected ParentCycle assigning a record as its own parent, got %v", err)
	}
}

// Scenario 6: admin bypass.
func TestAdminBypass(t *testing.T) {
	s := openTestStore(t, schemaOf("profile", profileSchema))
	ctx := context.Background()
	mustInsertUser(t, s, "owner", "Owner", users.RoleMember)
	mustInsertUser(t, s, "root", "Root", users.RoleAdmin)

	meta, err := s.Insert(ctx, "owner", ":memory:", "profile", []byte(`{"handle":"zed"}`))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Update(ctx, "root", ":memory:", "profile", meta.ID, []byte(`{"handle":"zed2"}`)); err != nil {
		t.Fatalf("expected admin to bypass ownership on update: %v", err)
	}
}

// Round trip (P6): Get after Insert returns the inserted document,
// with the generated id written into it.
func TestRoundTrip(t *testing.T) {
	s := openTestStore(t, schemaOf("profile", profileSchema))
	ctx := context.Background()
	mustInsertUser(t, s, "u1", "A", users.RoleMember)

	meta, err := s.Insert(ctx, "u1", ":memory:", "profile", []byte(`{"handle":"round-trip"}`))
	if err != nil {
		t.Fatal(err)
	}

	gotMeta, doc, err := s.Get(ctx, "u1", ":memory:", "profile", meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(doc, "handle").String() != "round-trip" || gjson.GetBytes(doc, "id").String() != meta.ID {
		t.Fatalf("unexpected doc: %s", doc)
	}
	if gotMeta.Owner != "u1" || gotMeta.CreatedAt != meta.CreatedAt {
		t.Fatalf("unexpected meta: %+v", gotMeta)
	}
}
