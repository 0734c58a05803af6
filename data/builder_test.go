package data_test

import (
	"context"
	"testing"

	"github.com/EluvK/syncstore/data"
	"github.com/EluvK/syncstore/synerr"
)

const folderSchema = `{"type":"object","properties":{"name":{"type":"string"}}}`
const noteSchema = `{"type":"object","properties":{"folder_id":{"type":"string","x-parent-id":"folder"}}}`

func TestBuilderRegistersInOrder(t *testing.T) {
	b := data.NewBuilder(t.TempDir())
	m, err := b.Build(context.Background(), []data.NamespaceDef{
		{
			Name: ":memory:",
			Schemas: []data.CollectionDef{
				{Collection: "folder", SchemaJSON: []byte(folderSchema)},
				{Collection: "note", SchemaJSON: []byte(noteSchema)},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	backend, err := m.Get(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.Schema("note"); !ok {
		t.Fatal("expected note collection registered")
	}
}

func TestBuilderFailsFastOnForwardReference(t *testing.T) {
	b := data.NewBuilder(t.TempDir())
	_, err := b.Build(context.Background(), []data.NamespaceDef{
		{
			Name: ":memory:",
			Schemas: []data.CollectionDef{
				{Collection: "note", SchemaJSON: []byte(noteSchema)},
				{Collection: "folder", SchemaJSON: []byte(folderSchema)},
			},
		},
	})
	if err == nil {
		t.Fatal("expected forward x-parent-id reference to fail at build time")
	}
}

func TestManagerGetUnknownNamespace(t *testing.T) {
	m := data.NewManager()
	_, err := m.Get("nope")
	if synerr.KindOf(err) != synerr.UnknownNamespace {
		t.Fatalf("expected UnknownNamespace, got %v", err)
	}
}
