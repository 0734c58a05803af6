// Package syncstore is the Store facade: end-to-end orchestration of
// metadata stamping, the permission gate, parent traversal, reference
// validation, and change summaries over a DataManager of namespace
// Backends.
package syncstore

import (
	"context"
	"log"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/EluvK/syncstore/acl"
	"github.com/EluvK/syncstore/data"
	"github.com/EluvK/syncstore/schema"
	"github.com/EluvK/syncstore/store"
	"github.com/EluvK/syncstore/synerr"
	"github.com/EluvK/syncstore/users"
)

// SystemSubject is the reserved, non-interactive principal used for
// bootstrap writes — most notably, registering the very first `user`
// record, before any authenticated subject exists to own it.
const SystemSubject = "__system__"

// Store is the facade external collaborators drive: it resolves a
// namespace's Backend, enforces the permission gate, and stamps the
// Meta envelope around every write.
type Store struct {
	data *data.Manager

	mu    sync.RWMutex
	users map[string]*users.Manager
	acls  map[string]*acl.Manager

	clock          store.Clock
	idGen          store.IDGenerator
	policyMaxDepth int
}

// Open provisions every namespace in cfg (opening or creating its
// Backend and registering its collection schemas in order), binds a
// UserManager and AclManager to each, and returns the assembled Store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.PolicyMaxDepth > 0 {
		o.policyMaxDepth = cfg.PolicyMaxDepth
	}

	backendOpts := []store.Option{
		store.WithClock(o.clock),
		store.WithPolicyMaxDepth(o.policyMaxDepth),
	}
	if cfg.PoolSize > 0 {
		backendOpts = append(backendOpts, store.WithPoolSize(cfg.PoolSize))
	}

	defs := make([]data.NamespaceDef, 0, len(cfg.Namespaces))
	for _, ns := range cfg.Namespaces {
		def := data.NamespaceDef{Name: ns.Name}
		for _, s := range ns.Schemas {
			def.Schemas = append(def.Schemas, data.CollectionDef{
				Collection: s.Collection,
				SchemaJSON: []byte(s.SchemaJSON),
			})
		}
		defs = append(defs, def)
	}

	dm, err := data.NewBuilder(cfg.RootDir, backendOpts...).Build(ctx, defs)
	if err != nil {
		return nil, err
	}

	s := &Store{
		data:           dm,
		users:          make(map[string]*users.Manager),
		acls:           make(map[string]*acl.Manager),
		clock:          o.clock,
		idGen:          o.idGen,
		policyMaxDepth: o.policyMaxDepth,
	}
	for _, name := range dm.Namespaces() {
		if err := s.bindNamespace(ctx, name); err != nil {
			dm.Close()
			return nil, err
		}
	}
	log.Printf("syncstore: opened store with %d namespace(s)", len(dm.Namespaces()))
	return s, nil
}

func (s *Store) bindNamespace(ctx context.Context, namespace string) error {
	backend, err := s.data.Get(namespace)
	if err != nil {
		return err
	}
	um, err := users.NewManager(ctx, backend)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[namespace] = um
	s.acls[namespace] = acl.NewManager(backend)
	s.mu.Unlock()
	log.Printf("syncstore: namespace %q bound", namespace)
	return nil
}

// Close releases every namespace's Backend.
func (s *Store) Close() error {
	log.Printf("syncstore: closing store (%d namespace(s))", len(s.data.Namespaces()))
	return s.data.Close()
}

// RegisterSchema registers collection's schema within namespace,
// opening a fresh UserManager/AclManager binding for the namespace if
// this is its first use.
func (s *Store) RegisterSchema(ctx context.Context, namespace, collection string, schemaJSON []byte) (*schema.Compiled, error) {
	backend, err := s.data.Get(namespace)
	if err != nil {
		return nil, err
	}
	if !s.isBound(namespace) {
		if err := s.bindNamespace(ctx, namespace); err != nil {
			return nil, err
		}
	}
	return backend.EnsureCollection(ctx, collection, schemaJSON)
}

func (s *Store) isBound(namespace string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[namespace]
	return ok
}

func (s *Store) resolve(namespace string) (store.Backend, *users.Manager, *acl.Manager, error) {
	backend, err := s.data.Get(namespace)
	if err != nil {
		return nil, nil, nil, err
	}
	s.mu.RLock()
	um, am := s.users[namespace], s.acls[namespace]
	s.mu.RUnlock()
	if um == nil || am == nil {
		return nil, nil, nil, synerr.New("syncstore.resolve", synerr.UnknownNamespace, namespace)
	}
	return backend, um, am, nil
}

// Insert stamps doc's Meta (id, owner, timestamps, parent_id), gates
// creation on write permission to the parent when doc declares one,
// and delegates to the namespace's Backend.
func (s *Store) Insert(ctx context.Context, subject, namespace, collection string, doc []byte) (store.Meta, error) {
	const op = "syncstore.Insert"

	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return store.Meta{}, err
	}
	if subject != SystemSubject {
		if err := um.MustExist(ctx, subject); err != nil {
			return store.Meta{}, err
		}
	}

	compiled, ok := backend.Schema(collection)
	if !ok {
		return store.Meta{}, synerr.New(op, synerr.UnknownCollection, collection)
	}

	meta := store.Meta{ID: s.idGen.NewID(), Owner: subject}
	if subject == SystemSubject {
		meta.Owner = ""
	}
	if v := gjson.GetBytes(doc, "id"); v.Exists() && v.String() != "" {
		meta.ID = v.String()
	} else {
		// caller left the id out; write the generated one back into the
		// document so a later Get returns a self-describing body.
		withID, err := sjson.SetBytes(doc, "id", meta.ID)
		if err != nil {
			return store.Meta{}, synerr.Wrap(op, synerr.Internal, err)
		}
		doc = withID
	}

	if compiled.ParentProp != "" {
		if v := gjson.GetBytes(doc, compiled.ParentProp); v.Exists() && v.String() != "" {
			allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, compiled.ParentCollection, v.String(), store.PermWrite, 0)
			if err != nil {
				return store.Meta{}, err
			}
			if !allowed {
				return store.Meta{}, synerr.New(op, synerr.PermissionDenied, "write permission required on parent "+compiled.ParentCollection+":"+v.String())
			}
		}
	}
	// else: top-level (parentless) record creation is allowed to any
	// authenticated subject.

	return backend.Insert(ctx, collection, meta, doc)
}

// Update requires write permission on the existing record. The
// facade's signature carries no owner or parent_id parameter, so
// neither can be changed through it; a record's parent may still move
// via its x-parent-id property in doc, subject to the Backend's
// retain/detach/reject rules.
func (s *Store) Update(ctx context.Context, subject, namespace, collection, id string, doc []byte) (store.Meta, error) {
	const op = "syncstore.Update"
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return store.Meta{}, err
	}
	allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, id, store.PermWrite, 0)
	if err != nil {
		return store.Meta{}, err
	}
	if !allowed {
		return store.Meta{}, synerr.New(op, synerr.PermissionDenied, id)
	}
	return backend.Update(ctx, collection, id, store.Meta{}, doc)
}

// Delete requires delete permission on the record.
func (s *Store) Delete(ctx context.Context, subject, namespace, collection, id string) error {
	const op = "syncstore.Delete"
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return err
	}
	allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, id, store.PermDelete, 0)
	if err != nil {
		return err
	}
	if !allowed {
		return synerr.New(op, synerr.PermissionDenied, id)
	}
	return backend.Delete(ctx, collection, id)
}

// Get requires read permission on the record.
func (s *Store) Get(ctx context.Context, subject, namespace, collection, id string) (store.Meta, []byte, error) {
	const op = "syncstore.Get"
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return store.Meta{}, nil, err
	}
	allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, id, store.PermRead, 0)
	if err != nil {
		return store.Meta{}, nil, err
	}
	if !allowed {
		return store.Meta{}, nil, synerr.New(op, synerr.PermissionDenied, id)
	}
	return backend.Get(ctx, collection, id)
}

// List filters a page of Backend results down to the records subject
// may read. Filtering happens after the underlying page is fetched, so
// the returned cursor remains valid against the full sequence even
// though the filtered slice may be shorter than the page size.
func (s *Store) List(ctx context.Context, subject, namespace, collection string, q store.ListQuery) ([]store.Record, string, error) {
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return nil, "", err
	}
	page, cursor, err := backend.List(ctx, collection, q)
	if err != nil {
		return nil, "", err
	}
	filtered := make([]store.Record, 0, len(page))
	for _, rec := range page {
		allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, rec.ID, store.PermRead, 0)
		if err != nil && synerr.KindOf(err) != synerr.NotFound {
			return nil, "", err
		}
		if allowed {
			filtered = append(filtered, rec)
		}
	}
	return filtered, cursor, nil
}

// CheckPermission exposes the permission gate directly for callers
// that need a yes/no answer without performing the underlying
// operation.
func (s *Store) CheckPermission(ctx context.Context, subject, namespace, collection, recordID string, action store.Perm) (bool, error) {
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return false, err
	}
	return s.checkPermissionDepth(ctx, backend, am, um, subject, collection, recordID, action, 0)
}

// checkPermissionDepth implements the exact order spec.md §4.6
// prescribes: admin bypass, then owner match, then explicit grant,
// then recursive ancestor grant via parent_id, bounded by
// policyMaxDepth, else deny. A missing intermediate parent record
// short-circuits to deny rather than erroring, matching the "NotFound
// on intermediate parent walk steps" recovery rule of spec.md §7.
func (s *Store) checkPermissionDepth(ctx context.Context, backend store.Backend, am *acl.Manager, um *users.Manager, subject, collection, recordID string, action store.Perm, depth int) (bool, error) {
	const op = "syncstore.CheckPermission"

	if depth > s.policyMaxDepth {
		return false, synerr.New(op, synerr.PolicyDepthExceeded, collection+":"+recordID)
	}

	role, err := um.GetRole(ctx, subject)
	if err != nil && synerr.KindOf(err) != synerr.NotFound {
		return false, err
	}
	if role == users.RoleAdmin {
		return true, nil
	}

	meta, _, err := backend.Get(ctx, collection, recordID)
	if err != nil {
		if synerr.KindOf(err) == synerr.NotFound {
			if action == store.PermRead && depth == 0 {
				return false, err
			}
			return false, nil
		}
		return false, err
	}

	if meta.Owner != "" && meta.Owner == subject {
		return true, nil
	}

	granted, err := am.Check(ctx, subject, collection, recordID, action)
	if err != nil {
		return false, err
	}
	if granted {
		return true, nil
	}

	if meta.ParentID == "" {
		return false, nil
	}
	compiled, ok := backend.Schema(collection)
	if !ok || compiled.ParentCollection == "" {
		return false, nil
	}
	return s.checkPermissionDepth(ctx, backend, am, um, subject, compiled.ParentCollection, meta.ParentID, action, depth+1)
}

// Grant records that grantee holds perms on (collection, recordID).
// subject must already hold write on the record (as admin, owner,
// explicit grantee, or through a parent); AclManager itself performs
// no permission check of its own.
func (s *Store) Grant(ctx context.Context, subject, namespace, collection, recordID, grantee string, perms store.Perm) error {
	const op = "syncstore.Grant"
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return err
	}
	allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, recordID, store.PermWrite, 0)
	if err != nil {
		return err
	}
	if !allowed {
		return synerr.New(op, synerr.PermissionDenied, recordID)
	}
	return am.Grant(ctx, collection, recordID, grantee, perms)
}

// Revoke removes grantee's grant on (collection, recordID). subject
// must hold write on the record, as for Grant.
func (s *Store) Revoke(ctx context.Context, subject, namespace, collection, recordID, grantee string) error {
	const op = "syncstore.Revoke"
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return err
	}
	allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, recordID, store.PermWrite, 0)
	if err != nil {
		return err
	}
	if !allowed {
		return synerr.New(op, synerr.PermissionDenied, recordID)
	}
	return am.Revoke(ctx, collection, recordID, grantee)
}

// Summary returns the per-collection version digest for every
// collection subject can read at least one record in.
func (s *Store) Summary(ctx context.Context, subject, namespace string) (map[string]store.CollectionSummary, error) {
	backend, um, am, err := s.resolve(namespace)
	if err != nil {
		return nil, err
	}
	all, err := backend.Summary(ctx)
	if err != nil {
		return nil, err
	}

	role, err := um.GetRole(ctx, subject)
	if err != nil && synerr.KindOf(err) != synerr.NotFound {
		return nil, err
	}
	if role == users.RoleAdmin {
		return all, nil
	}

	result := make(map[string]store.CollectionSummary)
	for collection, digest := range all {
		readable, err := s.subjectCanReadAny(ctx, backend, am, um, subject, collection)
		if err != nil {
			return nil, err
		}
		if readable {
			result[collection] = digest
		}
	}
	return result, nil
}

// subjectCanReadAny pages through collection's full record set, cursor
// by cursor, until it finds one record subject can read or the
// collection is exhausted. A collection's readability must not depend
// on where in the sequence the subject's one readable record happens
// to fall, so this does not cap itself to a single page the way
// backend.List's default page size otherwise would.
func (s *Store) subjectCanReadAny(ctx context.Context, backend store.Backend, am *acl.Manager, um *users.Manager, subject, collection string) (bool, error) {
	cursor := ""
	for {
		page, next, err := backend.List(ctx, collection, store.ListQuery{Limit: 256, Cursor: cursor})
		if err != nil {
			return false, err
		}
		for _, rec := range page {
			allowed, err := s.checkPermissionDepth(ctx, backend, am, um, subject, collection, rec.ID, store.PermRead, 0)
			if err != nil && synerr.KindOf(err) != synerr.NotFound {
				return false, err
			}
			if allowed {
				return true, nil
			}
		}
		if next == "" || len(page) == 0 {
			return false, nil
		}
		cursor = next
	}
}
