package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/EluvK/syncstore/schema"
	"github.com/EluvK/syncstore/synerr"
)

// MemoryBackend is a pure in-process Backend: no file, no SQL. It
// backs the ":memory:" namespace sentinel and hermetic tests, and
// implements the same validation, cross-reference, parent-cycle, and
// unique-index invariants as SQLiteBackend over plain maps guarded by
// one RWMutex.
type MemoryBackend struct {
	mu             sync.RWMutex
	registry       *schema.Registry
	clock          Clock
	policyMaxDepth int

	records map[string]map[string]*memRecord // collection -> id -> record
	unique  map[string]map[string]map[string]string // collection -> prop -> value -> id
	acl     map[string]Perm                          // "collection/id/subject" -> perms
	changes map[string]CollectionSummary
}

type memRecord struct {
	meta Meta
	doc  []byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend(opts ...Option) *MemoryBackend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryBackend{
		registry:       schema.NewRegistry(),
		clock:          o.clock,
		policyMaxDepth: o.policyMaxDepth,
		records:        make(map[string]map[string]*memRecord),
		unique:         make(map[string]map[string]map[string]string),
		acl:            make(map[string]Perm),
		changes:        make(map[string]CollectionSummary),
	}
}

// EnsureCollection implements Backend.
func (b *MemoryBackend) EnsureCollection(ctx context.Context, collection string, schemaJSON []byte) (*schema.Compiled, error) {
	compiled, err := b.registry.Register(collection, schemaJSON)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[collection]; !ok {
		b.records[collection] = make(map[string]*memRecord)
	}
	if _, ok := b.unique[collection]; !ok {
		idx := make(map[string]map[string]string)
		for _, prop := range compiled.Unique {
			idx[prop] = make(map[string]string)
		}
		b.unique[collection] = idx
	}
	return compiled, nil
}

// Schema implements Backend.
func (b *MemoryBackend) Schema(collection string) (*schema.Compiled, bool) {
	return b.registry.Get(collection)
}

// Insert implements Backend.
func (b *MemoryBackend) Insert(ctx context.Context, collection string, meta Meta, doc []byte) (Meta, error) {
	const op = "store.Insert"

	compiled, ok := b.registry.Get(collection)
	if !ok {
		return Meta{}, synerr.New(op, synerr.UnknownCollection, collection)
	}
	if err := compiled.Validate(op, doc); err != nil {
		return Meta{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkCrossRefsLocked(op, compiled, doc); err != nil {
		return Meta{}, err
	}

	parentID := ""
	if compiled.ParentProp != "" {
		if v := gjson.GetBytes(doc, compiled.ParentProp); v.Exists() && v.String() != "" {
			parentID = v.String()
			if !b.existsLocked(compiled.ParentCollection, parentID) {
				return Meta{}, synerr.New(op, synerr.DanglingReference,
					fmt.Sprintf("%s: parent %s:%s does not exist", compiled.ParentProp, compiled.ParentCollection, parentID))
			}
			if err := b.checkNoCycleLocked(compiled.ParentCollection, parentID, meta.ID); err != nil {
				return Meta{}, err
			}
		}
	}

	if err := b.reserveUniqueLocked(op, collection, compiled, meta.ID, doc); err != nil {
		return Meta{}, err
	}

	now := b.clock.NowMillis()
	meta.ParentID = parentID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	b.records[collection][meta.ID] = &memRecord{meta: meta, doc: append([]byte(nil), doc...)}
	b.bumpChangeCounterLocked(collection, now)
	return meta, nil
}

// Update implements Backend.
func (b *MemoryBackend) Update(ctx context.Context, collection, id string, meta Meta, doc []byte) (Meta, error) {
	const op = "store.Update"

	compiled, ok := b.registry.Get(collection)
	if !ok {
		return Meta{}, synerr.New(op, synerr.UnknownCollection, collection)
	}
	if err := compiled.Validate(op, doc); err != nil {
		return Meta{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.records[collection][id]
	if !ok {
		return Meta{}, synerr.New(op, synerr.NotFound, id)
	}
	prev := existing.meta

	if err := b.checkCrossRefsLocked(op, compiled, doc); err != nil {
		return Meta{}, err
	}

	parentID := prev.ParentID
	if compiled.ParentProp != "" {
		if v := gjson.GetBytes(doc, compiled.ParentProp); v.Exists() {
			newParent := v.String()
			switch {
			case newParent == "":
				parentID = ""
			case prev.ParentID == "":
				parentID = newParent
			case newParent == prev.ParentID:
			default:
				return Meta{}, synerr.New(op, synerr.ImmutableField,
					fmt.Sprintf("%s: cannot reassign parent_id from %q to %q", compiled.ParentProp, prev.ParentID, newParent))
			}
		}

		if parentID != "" {
			if !b.existsLocked(compiled.ParentCollection, parentID) {
				return Meta{}, synerr.New(op, synerr.DanglingReference,
					fmt.Sprintf("%s: parent %s:%s does not exist", compiled.ParentProp, compiled.ParentCollection, parentID))
			}
			if parentID != prev.ParentID {
				if err := b.checkNoCycleLocked(compiled.ParentCollection, parentID, id); err != nil {
					return Meta{}, err
				}
			}
		}
	}

	if err := b.releaseUniqueLocked(collection, compiled, id); err != nil {
		return Meta{}, err
	}
	if err := b.reserveUniqueLocked(op, collection, compiled, id, doc); err != nil {
		// restore the released slots to avoid losing the existing unique reservation
		b.reserveUniqueLocked(op, collection, compiled, id, existing.doc)
		return Meta{}, err
	}

	updatedAt := b.clock.NowMillis()
	if updatedAt <= prev.UpdatedAt {
		updatedAt = prev.UpdatedAt + 1
	}

	result := Meta{ID: id, Owner: prev.Owner, ParentID: parentID, CreatedAt: prev.CreatedAt, UpdatedAt: updatedAt}
	b.records[collection][id] = &memRecord{meta: result, doc: append([]byte(nil), doc...)}
	b.bumpChangeCounterLocked(collection, updatedAt)
	return result, nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(ctx context.Context, collection, id string) error {
	const op = "store.Delete"
	if _, ok := b.registry.Get(collection); !ok {
		return synerr.New(op, synerr.UnknownCollection, collection)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[collection][id]
	if !ok {
		return synerr.New(op, synerr.NotFound, id)
	}
	compiled, _ := b.registry.Get(collection)
	b.releaseUniqueLocked(collection, compiled, id)
	delete(b.records[collection], id)
	_ = rec

	for key := range b.acl {
		if hasPrefix(key, collection+"/"+id+"/") {
			delete(b.acl, key)
		}
	}

	b.bumpChangeCounterLocked(collection, b.clock.NowMillis())
	return nil
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, collection, id string) (Meta, []byte, error) {
	const op = "store.Get"
	if _, ok := b.registry.Get(collection); !ok {
		return Meta{}, nil, synerr.New(op, synerr.UnknownCollection, collection)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[collection][id]
	if !ok {
		return Meta{}, nil, synerr.New(op, synerr.NotFound, id)
	}
	return rec.meta, append([]byte(nil), rec.doc...), nil
}

// Exists implements Backend.
func (b *MemoryBackend) Exists(ctx context.Context, collection, id string) (bool, error) {
	const op = "store.Exists"
	if _, ok := b.registry.Get(collection); !ok {
		return false, synerr.New(op, synerr.UnknownCollection, collection)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.existsLocked(collection, id), nil
}

// ChildrenOf implements Backend.
func (b *MemoryBackend) ChildrenOf(ctx context.Context, collection, parentID string) ([]string, error) {
	const op = "store.ChildrenOf"
	if _, ok := b.registry.Get(collection); !ok {
		return nil, synerr.New(op, synerr.UnknownCollection, collection)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []string
	for id, rec := range b.records[collection] {
		if rec.meta.ParentID == parentID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// List implements Backend.
func (b *MemoryBackend) List(ctx context.Context, collection string, q ListQuery) ([]Record, string, error) {
	const op = "store.List"
	if _, ok := b.registry.Get(collection); !ok {
		return nil, "", synerr.New(op, synerr.UnknownCollection, collection)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var all []Record
	for _, rec := range b.records[collection] {
		if q.FilterByParent && rec.meta.ParentID != q.ParentID {
			continue
		}
		if len(q.Filter) > 0 {
			parsed := gjson.ParseBytes(rec.doc)
			match := true
			for prop, want := range q.Filter {
				got := parsed.Get(prop)
				if !got.Exists() || fmt.Sprintf("%v", got.Value()) != fmt.Sprintf("%v", want) {
					match = false
					break
				}
			}
			if !match {
				continue
			}
		}
		all = append(all, Record{Meta: rec.meta, Doc: append([]byte(nil), rec.doc...)})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt != all[j].UpdatedAt {
			return all[i].UpdatedAt < all[j].UpdatedAt
		}
		return all[i].ID < all[j].ID
	})

	if q.Cursor != "" {
		cu, cid, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", err
		}
		idx := 0
		for idx < len(all) && (all[idx].UpdatedAt < cu || (all[idx].UpdatedAt == cu && all[idx].ID <= cid)) {
			idx++
		}
		all = all[idx:]
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	next := ""
	if len(all) > limit {
		next = encodeCursor(all[limit-1].UpdatedAt, all[limit-1].ID)
		all = all[:limit]
	}
	return all, next, nil
}

// Summary implements Backend.
func (b *MemoryBackend) Summary(ctx context.Context) (map[string]CollectionSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]CollectionSummary, len(b.changes))
	for k, v := range b.changes {
		out[k] = v
	}
	return out, nil
}

// Grant implements Backend.
func (b *MemoryBackend) Grant(ctx context.Context, collection, recordID, subject string, perms Perm) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acl[aclKey(collection, recordID, subject)] = perms
	return nil
}

// Revoke implements Backend.
func (b *MemoryBackend) Revoke(ctx context.Context, collection, recordID, subject string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.acl, aclKey(collection, recordID, subject))
	return nil
}

// CheckGrant implements Backend.
func (b *MemoryBackend) CheckGrant(ctx context.Context, collection, recordID, subject string, action Perm) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.acl[aclKey(collection, recordID, subject)].Has(action), nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }

// ---------- locked helpers (caller must hold b.mu) ----------

func aclKey(collection, recordID, subject string) string {
	return collection + "/" + recordID + "/" + subject
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (b *MemoryBackend) existsLocked(collection, id string) bool {
	_, ok := b.records[collection][id]
	return ok
}

func (b *MemoryBackend) checkCrossRefsLocked(op string, compiled *schema.Compiled, doc []byte) error {
	for prop, target := range compiled.CrossRefs {
		v := gjson.GetBytes(doc, prop)
		if !v.Exists() || v.String() == "" {
			continue
		}
		if !b.existsLocked(target, v.String()) {
			return synerr.New(op, synerr.DanglingReference,
				fmt.Sprintf("%s: %s:%s does not exist", prop, target, v.String()))
		}
	}
	return nil
}

func (b *MemoryBackend) checkNoCycleLocked(startCollection, startID, newID string) error {
	collection, id := startCollection, startID
	for depth := 0; id != ""; depth++ {
		if id == newID {
			return synerr.New("store.checkCycle", synerr.ParentCycle,
				fmt.Sprintf("assigning parent would create a cycle at %s:%s", collection, id))
		}
		if depth >= b.policyMaxDepth {
			return synerr.New("store.checkCycle", synerr.PolicyDepthExceeded, "ancestor chain exceeds policy_max_depth")
		}
		compiled, ok := b.registry.Get(collection)
		if !ok || compiled.ParentProp == "" {
			return nil
		}
		rec, ok := b.records[collection][id]
		if !ok {
			return nil
		}
		collection, id = compiled.ParentCollection, rec.meta.ParentID
	}
	return nil
}

func (b *MemoryBackend) reserveUniqueLocked(op, collection string, compiled *schema.Compiled, id string, doc []byte) error {
	idx := b.unique[collection]
	if idx == nil {
		return nil
	}
	for _, prop := range compiled.Unique {
		v := gjson.GetBytes(doc, prop)
		if !v.Exists() || v.String() == "" {
			continue
		}
		if owner, taken := idx[prop][v.String()]; taken && owner != id {
			return synerr.New(op, synerr.UniqueViolation,
				fmt.Sprintf("%s: value %q already used by %s", prop, v.String(), owner))
		}
	}
	for _, prop := range compiled.Unique {
		v := gjson.GetBytes(doc, prop)
		if !v.Exists() || v.String() == "" {
			continue
		}
		idx[prop][v.String()] = id
	}
	return nil
}

func (b *MemoryBackend) releaseUniqueLocked(collection string, compiled *schema.Compiled, id string) error {
	idx := b.unique[collection]
	if idx == nil || compiled == nil {
		return nil
	}
	rec, ok := b.records[collection][id]
	if !ok {
		return nil
	}
	for _, prop := range compiled.Unique {
		v := gjson.GetBytes(rec.doc, prop)
		if v.Exists() && v.String() != "" {
			if idx[prop][v.String()] == id {
				delete(idx[prop], v.String())
			}
		}
	}
	return nil
}

func (b *MemoryBackend) bumpChangeCounterLocked(collection string, at int64) {
	s := b.changes[collection]
	s.Version++
	s.LastUpdatedAt = at
	b.changes[collection] = s
}
