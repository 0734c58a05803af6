package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"github.com/EluvK/syncstore/schema"
	"github.com/EluvK/syncstore/synerr"
)

// SQLiteBackend persists one namespace's collections as one table per
// collection in a single SQLite file, plus the reserved __schemas,
// __acl, and __changes tables.
//
// Writes take mu so that validate-then-insert, parent-cycle detection,
// and unique enforcement observe a consistent snapshot within one
// transaction, mirroring the teacher's mutex-guarded SqliteStore but
// scoped to writers only — readers use the pool directly and see only
// committed state (WAL mode).
type SQLiteBackend struct {
	mu             sync.Mutex
	db             *sql.DB
	path           string
	registry       *schema.Registry
	clock          Clock
	policyMaxDepth int
}

// NewSQLiteBackend opens (or creates) the SQLite file at path,
// provisions the reserved tables, and restores the schema registry
// and collection tables from any data already on disk.
func NewSQLiteBackend(ctx context.Context, path string, opts ...Option) (*SQLiteBackend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// a second connection to ":memory:" opens a distinct, empty
		// database, so the pool must collapse to exactly one.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(o.poolSize)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		db.Close()
		return nil, err
	}

	b := &SQLiteBackend{
		db:             db,
		path:           path,
		registry:       schema.NewRegistry(),
		clock:          o.clock,
		policyMaxDepth: o.policyMaxDepth,
	}

	if err := b.initReservedTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := b.loadSchemas(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("syncstore: opened sqlite backend at %s", path)
	return b, nil
}

func (b *SQLiteBackend) initReservedTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS __schemas (name TEXT PRIMARY KEY, schema TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS __acl (
			collection TEXT NOT NULL,
			record_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			perms INTEGER NOT NULL,
			PRIMARY KEY (collection, record_id, subject)
		)`,
		`CREATE TABLE IF NOT EXISTS __changes (
			collection TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			last_updated_at INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBackend) loadSchemas(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, "SELECT name, schema FROM __schemas ORDER BY rowid")
	if err != nil {
		return err
	}
	defer rows.Close()

	type stored struct{ name, raw string }
	var all []stored
	for rows.Next() {
		var s stored
		if err := rows.Scan(&s.name, &s.raw); err != nil {
			return err
		}
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range all {
		compiled, err := b.registry.Register(s.name, []byte(s.raw))
		if err != nil {
			return err
		}
		if err := b.createTableAndIndexes(ctx, s.name, compiled); err != nil {
			return err
		}
	}
	return nil
}

// EnsureCollection implements Backend.
func (b *SQLiteBackend) EnsureCollection(ctx context.Context, collection string, schemaJSON []byte) (*schema.Compiled, error) {
	const op = "store.EnsureCollection"

	compiled, err := b.registry.Register(collection, schemaJSON)
	if err != nil {
		return nil, err
	}

	if err := b.withRetry(ctx, op, func() error {
		return b.createTableAndIndexes(ctx, collection, compiled)
	}); err != nil {
		return nil, err
	}

	if err := b.withRetry(ctx, op, func() error {
		_, err := b.db.ExecContext(ctx,
			`INSERT INTO __schemas(name, schema) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			collection, string(schemaJSON))
		return err
	}); err != nil {
		return nil, err
	}

	return compiled, nil
}

func (b *SQLiteBackend) createTableAndIndexes(ctx context.Context, collection string, compiled *schema.Compiled) error {
	tbl := tableName(collection)
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		owner TEXT,
		parent_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		doc TEXT NOT NULL
	)`, tbl)); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_parent_idx ON %s(parent_id)`, tbl, tbl)); err != nil {
		return err
	}
	for _, prop := range compiled.Unique {
		idx := fmt.Sprintf("%s_uniq_%s", tbl, sanitize(prop))
		stmt := fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(json_extract(doc, '$.%s')) WHERE json_extract(doc, '$.%s') IS NOT NULL`,
			idx, tbl, prop, prop)
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Schema implements Backend.
func (b *SQLiteBackend) Schema(collection string) (*schema.Compiled, bool) {
	return b.registry.Get(collection)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Insert implements Backend.
func (b *SQLiteBackend) Insert(ctx context.Context, collection string, meta Meta, doc []byte) (Meta, error) {
	const op = "store.Insert"

	compiled, ok := b.registry.Get(collection)
	if !ok {
		return Meta{}, synerr.New(op, synerr.UnknownCollection, collection)
	}
	if err := compiled.Validate(op, doc); err != nil {
		return Meta{}, err
	}

	var result Meta
	err := b.withRetry(ctx, op, func() error {
		return b.withTx(ctx, func(tx *sql.Tx) error {
			if err := b.checkCrossRefsTx(ctx, tx, op, compiled, doc); err != nil {
				return err
			}

			parentID := ""
			if compiled.ParentProp != "" {
				if v := gjson.GetBytes(doc, compiled.ParentProp); v.Exists() && v.String() != "" {
					parentID = v.String()
					exists, err := b.existsTx(ctx, tx, compiled.ParentCollection, parentID)
					if err != nil {
						return err
					}
					if !exists {
						return synerr.New(op, synerr.DanglingReference,
							fmt.Sprintf("%s: parent %s:%s does not exist", compiled.ParentProp, compiled.ParentCollection, parentID))
					}
					if err := b.checkNoCycleTx(ctx, tx, compiled.ParentCollection, parentID, meta.ID); err != nil {
						return err
					}
				}
			}

			now := b.clock.NowMillis()
			meta.ParentID = parentID
			meta.CreatedAt = now
			meta.UpdatedAt = now

			tbl := tableName(collection)
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (id, owner, parent_id, created_at, updated_at, doc) VALUES (?,?,?,?,?,?)`, tbl),
				meta.ID, nullable(meta.Owner), nullable(meta.ParentID), meta.CreatedAt, meta.UpdatedAt, string(doc))
			if err != nil {
				if isUniqueViolation(err) {
					return synerr.New(op, synerr.UniqueViolation, err.Error())
				}
				return err
			}

			if err := b.bumpChangeCounterTx(ctx, tx, collection, now); err != nil {
				return err
			}
			result = meta
			return nil
		})
	})
	if err != nil {
		return Meta{}, err
	}
	return result, nil
}

// Update implements Backend.
func (b *SQLiteBackend) Update(ctx context.Context, collection, id string, meta Meta, doc []byte) (Meta, error) {
	const op = "store.Update"

	compiled, ok := b.registry.Get(collection)
	if !ok {
		return Meta{}, synerr.New(op, synerr.UnknownCollection, collection)
	}
	if err := compiled.Validate(op, doc); err != nil {
		return Meta{}, err
	}

	var result Meta
	err := b.withRetry(ctx, op, func() error {
		return b.withTx(ctx, func(tx *sql.Tx) error {
			prev, err := b.getMetaTx(ctx, tx, collection, id)
			if err != nil {
				return err
			}

			if err := b.checkCrossRefsTx(ctx, tx, op, compiled, doc); err != nil {
				return err
			}

			parentID := prev.ParentID
			if compiled.ParentProp != "" {
				if v := gjson.GetBytes(doc, compiled.ParentProp); v.Exists() {
					newParent := v.String()
					switch {
					case newParent == "":
						parentID = "" // explicit null: detach
					case prev.ParentID == "":
						parentID = newParent // first attachment
					case newParent == prev.ParentID:
						// unchanged
					default:
						return synerr.New(op, synerr.ImmutableField,
							fmt.Sprintf("%s: cannot reassign parent_id from %q to %q", compiled.ParentProp, prev.ParentID, newParent))
					}
				}
				// absent from doc: retain prev.ParentID (already the default)

				if parentID != "" {
					exists, err := b.existsTx(ctx, tx, compiled.ParentCollection, parentID)
					if err != nil {
						return err
					}
					if !exists {
						return synerr.New(op, synerr.DanglingReference,
							fmt.Sprintf("%s: parent %s:%s does not exist", compiled.ParentProp, compiled.ParentCollection, parentID))
					}
					if parentID != prev.ParentID {
						if err := b.checkNoCycleTx(ctx, tx, compiled.ParentCollection, parentID, id); err != nil {
							return err
						}
					}
				}
			}

			updatedAt := b.clock.NowMillis()
			if updatedAt <= prev.UpdatedAt {
				updatedAt = prev.UpdatedAt + 1
			}

			tbl := tableName(collection)
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET parent_id=?, updated_at=?, doc=? WHERE id=?`, tbl),
				nullable(parentID), updatedAt, string(doc), id)
			if err != nil {
				if isUniqueViolation(err) {
					return synerr.New(op, synerr.UniqueViolation, err.Error())
				}
				return err
			}

			if err := b.bumpChangeCounterTx(ctx, tx, collection, updatedAt); err != nil {
				return err
			}

			result = Meta{ID: id, Owner: prev.Owner, ParentID: parentID, CreatedAt: prev.CreatedAt, UpdatedAt: updatedAt}
			return nil
		})
	})
	if err != nil {
		return Meta{}, err
	}
	return result, nil
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, collection, id string) error {
	const op = "store.Delete"
	if _, ok := b.registry.Get(collection); !ok {
		return synerr.New(op, synerr.UnknownCollection, collection)
	}

	return b.withRetry(ctx, op, func() error {
		return b.withTx(ctx, func(tx *sql.Tx) error {
			tbl := tableName(collection)
			res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id=?", tbl), id)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				return synerr.New(op, synerr.NotFound, id)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM __acl WHERE collection=? AND record_id=?", collection, id); err != nil {
				return err
			}
			return b.bumpChangeCounterTx(ctx, tx, collection, b.clock.NowMillis())
		})
	})
}

// Get implements Backend.
func (b *SQLiteBackend) Get(ctx context.Context, collection, id string) (Meta, []byte, error) {
	const op = "store.Get"
	if _, ok := b.registry.Get(collection); !ok {
		return Meta{}, nil, synerr.New(op, synerr.UnknownCollection, collection)
	}

	var meta Meta
	var doc string
	err := b.withRetry(ctx, op, func() error {
		tbl := tableName(collection)
		var owner, parentID sql.NullString
		row := b.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT owner, parent_id, created_at, updated_at, doc FROM %s WHERE id=?", tbl), id)
		if err := row.Scan(&owner, &parentID, &meta.CreatedAt, &meta.UpdatedAt, &doc); err != nil {
			if err == sql.ErrNoRows {
				return synerr.New(op, synerr.NotFound, id)
			}
			return err
		}
		meta.ID, meta.Owner, meta.ParentID = id, owner.String, parentID.String
		return nil
	})
	if err != nil {
		return Meta{}, nil, err
	}
	return meta, []byte(doc), nil
}

// Exists implements Backend.
func (b *SQLiteBackend) Exists(ctx context.Context, collection, id string) (bool, error) {
	const op = "store.Exists"
	if _, ok := b.registry.Get(collection); !ok {
		return false, synerr.New(op, synerr.UnknownCollection, collection)
	}
	var found bool
	err := b.withRetry(ctx, op, func() error {
		tbl := tableName(collection)
		var one int
		row := b.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id=?", tbl), id)
		switch err := row.Scan(&one); err {
		case nil:
			found = true
			return nil
		case sql.ErrNoRows:
			found = false
			return nil
		default:
			return err
		}
	})
	return found, err
}

// ChildrenOf implements Backend.
func (b *SQLiteBackend) ChildrenOf(ctx context.Context, collection, parentID string) ([]string, error) {
	const op = "store.ChildrenOf"
	if _, ok := b.registry.Get(collection); !ok {
		return nil, synerr.New(op, synerr.UnknownCollection, collection)
	}
	var ids []string
	err := b.withRetry(ctx, op, func() error {
		ids = nil
		tbl := tableName(collection)
		rows, err := b.db.QueryContext(ctx, fmt.Sprintf("SELECT id FROM %s WHERE parent_id=?", tbl), parentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// List implements Backend.
func (b *SQLiteBackend) List(ctx context.Context, collection string, q ListQuery) ([]Record, string, error) {
	const op = "store.List"
	if _, ok := b.registry.Get(collection); !ok {
		return nil, "", synerr.New(op, synerr.UnknownCollection, collection)
	}

	var conds []string
	var args []any

	if q.FilterByParent {
		if q.ParentID == "" {
			conds = append(conds, "parent_id IS NULL")
		} else {
			conds = append(conds, "parent_id = ?")
			args = append(args, q.ParentID)
		}
	}
	for prop, val := range q.Filter {
		conds = append(conds, fmt.Sprintf("json_extract(doc, '$.%s') = ?", prop))
		args = append(args, val)
	}
	if q.Cursor != "" {
		cu, cid, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", err
		}
		conds = append(conds, "(updated_at > ? OR (updated_at = ? AND id > ?))")
		args = append(args, cu, cu, cid)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	tbl := tableName(collection)
	query := fmt.Sprintf(
		"SELECT id, owner, parent_id, created_at, updated_at, doc FROM %s %s ORDER BY updated_at ASC, id ASC LIMIT ?",
		tbl, where)
	// fetch one extra row so an exactly-full last page is recognized as
	// exhausted
	args = append(args, limit+1)

	var records []Record
	err := b.withRetry(ctx, op, func() error {
		records = nil
		rows, err := b.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var rec Record
			var owner, parentID sql.NullString
			var doc string
			if err := rows.Scan(&rec.ID, &owner, &parentID, &rec.CreatedAt, &rec.UpdatedAt, &doc); err != nil {
				return err
			}
			rec.Owner, rec.ParentID, rec.Doc = owner.String, parentID.String, []byte(doc)
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[limit-1]
		next = encodeCursor(last.UpdatedAt, last.ID)
	}
	return records, next, nil
}

// Summary implements Backend.
func (b *SQLiteBackend) Summary(ctx context.Context) (map[string]CollectionSummary, error) {
	const op = "store.Summary"
	result := make(map[string]CollectionSummary)
	err := b.withRetry(ctx, op, func() error {
		rows, err := b.db.QueryContext(ctx, "SELECT collection, version, last_updated_at FROM __changes")
		if err != nil {
			return err
		}
		defer rows.Close()
		result = make(map[string]CollectionSummary)
		for rows.Next() {
			var name string
			var s CollectionSummary
			if err := rows.Scan(&name, &s.Version, &s.LastUpdatedAt); err != nil {
				return err
			}
			result[name] = s
		}
		return rows.Err()
	})
	return result, err
}

// Grant implements Backend.
func (b *SQLiteBackend) Grant(ctx context.Context, collection, recordID, subject string, perms Perm) error {
	const op = "store.Grant"
	return b.withRetry(ctx, op, func() error {
		_, err := b.db.ExecContext(ctx,
			`INSERT INTO __acl(collection, record_id, subject, perms) VALUES (?,?,?,?)
			 ON CONFLICT(collection, record_id, subject) DO UPDATE SET perms = excluded.perms`,
			collection, recordID, subject, int(perms))
		return err
	})
}

// Revoke implements Backend.
func (b *SQLiteBackend) Revoke(ctx context.Context, collection, recordID, subject string) error {
	const op = "store.Revoke"
	return b.withRetry(ctx, op, func() error {
		_, err := b.db.ExecContext(ctx,
			"DELETE FROM __acl WHERE collection=? AND record_id=? AND subject=?", collection, recordID, subject)
		return err
	})
}

// CheckGrant implements Backend.
func (b *SQLiteBackend) CheckGrant(ctx context.Context, collection, recordID, subject string, action Perm) (bool, error) {
	const op = "store.CheckGrant"
	var perms int
	err := b.withRetry(ctx, op, func() error {
		row := b.db.QueryRowContext(ctx,
			"SELECT perms FROM __acl WHERE collection=? AND record_id=? AND subject=?", collection, recordID, subject)
		switch err := row.Scan(&perms); err {
		case nil:
			return nil
		case sql.ErrNoRows:
			perms = 0
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return Perm(perms).Has(action), nil
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	log.Printf("syncstore: closing sqlite backend at %s", b.path)
	return b.db.Close()
}

// ---------- transaction-scoped helpers ----------

func (b *SQLiteBackend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (b *SQLiteBackend) checkCrossRefsTx(ctx context.Context, tx *sql.Tx, op string, compiled *schema.Compiled, doc []byte) error {
	for prop, target := range compiled.CrossRefs {
		v := gjson.GetBytes(doc, prop)
		if !v.Exists() || v.String() == "" {
			continue
		}
		exists, err := b.existsTx(ctx, tx, target, v.String())
		if err != nil {
			return err
		}
		if !exists {
			return synerr.New(op, synerr.DanglingReference,
				fmt.Sprintf("%s: %s:%s does not exist", prop, target, v.String()))
		}
	}
	return nil
}

func (b *SQLiteBackend) existsTx(ctx context.Context, tx *sql.Tx, collection, id string) (bool, error) {
	tbl := tableName(collection)
	var one int
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id=?", tbl), id)
	switch err := row.Scan(&one); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, err
	}
}

func (b *SQLiteBackend) getMetaTx(ctx context.Context, tx *sql.Tx, collection, id string) (Meta, error) {
	tbl := tableName(collection)
	var meta Meta
	var owner, parentID sql.NullString
	row := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT owner, parent_id, created_at, updated_at FROM %s WHERE id=?", tbl), id)
	if err := row.Scan(&owner, &parentID, &meta.CreatedAt, &meta.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Meta{}, synerr.New("store.getMeta", synerr.NotFound, id)
		}
		return Meta{}, err
	}
	meta.ID, meta.Owner, meta.ParentID = id, owner.String, parentID.String
	return meta, nil
}

// checkNoCycleTx walks the ancestor chain starting at
// (startCollection, startID) and rejects the walk if newID appears in
// it — that would mean assigning newID's parent pointer forms a cycle.
func (b *SQLiteBackend) checkNoCycleTx(ctx context.Context, tx *sql.Tx, startCollection, startID, newID string) error {
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
		m, err := b.getMetaTx(ctx, tx, collection, id)
		if err != nil {
			if synerr.KindOf(err) == synerr.NotFound {
				return nil
			}
			return err
		}
		collection, id = compiled.ParentCollection, m.ParentID
	}
	return nil
}

func (b *SQLiteBackend) bumpChangeCounterTx(ctx context.Context, tx *sql.Tx, collection string, at int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO __changes(collection, version, last_updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(collection) DO UPDATE SET version = version + 1, last_updated_at = excluded.last_updated_at`,
		collection, at)
	return err
}

// ---------- retry / error classification ----------

func (b *SQLiteBackend) withRetry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := fn(); err != nil {
			if isTransient(err) {
				log.Printf("syncstore: %s retrying after transient error (attempt %d): %v", op, attempt, err)
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, bo)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return synerr.Wrap(op, synerr.StorageUnavailable, err)
}

func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked || sqliteErr.Code == sqlite3.ErrIoErr
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
