package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/goseed/internal/sqlutil"
)

// Each collection is one table holding the document body as JSON. The
// reserved fields are mirrored into columns so they can be indexed.
const createCollectionTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
	id CHAR(36) PRIMARY KEY,
	stable_id VARCHAR(255) NULL,
	data JSON NOT NULL,
	filename VARCHAR(512) NULL,
	deleted_at DATETIME(3) NULL,
	created_at TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3),
	updated_at TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	UNIQUE KEY uk_stable_id (stable_id),
	INDEX idx_deleted (deleted_at)
) ENGINE=InnoDB;
`

const createGlobalsTableSQL = `
CREATE TABLE IF NOT EXISTS seed_globals (
	slug VARCHAR(255) PRIMARY KEY,
	data JSON NOT NULL,
	updated_at TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
) ENGINE=InnoDB;
`

// MySQLStore is a Backend on MySQL JSON columns.
//
// Access control and hooks do not exist at this layer, so the
// OverrideAccess and DisableHooks options are accepted and ignored.
type MySQLStore struct {
	db      *sql.DB
	objects ObjectStore
	slugs   []string
}

// NewMySQLStore wraps an open connection pool.
func NewMySQLStore(db *sql.DB, globalSlugs []string, objects ObjectStore) *MySQLStore {
	return &MySQLStore{
		db:      db,
		objects: objects,
		slugs:   append([]string(nil), globalSlugs...),
	}
}

// EnsureSchema creates the globals table and one table per collection.
func (s *MySQLStore) EnsureSchema(ctx context.Context, collections ...string) error {
	if _, err := s.db.ExecContext(ctx, createGlobalsTableSQL); err != nil {
		return fmt.Errorf("failed to create seed_globals table: %w", err)
	}
	for _, c := range collections {
		table, err := sqlutil.CollectionTable(c)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createCollectionTableSQL, table)); err != nil {
			return fmt.Errorf("failed to create table for %s: %w", c, err)
		}
	}
	return nil
}

// Find returns matching documents ordered by creation.
func (s *MySQLStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	if !q.Trash {
		conds = append(conds, "deleted_at IS NULL")
	}

	keys := make([]string, 0, len(q.Where))
	for k := range q.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := q.Where[k]
		switch k {
		case FieldID:
			conds = append(conds, "id = ?")
			args = append(args, v)
		case FieldStableID:
			conds = append(conds, "stable_id = ?")
			args = append(args, v)
		default:
			conds = append(conds, "JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?")
			args = append(args, sqlutil.JSONPath(k), fmt.Sprint(v))
		}
	}

	query := "SELECT id, stable_id, data, deleted_at FROM " + table
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var (
		id        string
		stableID  sql.NullString
		raw       []byte
		deletedAt sql.NullTime
	)
	if err := r.Scan(&id, &stableID, &raw, &deletedAt); err != nil {
		return nil, err
	}

	doc := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("invalid document body for %s: %w", id, err)
		}
	}
	doc[FieldID] = id
	if stableID.Valid {
		doc[FieldStableID] = stableID.String
	}
	if deletedAt.Valid {
		doc[FieldDeletedAt] = trashMarker(deletedAt.Time)
	} else {
		doc[FieldDeletedAt] = nil
	}
	return doc, nil
}

// FindByID returns the document with id, trashed or not.
func (s *MySQLStore) FindByID(ctx context.Context, collection, id string) (Document, error) {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT id, stable_id, data, deleted_at FROM "+table+" WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Create inserts data under a fresh uuid.
func (s *MySQLStore) Create(ctx context.Context, collection string, data Document, opts WriteOptions) (Document, error) {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return nil, err
	}

	doc := data.Clone()
	if doc == nil {
		doc = Document{}
	}
	if opts.File != nil {
		if err := replaceObject(ctx, s.objects, "", opts.File); err != nil {
			return nil, err
		}
		applyFile(doc, opts.File)
	}
	doc[FieldID] = uuid.NewString()

	cols, err := documentColumns(doc)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, stable_id, data, filename, deleted_at) VALUES (?, ?, ?, ?, ?)",
		doc.ID(), cols.stableID, cols.body, cols.filename, cols.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	if _, ok := doc[FieldDeletedAt]; !ok {
		doc[FieldDeletedAt] = nil
	}
	return doc, nil
}

// Update merges data into the stored document. A nil deletedAt clears the
// marker.
func (s *MySQLStore) Update(ctx context.Context, collection, id string, data Document, opts WriteOptions) (Document, error) {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return nil, err
	}

	existing, err := s.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	if opts.File != nil {
		previous, _ := existing[FieldFilename].(string)
		if err := replaceObject(ctx, s.objects, previous, opts.File); err != nil {
			return nil, err
		}
		applyFile(next, opts.File)
	}
	for k, v := range data.Clone() {
		if k == FieldID {
			continue
		}
		next[k] = v
	}

	cols, err := documentColumns(next)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE "+table+" SET stable_id = ?, data = ?, filename = ?, deleted_at = ? WHERE id = ?",
		cols.stableID, cols.body, cols.filename, cols.deletedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return next, nil
}

// Delete removes the row and then its attached object, if any. A missing
// object does not fail the delete.
func (s *MySQLStore) Delete(ctx context.Context, collection, id string, _ WriteOptions) error {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return err
	}

	var filename sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT filename FROM "+table+" WHERE id = ?", id).Scan(&filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s/%s: %w", collection, id, err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	if filename.Valid && filename.String != "" && s.objects != nil {
		var missing *ObjectMissingError
		if err := s.objects.Delete(ctx, filename.String); err != nil && !errors.As(err, &missing) {
			return fmt.Errorf("failed to delete object for %s/%s: %w", collection, id, err)
		}
	}
	return nil
}

// Count returns the number of rows in collection, trashed included.
func (s *MySQLStore) Count(ctx context.Context, collection string) (int64, error) {
	table, err := sqlutil.CollectionTable(collection)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return n, nil
}

// UpdateGlobal merges data into the global document for slug.
func (s *MySQLStore) UpdateGlobal(ctx context.Context, slug string, data Document, _ WriteOptions) (Document, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode global %s: %w", slug, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO seed_globals (slug, data) VALUES (?, ?) ON DUPLICATE KEY UPDATE data = JSON_MERGE_PATCH(data, VALUES(data))",
		slug, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update global %s: %w", slug, err)
	}

	var raw []byte
	if err := s.db.QueryRowContext(ctx, "SELECT data FROM seed_globals WHERE slug = ?", slug).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to reload global %s: %w", slug, err)
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid global body for %s: %w", slug, err)
	}
	return doc, nil
}

// GlobalSlugs returns the registered global slugs.
func (s *MySQLStore) GlobalSlugs() []string {
	return append([]string(nil), s.slugs...)
}

type columns struct {
	stableID  sql.NullString
	filename  sql.NullString
	deletedAt sql.NullTime
	body      []byte
}

// documentColumns splits a document into its mirrored columns and the JSON
// body. id, stableId and deletedAt live only in columns.
func documentColumns(doc Document) (columns, error) {
	var c columns
	if sid := doc.StableID(); sid != "" {
		c.stableID = sql.NullString{String: sid, Valid: true}
	}
	if name, ok := doc[FieldFilename].(string); ok && name != "" {
		c.filename = sql.NullString{String: name, Valid: true}
	}
	if doc.IsTrashed() {
		marker, _ := doc[FieldDeletedAt].(string)
		t, err := time.Parse(time.RFC3339Nano, marker)
		if err != nil {
			return c, fmt.Errorf("invalid %s value %v: %w", FieldDeletedAt, doc[FieldDeletedAt], err)
		}
		c.deletedAt = sql.NullTime{Time: t, Valid: true}
	}

	body := make(map[string]any, len(doc))
	for k, v := range doc {
		switch k {
		case FieldID, FieldStableID, FieldDeletedAt:
			continue
		}
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return c, fmt.Errorf("failed to encode document: %w", err)
	}
	c.body = raw
	return c, nil
}
