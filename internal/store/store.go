// Package store defines the document store contract the seed engine imports
// into, plus the in-memory and MySQL implementations and the object store
// that holds uploaded files.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reserved document fields.
const (
	FieldID        = "id"
	FieldStableID  = "stableId"
	FieldDeletedAt = "deletedAt"
	FieldFilename  = "filename"
	FieldMimeType  = "mimeType"
	FieldFilesize  = "filesize"
)

// ErrNotFound is returned when a document lookup by id matches nothing.
var ErrNotFound = errors.New("document not found")

// ObjectMissingError reports that an object referenced by a document is not
// present in the backing object store. Stores surface it when replacing an
// attached file whose previous object has disappeared.
type ObjectMissingError struct {
	Bucket string
	Key    string
}

func (e *ObjectMissingError) Error() string {
	return fmt.Sprintf("no such key: %s/%s", e.Bucket, e.Key)
}

// Document is a JSON-compatible document. The native id lives under "id".
type Document map[string]any

// ID returns the native identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// StableID returns the portable identifier, or "" when unset.
func (d Document) StableID() string {
	sid, _ := d[FieldStableID].(string)
	return sid
}

// IsTrashed reports whether the document carries a delete marker.
func (d Document) IsTrashed() bool {
	v, ok := d[FieldDeletedAt]
	return ok && v != nil && v != ""
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Query selects documents of one collection. Where holds top-level field
// equality conditions.
type Query struct {
	Where          map[string]any
	Limit          int
	Trash          bool // include soft-deleted documents
	OverrideAccess bool
}

// File is an upload attached to a create or update.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// WriteOptions is the execution context of a write.
type WriteOptions struct {
	OverrideAccess bool
	DisableHooks   bool
	File           *File
}

// SeedWrite is the execution context the seed engine uses for every write:
// access control is bypassed and side-effect hooks do not fire.
func SeedWrite() WriteOptions {
	return WriteOptions{OverrideAccess: true, DisableHooks: true}
}

// Store is a collection-scoped document store.
type Store interface {
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	FindByID(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data Document, opts WriteOptions) (Document, error)
	Update(ctx context.Context, collection, id string, data Document, opts WriteOptions) (Document, error)
	Delete(ctx context.Context, collection, id string, opts WriteOptions) error
}

// GlobalStore holds singleton configuration documents keyed by slug.
type GlobalStore interface {
	UpdateGlobal(ctx context.Context, slug string, data Document, opts WriteOptions) (Document, error)
	GlobalSlugs() []string
}

// Counter is implemented by stores that can count a collection without
// materialising it. Counts include trashed documents.
type Counter interface {
	Count(ctx context.Context, collection string) (int64, error)
}

// Backend is a full store: collections and globals.
type Backend interface {
	Store
	GlobalStore
}

// trashMarker is the value written into deletedAt when trashing.
func trashMarker(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}
