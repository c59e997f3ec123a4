package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Backend. It backs dry runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	globals     map[string]Document
	slugs       []string
	objects     ObjectStore
	now         func() time.Time
}

type memCollection struct {
	order []string // insertion order of ids
	docs  map[string]Document
}

// NewMemoryStore creates an empty store. objects may be nil when no
// collection carries uploads.
func NewMemoryStore(globalSlugs []string, objects ObjectStore) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		globals:     make(map[string]Document),
		slugs:       append([]string(nil), globalSlugs...),
		objects:     objects,
		now:         time.Now,
	}
}

func (m *MemoryStore) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Document)}
		m.collections[name] = c
	}
	return c
}

// Find returns documents matching q in insertion order.
func (m *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}

	var out []Document
	for _, id := range c.order {
		doc := c.docs[id]
		if !q.Trash && doc.IsTrashed() {
			continue
		}
		if !matches(doc, q.Where) {
			continue
		}
		out = append(out, doc.Clone())
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func matches(doc Document, where map[string]any) bool {
	for k, want := range where {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// FindByID returns the document with id, trashed or not.
func (m *MemoryStore) FindByID(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.collections[collection]; ok {
		if doc, ok := c.docs[id]; ok {
			return doc.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
}

// Create inserts data under a fresh uuid.
func (m *MemoryStore) Create(ctx context.Context, collection string, data Document, opts WriteOptions) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := data.Clone()
	if doc == nil {
		doc = Document{}
	}
	if opts.File != nil {
		if err := replaceObject(ctx, m.objects, "", opts.File); err != nil {
			return nil, err
		}
		applyFile(doc, opts.File)
	}

	id := uuid.NewString()
	doc[FieldID] = id
	if _, ok := doc[FieldDeletedAt]; !ok {
		doc[FieldDeletedAt] = nil
	}

	c := m.collection(collection)
	c.docs[id] = doc
	c.order = append(c.order, id)
	return doc.Clone(), nil
}

// Update merges data into the document. A nil deletedAt clears the marker.
func (m *MemoryStore) Update(ctx context.Context, collection, id string, data Document, opts WriteOptions) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	existing, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	next := existing.Clone()
	if opts.File != nil {
		previous, _ := existing[FieldFilename].(string)
		if err := replaceObject(ctx, m.objects, previous, opts.File); err != nil {
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

	c.docs[id] = next
	return next.Clone(), nil
}

// Delete removes the document permanently. Deleting a missing id is a no-op.
func (m *MemoryStore) Delete(ctx context.Context, collection, id string, _ WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Trash soft-deletes a document by setting its delete marker.
func (m *MemoryStore) Trash(ctx context.Context, collection, id string) error {
	_, err := m.Update(ctx, collection, id, Document{FieldDeletedAt: trashMarker(m.now())}, SeedWrite())
	return err
}

// Count returns the number of documents in collection, trashed included.
func (m *MemoryStore) Count(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[collection]; ok {
		return int64(len(c.docs)), nil
	}
	return 0, nil
}

// UpdateGlobal merges data into the global document for slug.
func (m *MemoryStore) UpdateGlobal(ctx context.Context, slug string, data Document, _ WriteOptions) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.globals[slug].Clone()
	if next == nil {
		next = Document{}
	}
	for k, v := range data.Clone() {
		next[k] = v
	}
	m.globals[slug] = next
	return next.Clone(), nil
}

// Global returns the stored global for slug, or nil.
func (m *MemoryStore) Global(slug string) Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.globals[slug].Clone()
}

// GlobalSlugs returns the registered global slugs.
func (m *MemoryStore) GlobalSlugs() []string {
	return append([]string(nil), m.slugs...)
}
