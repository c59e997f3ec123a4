// Package resolver maps portable stableIds to store-assigned ids and back,
// caching every answer for the lifetime of one run.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dbsmedya/goseed/internal/store"
)

// lookup is a cached forward answer. found is false for a cached miss.
type lookup struct {
	id    string
	found bool
}

// Resolver is a per-run bidirectional stableId cache. It assumes nobody
// else mutates the store while the run is in progress.
type Resolver struct {
	store store.Store

	mu           sync.Mutex
	idByStableID map[string]map[string]lookup
	stableIDByID map[string]map[string]string
	absentByID   map[string]map[string]bool
	queries      int
}

// New creates a Resolver over s.
func New(s store.Store) *Resolver {
	return &Resolver{
		store:        s,
		idByStableID: make(map[string]map[string]lookup),
		stableIDByID: make(map[string]map[string]string),
		absentByID:   make(map[string]map[string]bool),
	}
}

// Result partitions a batch resolution.
type Result struct {
	IDs     []string
	Missing []string
}

// ResolveIDByStableID returns the native id for stableID. ok is false when
// no document carries it.
func (r *Resolver) ResolveIDByStableID(ctx context.Context, collection, stableID string) (string, bool, error) {
	r.mu.Lock()
	if hit, cached := r.idByStableID[collection][stableID]; cached {
		r.mu.Unlock()
		return hit.id, hit.found, nil
	}
	r.queries++
	r.mu.Unlock()

	docs, err := r.store.Find(ctx, collection, store.Query{
		Where:          map[string]any{store.FieldStableID: stableID},
		Limit:          1,
		OverrideAccess: true,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s/%s: %w", collection, stableID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(docs) == 0 {
		r.forward(collection)[stableID] = lookup{}
		return "", false, nil
	}
	id := docs[0].ID()
	r.remember(collection, stableID, id)
	return id, true, nil
}

// ResolveManyIDsByStableIDs resolves each stableId independently. Lookup
// misses land in Missing; store errors are returned.
func (r *Resolver) ResolveManyIDsByStableIDs(ctx context.Context, collection string, stableIDs []string) (Result, error) {
	var res Result
	for _, sid := range stableIDs {
		id, ok, err := r.ResolveIDByStableID(ctx, collection, sid)
		if err != nil {
			return res, err
		}
		if ok {
			res.IDs = append(res.IDs, id)
		} else {
			res.Missing = append(res.Missing, sid)
		}
	}
	return res, nil
}

// ResolveStableIDByID returns the stableId of the document with id. A
// not-found store error yields ok=false; other errors propagate.
func (r *Resolver) ResolveStableIDByID(ctx context.Context, collection, id string) (string, bool, error) {
	r.mu.Lock()
	if sid, cached := r.stableIDByID[collection][id]; cached {
		r.mu.Unlock()
		return sid, true, nil
	}
	if r.absentByID[collection][id] {
		r.mu.Unlock()
		return "", false, nil
	}
	r.queries++
	r.mu.Unlock()

	doc, err := r.store.FindByID(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		r.markAbsent(collection, id)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %s/%s: %w", collection, id, err)
	}

	sid := doc.StableID()
	if sid == "" {
		r.markAbsent(collection, id)
		return "", false, nil
	}
	r.mu.Lock()
	r.remember(collection, sid, id)
	r.mu.Unlock()
	return sid, true, nil
}

// ResolveManyStableIDsByIDs is the batch form of ResolveStableIDByID.
// Unresolved native ids land in Missing.
func (r *Resolver) ResolveManyStableIDsByIDs(ctx context.Context, collection string, ids []string) (Result, error) {
	var res Result
	for _, id := range ids {
		sid, ok, err := r.ResolveStableIDByID(ctx, collection, id)
		if err != nil {
			return res, err
		}
		if ok {
			res.IDs = append(res.IDs, sid)
		} else {
			res.Missing = append(res.Missing, id)
		}
	}
	return res, nil
}

// Remember records a mapping learned elsewhere, e.g. right after a create.
func (r *Resolver) Remember(collection, stableID, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remember(collection, stableID, id)
}

// Queries returns how many store lookups have been issued.
func (r *Resolver) Queries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

func (r *Resolver) forward(collection string) map[string]lookup {
	m, ok := r.idByStableID[collection]
	if !ok {
		m = make(map[string]lookup)
		r.idByStableID[collection] = m
	}
	return m
}

func (r *Resolver) remember(collection, stableID, id string) {
	r.forward(collection)[stableID] = lookup{id: id, found: true}
	rev, ok := r.stableIDByID[collection]
	if !ok {
		rev = make(map[string]string)
		r.stableIDByID[collection] = rev
	}
	rev[id] = stableID
	delete(r.absentByID[collection], id)
}

func (r *Resolver) markAbsent(collection, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.absentByID[collection]
	if !ok {
		m = make(map[string]bool)
		r.absentByID[collection] = m
	}
	m[id] = true
}
