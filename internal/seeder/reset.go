package seeder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/store"
)

var (
	// ErrProductionReset is returned when a reset is requested in production.
	ErrProductionReset = errors.New("reset is disabled in production")
	// ErrResetStalled is returned when deletes stop making progress.
	ErrResetStalled = errors.New("reset stalled")
)

// Reset defaults.
const (
	DefaultFetchLimit  = 1000
	DefaultConcurrency = 5
)

// ResetStats counts deleted documents per collection.
type ResetStats struct {
	Collections []string
	Deleted     map[string]int
	Duration    time.Duration
}

// ResetEngine empties collections in dependency order.
type ResetEngine struct {
	store       store.Store
	production  bool
	fetchLimit  int
	concurrency int
	logger      *logger.Logger
}

// NewResetEngine creates a reset engine. production disables it.
func NewResetEngine(s store.Store, production bool, fetchLimit, concurrency int, log *logger.Logger) (*ResetEngine, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &ResetEngine{
		store:       s,
		production:  production,
		fetchLimit:  fetchLimit,
		concurrency: concurrency,
		logger:      log,
	}, nil
}

// Reset deletes every document of the collections kind owns.
func (r *ResetEngine) Reset(ctx context.Context, kind string) (*ResetStats, error) {
	if r.production {
		return nil, ErrProductionReset
	}
	collections, err := plan.ResetCollections(kind)
	if err != nil {
		return nil, err
	}
	return r.ResetCollections(ctx, collections)
}

// ResetCollections deletes every document of collections, in order.
func (r *ResetEngine) ResetCollections(ctx context.Context, collections []string) (*ResetStats, error) {
	if r.production {
		return nil, ErrProductionReset
	}
	start := time.Now()
	stats := &ResetStats{Collections: collections, Deleted: make(map[string]int)}

	r.logger.Infof("Starting reset of %d collections", len(collections))
	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("reset interrupted: %w", err)
		}
		n, err := r.resetCollection(ctx, c)
		stats.Deleted[c] = n
		if err != nil {
			return stats, err
		}
		if n > 0 {
			r.logger.Infof("Deleted %d documents from %q", n, c)
		}
	}
	stats.Duration = time.Since(start)
	r.logger.Infof("Reset complete in %s", stats.Duration)
	return stats, nil
}

func (r *ResetEngine) resetCollection(ctx context.Context, collection string) (int, error) {
	var (
		deleted int
		prev    []string
		log     = r.logger.WithCollection(collection)
	)
	for batch := 1; ; batch++ {
		docs, err := r.store.Find(ctx, collection, store.Query{
			Limit:          r.fetchLimit,
			Trash:          true,
			OverrideAccess: true,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to fetch %s: %w", collection, err)
		}
		if len(docs) == 0 {
			return deleted, nil
		}

		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID()
		}
		sort.Strings(ids)
		if sameIDs(prev, ids) {
			return deleted, fmt.Errorf("%w: %s returned the same %d documents twice", ErrResetStalled, collection, len(ids))
		}
		prev = ids
		log.WithBatch(batch).Debugf("Deleting %d documents", len(ids))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, id := range ids {
			g.Go(func() error {
				if err := r.store.Delete(gctx, collection, id, store.SeedWrite()); err != nil {
					return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return deleted, err
		}
		deleted += len(ids)
	}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) || a == nil {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
