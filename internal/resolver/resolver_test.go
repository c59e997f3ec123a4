package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/store"
)

// countingStore counts lookups and can inject errors.
type countingStore struct {
	*store.MemoryStore
	finds     int
	findByIDs int
	findErr   error
	byIDErr   error
}

func (c *countingStore) Find(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	c.finds++
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.MemoryStore.Find(ctx, collection, q)
}

func (c *countingStore) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	c.findByIDs++
	if c.byIDErr != nil {
		return nil, c.byIDErr
	}
	return c.MemoryStore.FindByID(ctx, collection, id)
}

func seeded(t *testing.T) (*countingStore, map[string]string) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore(nil, nil)
	ids := make(map[string]string)
	for _, sid := range []string{"tr", "de"} {
		doc, err := mem.Create(ctx, "countries", store.Document{"stableId": sid}, store.SeedWrite())
		require.NoError(t, err)
		ids[sid] = doc.ID()
	}
	return &countingStore{MemoryStore: mem}, ids
}

func TestResolveIDByStableID_CachesHits(t *testing.T) {
	s, ids := seeded(t)
	r := New(s)
	ctx := context.Background()

	id, ok, err := r.ResolveIDByStableID(ctx, "countries", "tr")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids["tr"], id)

	id, ok, err = r.ResolveIDByStableID(ctx, "countries", "tr")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids["tr"], id)
	assert.Equal(t, 1, s.finds)

	// The reverse direction was learned from the forward hit.
	sid, ok, err := r.ResolveStableIDByID(ctx, "countries", ids["tr"])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tr", sid)
	assert.Equal(t, 0, s.findByIDs)
}

func TestResolveIDByStableID_CachesMisses(t *testing.T) {
	s, _ := seeded(t)
	r := New(s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok, err := r.ResolveIDByStableID(ctx, "countries", "xx")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, s.finds)
	assert.Equal(t, 1, r.Queries())
}

func TestResolveIDByStableID_CollectionScoped(t *testing.T) {
	s, _ := seeded(t)
	r := New(s)

	_, ok, err := r.ResolveIDByStableID(context.Background(), "cities", "tr")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveIDByStableID_StoreError(t *testing.T) {
	s, _ := seeded(t)
	s.findErr = errors.New("connection reset")
	r := New(s)

	_, _, err := r.ResolveIDByStableID(context.Background(), "countries", "tr")
	assert.ErrorContains(t, err, "connection reset")

	// Errors are not cached.
	s.findErr = nil
	_, ok, err := r.ResolveIDByStableID(context.Background(), "countries", "tr")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemember_OverridesCachedMiss(t *testing.T) {
	s, _ := seeded(t)
	r := New(s)
	ctx := context.Background()

	_, ok, _ := r.ResolveIDByStableID(ctx, "countries", "fr")
	require.False(t, ok)

	r.Remember("countries", "fr", "native-fr")
	id, ok, err := r.ResolveIDByStableID(ctx, "countries", "fr")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "native-fr", id)
}

func TestResolveManyIDsByStableIDs(t *testing.T) {
	s, ids := seeded(t)
	r := New(s)

	res, err := r.ResolveManyIDsByStableIDs(context.Background(), "countries", []string{"tr", "xx", "de", "yy"})
	require.NoError(t, err)
	assert.Equal(t, []string{ids["tr"], ids["de"]}, res.IDs)
	assert.Equal(t, []string{"xx", "yy"}, res.Missing)
}

func TestResolveStableIDByID(t *testing.T) {
	s, ids := seeded(t)
	r := New(s)
	ctx := context.Background()

	sid, ok, err := r.ResolveStableIDByID(ctx, "countries", ids["de"])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "de", sid)

	_, ok, err = r.ResolveStableIDByID(ctx, "countries", "no-such-id")
	require.NoError(t, err, "not found is not an error")
	assert.False(t, ok)

	_, ok, err = r.ResolveStableIDByID(ctx, "countries", "no-such-id")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, s.findByIDs, "absent ids are cached")
}

func TestResolveStableIDByID_PropagatesOtherErrors(t *testing.T) {
	s, ids := seeded(t)
	s.byIDErr = errors.New("permission denied")
	r := New(s)

	_, _, err := r.ResolveStableIDByID(context.Background(), "countries", ids["tr"])
	assert.ErrorContains(t, err, "permission denied")
}

func TestResolveManyStableIDsByIDs(t *testing.T) {
	s, ids := seeded(t)
	r := New(s)

	res, err := r.ResolveManyStableIDsByIDs(context.Background(), "countries", []string{ids["de"], "gone", ids["tr"]})
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "tr"}, res.IDs)
	assert.Equal(t, []string{"gone"}, res.Missing)
}
