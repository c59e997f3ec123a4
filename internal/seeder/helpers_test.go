package seeder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/store"
)

const (
	testFixtureDir = "/seed/fixtures"
	testMediaDir   = "/seed/media"
	testBucket     = "media"
)

type testEnv struct {
	fs      afero.Fs
	store   *store.MemoryStore
	objects *store.FSObjectStore
	loader  *fixture.Loader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	objects, err := store.NewFSObjectStore(fs, "/objects", testBucket)
	require.NoError(t, err)
	return &testEnv{
		fs:      fs,
		store:   store.NewMemoryStore([]string{"site-settings"}, objects),
		objects: objects,
		loader:  fixture.NewLoader(fs, testFixtureDir, testMediaDir),
	}
}

// writeFixtures writes every fixture of kind's plan, "[]" unless overridden.
func (e *testEnv) writeFixtures(t *testing.T, kind string, files map[string]string) {
	t.Helper()
	p, err := plan.ForKind(kind)
	require.NoError(t, err)
	for _, s := range p.Steps {
		body, ok := files[s.Fixture]
		if !ok {
			body = "[]"
		}
		require.NoError(t, afero.WriteFile(e.fs, e.loader.Path(kind, s.Fixture), []byte(body), 0o644))
	}
}

func (e *testEnv) writeMedia(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, filepath.Join(testMediaDir, name), data, 0o644))
}

func (e *testEnv) orchestrator(t *testing.T, kind string) *Orchestrator {
	t.Helper()
	upsert, err := NewUpsertEngine(e.store, testBucket, 0, nil)
	require.NoError(t, err)
	reset, err := NewResetEngine(e.store, false, 2, 2, nil)
	require.NoError(t, err)
	o, err := NewOrchestrator(kind, e.store, e.loader, upsert, reset, logger.NewNop())
	require.NoError(t, err)
	return o
}

// findOne returns the live document with stableID, failing the test if absent.
func (e *testEnv) findOne(t *testing.T, collection, stableID string) store.Document {
	t.Helper()
	docs, err := e.store.Find(context.Background(), collection, store.Query{
		Where: map[string]any{store.FieldStableID: stableID},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1, "%s/%s", collection, stableID)
	return docs[0]
}

func (e *testEnv) count(t *testing.T, collection string) int64 {
	t.Helper()
	n, err := e.store.Count(context.Background(), collection)
	require.NoError(t, err)
	return n
}

// recordingStore logs every delete it forwards.
type recordingStore struct {
	store.Store
	mu      sync.Mutex
	deletes []string
}

func (r *recordingStore) Delete(ctx context.Context, collection, id string, opts store.WriteOptions) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, collection)
	r.mu.Unlock()
	return r.Store.Delete(ctx, collection, id, opts)
}

// stuckStore accepts deletes without removing anything.
type stuckStore struct {
	store.Store
}

func (stuckStore) Delete(context.Context, string, string, store.WriteOptions) error {
	return nil
}

// missingObjectStore fails updates with a missing object error while
// failures remain, or always when failures is negative.
type missingObjectStore struct {
	store.Store
	bucket   string
	failures int
	calls    []bool // whether each update carried a file
}

func (m *missingObjectStore) Update(ctx context.Context, collection, id string, data store.Document, opts store.WriteOptions) (store.Document, error) {
	m.calls = append(m.calls, opts.File != nil)
	if m.failures != 0 {
		if m.failures > 0 {
			m.failures--
		}
		return nil, &store.ObjectMissingError{Bucket: m.bucket, Key: "old.png"}
	}
	return m.Store.Update(ctx, collection, id, data, opts)
}
