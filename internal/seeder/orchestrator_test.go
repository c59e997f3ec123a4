package seeder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/store"
)

var countriesAndCities = map[string]string{
	"countries": `[{"stableId":"tr","name":"Turkey"},{"stableId":"de","name":"Germany"}]`,
	"cities": `[
		{"stableId":"ist","name":"Istanbul","countryStableId":"tr"},
		{"stableId":"ber","name":"Berlin","countryStableId":"de"},
		{"stableId":"atl","name":"Atlantis","countryStableId":"nowhere"}
	]`,
}

func TestNewOrchestrator_Errors(t *testing.T) {
	env := newTestEnv(t)
	upsert, err := NewUpsertEngine(env.store, testBucket, 0, nil)
	require.NoError(t, err)

	_, err = NewOrchestrator(fixture.KindBaseline, nil, env.loader, upsert, nil, nil)
	assert.Error(t, err)
	_, err = NewOrchestrator(fixture.KindBaseline, env.store, nil, upsert, nil, nil)
	assert.Error(t, err)
	_, err = NewOrchestrator(fixture.KindBaseline, env.store, env.loader, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewOrchestrator("staging", env.store, env.loader, upsert, nil, nil)
	assert.Error(t, err)
}

func TestRun_ResolvesRelationsAndSkipsMissing(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, countriesAndCities)

	summary, err := env.orchestrator(t, fixture.KindBaseline).Run(context.Background(), Options{})
	require.NoError(t, err)

	countries := summary.Unit("countries")
	require.NotNil(t, countries)
	assert.Equal(t, 2, countries.Created)

	cities := summary.Unit("cities")
	require.NotNil(t, cities)
	assert.Equal(t, 2, cities.Created)
	require.Len(t, cities.Warnings, 1)
	assert.Contains(t, cities.Warnings[0], "atl")
	assert.Contains(t, summary.Warnings[0], "[cities] atl")
	assert.True(t, summary.OK())

	ist := env.findOne(t, "cities", "ist")
	assert.Equal(t, env.findOne(t, "countries", "tr").ID(), ist["country"])
	assert.NotContains(t, ist, "countryStableId")
	assert.Equal(t, int64(2), env.count(t, "cities"))
}

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, countriesAndCities)

	first, err := env.orchestrator(t, fixture.KindBaseline).Run(ctx, Options{})
	require.NoError(t, err)
	ids := map[string]string{
		"tr":  env.findOne(t, "countries", "tr").ID(),
		"ist": env.findOne(t, "cities", "ist").ID(),
	}

	second, err := env.orchestrator(t, fixture.KindBaseline).Run(ctx, Options{})
	require.NoError(t, err)

	created1, updated1 := first.Totals()
	created2, updated2 := second.Totals()
	assert.Zero(t, updated1)
	assert.Zero(t, created2)
	assert.Equal(t, created1, updated2)

	assert.Equal(t, ids["tr"], env.findOne(t, "countries", "tr").ID())
	assert.Equal(t, ids["ist"], env.findOne(t, "cities", "ist").ID())
	assert.Equal(t, int64(2), env.count(t, "countries"))
}

func TestRun_DuplicateStableIDIsFatalBeforeWrites(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, map[string]string{
		"countries": `[{"stableId":"tr"}]`,
		"tags":      `[{"stableId":"t1"},{"stableId":"t1"}]`,
	})

	summary, err := env.orchestrator(t, fixture.KindBaseline).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, fixture.ErrMalformedFixture)
	assert.Nil(t, summary)
	assert.Zero(t, env.count(t, "countries"))
}

func TestRun_MissingFixtureIsFatal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator(t, fixture.KindBaseline).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, fixture.ErrFixtureNotFound)
}

func TestRun_Globals(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, map[string]string{
		"globals": `[{"stableId":"site-settings","title":"Clinics"},{"stableId":"footer","links":[]}]`,
	})

	summary, err := env.orchestrator(t, fixture.KindBaseline).Run(context.Background(), Options{})
	require.NoError(t, err)

	globals := summary.Unit("globals")
	require.NotNil(t, globals)
	assert.Equal(t, 1, globals.Updated)
	assert.Zero(t, globals.Created)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0], "[globals] footer")
	assert.False(t, summary.OK())

	g := env.store.Global("site-settings")
	assert.Equal(t, "Clinics", g["title"])
	assert.NotContains(t, g, "stableId")
}

func TestRun_DeferredRelations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindDemo, map[string]string{
		"posts": `[
			{"stableId":"p1","title":"One","relatedPostsStableIds":["p2","p1"]},
			{"stableId":"p2","title":"Two"}
		]`,
	})

	summary, err := env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Unit("posts").Created)
	relations := summary.Unit("posts-relations")
	require.NotNil(t, relations)
	assert.Equal(t, 1, relations.Updated)
	assert.Empty(t, relations.Warnings)

	p1 := env.findOne(t, "posts", "p1")
	p2 := env.findOne(t, "posts", "p2")
	assert.Equal(t, []any{p2.ID()}, p1["relatedPosts"])
	assert.NotContains(t, p1, "relatedPostsStableIds")
	assert.NotContains(t, p2, "relatedPosts")

	// The second run keeps the relation in place.
	_, err = env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{p2.ID()}, env.findOne(t, "posts", "p1")["relatedPosts"])
}

func TestRun_DeferredRelationToMissingPost(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindDemo, map[string]string{
		"posts": `[{"stableId":"p1","relatedPostsStableIds":["ghost"]}]`,
	})

	summary, err := env.orchestrator(t, fixture.KindDemo).Run(context.Background(), Options{})
	require.NoError(t, err)

	relations := summary.Unit("posts-relations")
	require.NotNil(t, relations)
	assert.Equal(t, 1, relations.Updated)
	require.Len(t, relations.Warnings, 1)
	assert.Contains(t, relations.Warnings[0], "ghost")
	assert.Equal(t, []any{}, env.findOne(t, "posts", "p1")["relatedPosts"])
}

func TestRun_UploadsAndLinksMedia(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeMedia(t, "logo.png", []byte("png-bytes"))
	env.writeFixtures(t, fixture.KindDemo, map[string]string{
		"media": `[{"stableId":"m1","alt":"Logo","file":"logo.png"},{"stableId":"m2","file":"absent.png"}]`,
		"posts": `[{"stableId":"p1","thumbnailStableId":"m1"}]`,
	})

	summary, err := env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)

	media := summary.Unit("media")
	assert.Equal(t, 1, media.Created)
	require.Len(t, media.Failures, 1)
	assert.Contains(t, media.Failures[0], "m2")

	m1 := env.findOne(t, "media", "m1")
	assert.Equal(t, "logo.png", m1[store.FieldFilename])
	assert.Equal(t, "image/png", m1[store.FieldMimeType])
	assert.NotContains(t, m1, "file")

	exists, err := env.objects.Exists(ctx, "logo.png")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, m1.ID(), env.findOne(t, "posts", "p1")["thumbnail"])
}

func TestRun_MissingObjectDegradesToMetadataUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeMedia(t, "logo.png", []byte("png-bytes"))
	env.writeFixtures(t, fixture.KindDemo, map[string]string{
		"media": `[{"stableId":"m1","file":"logo.png"}]`,
	})

	_, err := env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)
	require.NoError(t, env.objects.Delete(ctx, "logo.png"))

	summary, err := env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unit("media").Updated)
	assert.Empty(t, summary.Failures)

	exists, err := env.objects.Exists(ctx, "logo.png")
	require.NoError(t, err)
	assert.False(t, exists, "the file is not uploaded again")
	assert.Equal(t, "logo.png", env.findOne(t, "media", "m1")[store.FieldFilename])
}

func TestRun_RequiredNestedRelation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.store.Create(ctx, "cities", store.Document{"stableId": "ist"}, store.SeedWrite())
	require.NoError(t, err)
	env.writeFixtures(t, fixture.KindDemo, map[string]string{
		"clinics": `[
			{"stableId":"c1","name":"Bosphorus","cityStableId":"ist","location":{"street":"Main"}},
			{"stableId":"c2","name":"Nowhere"}
		]`,
	})

	summary, err := env.orchestrator(t, fixture.KindDemo).Run(ctx, Options{})
	require.NoError(t, err)

	clinics := summary.Unit("clinics")
	assert.Equal(t, 1, clinics.Created)
	require.Len(t, clinics.Warnings, 1)
	assert.Contains(t, clinics.Warnings[0], "c2")

	c1 := env.findOne(t, "clinics", "c1")
	assert.Equal(t, map[string]any{
		"street": "Main",
		"city":   env.findOne(t, "cities", "ist").ID(),
	}, c1["location"])
}

func TestRun_ResetThenSeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, countriesAndCities)
	_, err := env.store.Create(ctx, "countries", store.Document{"stableId": "stale"}, store.SeedWrite())
	require.NoError(t, err)

	summary, err := env.orchestrator(t, fixture.KindBaseline).Run(ctx, Options{Reset: true})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Unit("countries").Created)
	assert.Equal(t, int64(2), env.count(t, "countries"))
}

func TestRun_ResetWithoutEngine(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, nil)
	upsert, err := NewUpsertEngine(env.store, testBucket, 0, nil)
	require.NoError(t, err)
	o, err := NewOrchestrator(fixture.KindBaseline, env.store, env.loader, upsert, nil, logger.NewNop())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), Options{Reset: true})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	env.writeFixtures(t, fixture.KindBaseline, countriesAndCities)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := env.orchestrator(t, fixture.KindBaseline).Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Units)
}

func TestDeferredDraft(t *testing.T) {
	posts, ok := plan.Demo().Step("posts")
	require.True(t, ok)
	mappings := posts.Deferred

	draft, ok := deferredDraft(fixture.RecordOf("stableId", "p1", "title", "x"), mappings)
	assert.False(t, ok)
	assert.Equal(t, 1, draft.Len())

	draft, ok = deferredDraft(fixture.RecordOf("stableId", "p1", "relatedPostsStableIds", []any{"p1"}), mappings)
	assert.True(t, ok)
	v, _ := draft.Get("relatedPostsStableIds")
	assert.Equal(t, []any{}, v)
}
