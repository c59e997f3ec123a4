package fixture

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return NewLoader(fs, "/seed", "/seed/media")
}

func TestLoader_Load(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/seed/baseline/cities.json": `[
			{"stableId": "ist", "name": "Istanbul", "countryStableId": "tr"},
			{"stableId": "ank", "name": "Ankara", "countryStableId": "tr"}
		]`,
	})

	records, err := l.Load(KindBaseline, "cities")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ist", records[0].StableID())
	assert.Equal(t, "ank", records[1].StableID())
	assert.Equal(t, []string{"stableId", "name", "countryStableId"}, records[0].Keys())
}

func TestLoader_LoadEmptyArray(t *testing.T) {
	l := newTestLoader(t, map[string]string{"/seed/demo/posts.json": `[]`})

	records, err := l.Load(KindDemo, "posts")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	l := newTestLoader(t, nil)

	_, err := l.Load(KindBaseline, "countries")
	assert.True(t, errors.Is(err, ErrFixtureNotFound))
	assert.False(t, errors.Is(err, ErrMalformedFixture))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		index   int
		reason  string
	}{
		{"not json", `{"stableId":`, -1, "not a JSON array"},
		{"object instead of array", `{"stableId": "a"}`, -1, "not a JSON array"},
		{"empty object", `{}`, -1, "not a JSON array"},
		{"null", `null`, -1, "not a JSON array"},
		{"null with whitespace", " null\n", -1, "not a JSON array"},
		{"entry not object", `[{"stableId": "a"}, 42]`, 1, "entry is not an object"},
		{"missing stableId", `[{"name": "x"}]`, 0, "missing or empty stableId"},
		{"empty stableId", `[{"stableId": ""}]`, 0, "missing or empty stableId"},
		{"numeric stableId", `[{"stableId": 7}]`, 0, "missing or empty stableId"},
		{"duplicate stableId", `[{"stableId": "a"}, {"stableId": "b"}, {"stableId": "a"}]`, 2, "duplicate stableId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.json", []byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFixture))

			var mf *MalformedFixtureError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tt.index, mf.Index)
			assert.Contains(t, mf.Reason, tt.reason)
			assert.Equal(t, "test.json", mf.File)
		})
	}
}

func TestLoader_WriteRoundTripKeepsOrder(t *testing.T) {
	l := newTestLoader(t, nil)

	rec := RecordOf("stableId", "p1", "title", "Hello", "tagStableIds", []any{"t1"})
	require.NoError(t, l.Write(KindDemo, "posts", []*Record{rec}))

	loaded, err := l.Load(KindDemo, "posts")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, []string{"stableId", "title", "tagStableIds"}, loaded[0].Keys())
	v, _ := loaded[0].Get("tagStableIds")
	assert.Equal(t, []any{"t1"}, v)
}

func TestLoader_ReadMedia(t *testing.T) {
	l := newTestLoader(t, map[string]string{"/seed/media/clinics/front.png": "png-bytes"})

	f, err := l.ReadMedia("clinics/front.png")
	require.NoError(t, err)
	assert.Equal(t, "front.png", f.Name)
	assert.Equal(t, "image/png", f.MimeType)
	assert.Equal(t, []byte("png-bytes"), f.Data)

	_, err = l.ReadMedia("missing.png")
	assert.Error(t, err)

	_, err = l.ReadMedia("")
	assert.Error(t, err)
}
