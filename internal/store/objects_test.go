package store

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFSObjectStore_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewFSObjectStore(nil, "/root", "media")
	assert.Error(t, err)

	_, err = NewFSObjectStore(fs, "/root", "")
	assert.Error(t, err)

	_, err = NewFSObjectStore(fs, "/root", "a/b")
	assert.Error(t, err)

	s, err := NewFSObjectStore(fs, "/root", "media")
	require.NoError(t, err)
	assert.Equal(t, "media", s.Bucket())

	ok, _ := afero.DirExists(fs, "/root/media")
	assert.True(t, ok)
}

func TestFSObjectStore_PutDeleteExists(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s, err := NewFSObjectStore(fs, "/root", "media")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "clinics/front.jpg", []byte("jpg")))
	data, err := afero.ReadFile(fs, "/root/media/clinics/front.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpg"), data)

	ok, err := s.Exists(ctx, "clinics/front.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "clinics/front.jpg"))
	ok, err = s.Exists(ctx, "clinics/front.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Delete(ctx, "clinics/front.jpg")
	var missing *ObjectMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "no such key: media/clinics/front.jpg", err.Error())
}

func TestFSObjectStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(afero.NewMemMapFs(), "/root", "media")
	require.NoError(t, err)

	for _, key := range []string{"", "/", "../escape.png", "a/../../b"} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, s.Put(ctx, key, nil))
		})
	}
}

func TestReplaceObject(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(afero.NewMemMapFs(), "/root", "media")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "old.png", []byte("old")))
	require.NoError(t, replaceObject(ctx, s, "old.png", &File{Name: "new.png", Data: []byte("new")}))

	oldExists, _ := s.Exists(ctx, "old.png")
	newExists, _ := s.Exists(ctx, "new.png")
	assert.False(t, oldExists)
	assert.True(t, newExists)

	err = replaceObject(ctx, s, "gone.png", &File{Name: "other.png"})
	var missing *ObjectMissingError
	require.True(t, errors.As(err, &missing))
	otherExists, _ := s.Exists(ctx, "other.png")
	assert.False(t, otherExists, "nothing is written when the previous object is missing")
}

func TestDocument_Helpers(t *testing.T) {
	d := Document{"id": "1", "stableId": "s", "deletedAt": nil}
	assert.Equal(t, "1", d.ID())
	assert.Equal(t, "s", d.StableID())
	assert.False(t, d.IsTrashed())

	d["deletedAt"] = "2026-01-01T00:00:00Z"
	assert.True(t, d.IsTrashed())

	d["nested"] = map[string]any{"a": []any{1}}
	c := d.Clone()
	c["nested"].(map[string]any)["a"].([]any)[0] = 2
	assert.Equal(t, 1, d["nested"].(map[string]any)["a"].([]any)[0])

	var nilDoc Document
	assert.Nil(t, nilDoc.Clone())
}
