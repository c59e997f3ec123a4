package store

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ObjectStore is a flat key/value blob store scoped to one bucket.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, data []byte) error
	// Delete returns *ObjectMissingError when key does not exist.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// FSObjectStore keeps objects as files under <root>/<bucket>/ on an afero
// filesystem. Tests use afero.NewMemMapFs.
type FSObjectStore struct {
	fs     afero.Fs
	bucket string
}

// NewFSObjectStore creates an object store for bucket rooted at root on fs.
func NewFSObjectStore(fs afero.Fs, root, bucket string) (*FSObjectStore, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	dir := path.Join(root, bucket)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory %s: %w", dir, err)
	}
	return &FSObjectStore{fs: afero.NewBasePathFs(fs, dir), bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *FSObjectStore) Bucket() string {
	return s.bucket
}

// Put writes data under key, replacing any existing object.
func (s *FSObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := objectPath(key)
	if err != nil {
		return err
	}
	if dir := path.Dir(name); dir != "/" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create object directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Delete removes key.
func (s *FSObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := objectPath(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return &ObjectMissingError{Bucket: s.bucket, Key: key}
		}
		return fmt.Errorf("failed to delete object %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *FSObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := objectPath(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, name)
}

func objectPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return clean, nil
}

// replaceObject swaps the object attached to a document: the previous key
// is removed first, then file is stored. A missing previous object is
// reported as *ObjectMissingError and nothing is written.
func replaceObject(ctx context.Context, objects ObjectStore, previous string, file *File) error {
	if objects == nil {
		return fmt.Errorf("no object store configured for file upload %q", file.Name)
	}
	if previous != "" {
		if err := objects.Delete(ctx, previous); err != nil {
			return fmt.Errorf("failed to remove previous object: %w", err)
		}
	}
	if err := objects.Put(ctx, file.Name, file.Data); err != nil {
		return err
	}
	return nil
}

// applyFile records upload metadata on a document.
func applyFile(doc Document, file *File) {
	doc[FieldFilename] = file.Name
	doc[FieldMimeType] = file.MimeType
	doc[FieldFilesize] = len(file.Data)
}
