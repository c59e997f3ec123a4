package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/store"
)

// ErrMissingStableID is returned when upserting data without a stableId.
var ErrMissingStableID = errors.New("missing stableId")

// DefaultMaxAttempts bounds the file-less retries after a missing object.
const DefaultMaxAttempts = 3

// UpsertEngine creates or updates documents keyed by stableId.
type UpsertEngine struct {
	store       store.Store
	bucket      string
	maxAttempts int
	logger      *logger.Logger
}

// NewUpsertEngine creates an engine. bucket is the object store bucket
// whose missing objects may be tolerated during updates.
func NewUpsertEngine(s store.Store, bucket string, maxAttempts int, log *logger.Logger) (*UpsertEngine, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &UpsertEngine{store: s, bucket: bucket, maxAttempts: maxAttempts, logger: log}, nil
}

// Upsert writes data into collection. Soft-deleted matches are revived.
// file, when non-nil, is attached on create and replaced on update.
func (e *UpsertEngine) Upsert(ctx context.Context, collection string, data store.Document, file *store.File) (UpsertResult, error) {
	sid := data.StableID()
	if sid == "" {
		return UpsertResult{}, fmt.Errorf("%s: %w", collection, ErrMissingStableID)
	}

	existing, err := e.store.Find(ctx, collection, store.Query{
		Where:          map[string]any{store.FieldStableID: sid},
		Limit:          1,
		Trash:          true,
		OverrideAccess: true,
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to look up %s/%s: %w", collection, sid, err)
	}

	if len(existing) == 0 {
		opts := store.SeedWrite()
		opts.File = file
		doc, err := e.store.Create(ctx, collection, data, opts)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to create %s/%s: %w", collection, sid, err)
		}
		return UpsertResult{Created: true, ID: doc.ID()}, nil
	}

	found := existing[0]
	payload := data.Clone()
	if found.IsTrashed() {
		payload[store.FieldDeletedAt] = nil
		e.logger.Infow("Reviving trashed document", "collection", collection, "stable_id", sid)
	}

	if err := e.update(ctx, collection, found.ID(), payload, file); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to update %s/%s: %w", collection, sid, err)
	}
	return UpsertResult{Updated: true, ID: found.ID()}, nil
}

// update writes payload with file attached. When that fails because the
// previous object is missing from the configured bucket, the update is
// retried up to maxAttempts times without the file.
func (e *UpsertEngine) update(ctx context.Context, collection, id string, payload store.Document, file *store.File) error {
	opts := store.SeedWrite()
	opts.File = file
	_, err := e.store.Update(ctx, collection, id, payload, opts)
	if err == nil || file == nil || !e.isMissingObject(err) {
		return err
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		e.logger.Warnw("Stored object missing, retrying update without file",
			"collection", collection,
			"id", id,
			"error", err,
			"attempt", attempt,
		)
		_, err = e.store.Update(ctx, collection, id, payload, store.SeedWrite())
		if err == nil || !e.isMissingObject(err) {
			return err
		}
	}
	return err
}

func (e *UpsertEngine) isMissingObject(err error) bool {
	var missing *store.ObjectMissingError
	return errors.As(err, &missing) && missing.Bucket == e.bucket
}
