package seeder

import (
	"context"
	"fmt"
	"sort"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/relation"
	"github.com/dbsmedya/goseed/internal/resolver"
	"github.com/dbsmedya/goseed/internal/store"
)

// ExportResult is a portable fixture rebuilt from live documents.
type ExportResult struct {
	Step     string
	Records  []*fixture.Record
	Warnings []string
}

// Exporter turns stored documents back into fixtures, translating native
// relation ids into stableIds.
type Exporter struct {
	store  store.Store
	logger *logger.Logger
}

// NewExporter creates an exporter over s.
func NewExporter(s store.Store, log *logger.Logger) (*Exporter, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Exporter{store: s, logger: log}, nil
}

// Export rebuilds the fixture of one collection step of kind's plan.
// Trashed documents and documents without a stableId are left out.
func (e *Exporter) Export(ctx context.Context, kind, stepName string) (*ExportResult, error) {
	p, err := plan.ForKind(kind)
	if err != nil {
		return nil, err
	}
	s, ok := p.Step(stepName)
	if !ok {
		return nil, fmt.Errorf("%s plan has no step %q", kind, stepName)
	}
	if s.Globals {
		return nil, fmt.Errorf("step %q holds globals and cannot be exported", stepName)
	}

	docs, err := e.store.Find(ctx, s.Collection, store.Query{OverrideAccess: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Collection, err)
	}

	res := resolver.New(e.store)
	out := &ExportResult{Step: stepName, Records: []*fixture.Record{}}
	mappings := append(append([]relation.Mapping(nil), s.Mappings...), s.Deferred...)

	for _, doc := range docs {
		sid := doc.StableID()
		if sid == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: document has no stableId; skipped", doc.ID()))
			continue
		}
		res.Remember(s.Collection, sid, doc.ID())

		rec := documentRecord(doc, s.FileField)
		for _, m := range mappings {
			warning, err := reverseMapping(ctx, rec, m, res)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", s.Collection, sid, err)
			}
			if warning != "" {
				out.Warnings = append(out.Warnings, sid+": "+warning)
			}
		}
		out.Records = append(out.Records, rec)
	}

	e.logger.WithCollection(s.Collection).Infof("Exported %d documents (%d warnings)", len(out.Records), len(out.Warnings))
	return out, nil
}

// documentRecord orders a document as stableId first, then the remaining
// fields alphabetically. Store bookkeeping fields are dropped.
func documentRecord(doc store.Document, fileField string) *fixture.Record {
	rec := fixture.RecordOf(store.FieldStableID, doc.StableID())

	keys := make([]string, 0, len(doc))
	for k := range doc {
		switch k {
		case store.FieldID, store.FieldStableID, store.FieldDeletedAt:
			continue
		case store.FieldMimeType, store.FieldFilesize:
			if fileField != "" {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clone := doc.Clone()
	for _, k := range keys {
		if k == store.FieldFilename && fileField != "" {
			rec.Set(fileField, clone[k])
			continue
		}
		rec.Set(k, clone[k])
	}
	return rec
}

// reverseMapping moves the native id(s) at m.TargetField back to stableIds
// under m.SourceField.
func reverseMapping(ctx context.Context, rec *fixture.Record, m relation.Mapping, res *resolver.Resolver) (string, error) {
	raw, ok := m.TargetField.Get(rec)
	if !ok || raw == nil {
		return "", nil
	}
	m.TargetField.Delete(rec)

	if !m.Many {
		id, isString := raw.(string)
		if !isString {
			return fmt.Sprintf("%s holds %T, expected an id", m.TargetField, raw), nil
		}
		sid, found, err := res.ResolveStableIDByID(ctx, m.TargetCollection, id)
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("%s: %s %q has no stableId", m.TargetField, m.TargetCollection, id), nil
		}
		rec.Set(m.SourceField, sid)
		return "", nil
	}

	list, isList := raw.([]any)
	if !isList {
		return fmt.Sprintf("%s holds %T, expected a list of ids", m.TargetField, raw), nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if id, isString := item.(string); isString {
			ids = append(ids, id)
		}
	}
	found, err := res.ResolveManyStableIDsByIDs(ctx, m.TargetCollection, ids)
	if err != nil {
		return "", err
	}
	sids := make([]any, 0, len(found.IDs))
	for _, sid := range found.IDs {
		sids = append(sids, sid)
	}
	rec.Set(m.SourceField, sids)
	if len(found.Missing) > 0 {
		return fmt.Sprintf("%s: %d %s ids have no stableId", m.TargetField, len(found.Missing), m.TargetCollection), nil
	}
	return "", nil
}
