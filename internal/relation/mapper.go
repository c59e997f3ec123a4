// Package relation rewrites fixture relation fields from stableId
// references into native store ids.
package relation

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/resolver"
)

// Mapping declares that SourceField holds stableId reference(s) into
// TargetCollection, to be written as native ids at TargetField.
type Mapping struct {
	SourceField      string
	TargetField      Path
	TargetCollection string
	Many             bool
	Required         bool
}

// IDResolver is the part of the resolver the mapper needs.
type IDResolver interface {
	ResolveIDByStableID(ctx context.Context, collection, stableID string) (string, bool, error)
	ResolveManyIDsByStableIDs(ctx context.Context, collection string, stableIDs []string) (resolver.Result, error)
}

// Outcome is the mapped record. Skip records must not be upserted.
type Outcome struct {
	Record   *fixture.Record
	Warnings []string
	Skip     bool
}

// Apply maps rec through mappings in order. The input record is not
// modified. Once a required relation fails, remaining source fields are
// still stripped but no longer resolved.
func Apply(ctx context.Context, rec *fixture.Record, mappings []Mapping, r IDResolver) (Outcome, error) {
	out := Outcome{Record: rec.Clone()}
	sid := rec.StableID()

	for _, m := range mappings {
		raw, present := out.Record.Get(m.SourceField)
		out.Record.Delete(m.SourceField)
		if out.Skip {
			continue
		}

		if !present || raw == nil {
			if m.Required {
				out.warn(sid, "required relation %s is empty; record skipped", m.SourceField)
				out.Skip = true
			}
			continue
		}

		var err error
		if m.Many {
			err = applyMany(ctx, &out, sid, m, raw, r)
		} else {
			err = applyOne(ctx, &out, sid, m, raw, r)
		}
		if err != nil {
			return Outcome{}, err
		}
	}
	return out, nil
}

func applyOne(ctx context.Context, out *Outcome, sid string, m Mapping, raw any, r IDResolver) error {
	ref, ok := raw.(string)
	if !ok {
		out.warn(sid, "relation %s expects a stableId string, got %T", m.SourceField, raw)
		if m.Required {
			out.Skip = true
		}
		return nil
	}

	id, found, err := r.ResolveIDByStableID(ctx, m.TargetCollection, ref)
	if err != nil {
		return err
	}
	if !found {
		if m.Required {
			out.warn(sid, "required relation %s: %s %q not found; record skipped", m.SourceField, m.TargetCollection, ref)
			out.Skip = true
		} else {
			out.warn(sid, "relation %s: %s %q not found", m.SourceField, m.TargetCollection, ref)
		}
		return nil
	}
	return setTarget(out, sid, m, id)
}

func applyMany(ctx context.Context, out *Outcome, sid string, m Mapping, raw any, r IDResolver) error {
	list, ok := raw.([]any)
	if !ok {
		out.warn(sid, "relation %s expects an array of stableIds, got %T", m.SourceField, raw)
		if m.Required {
			out.Skip = true
		}
		return nil
	}

	refs := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			out.warn(sid, "relation %s: ignoring non-string entry %v", m.SourceField, item)
			continue
		}
		refs = append(refs, s)
	}

	res, err := r.ResolveManyIDsByStableIDs(ctx, m.TargetCollection, refs)
	if err != nil {
		return err
	}
	if len(res.Missing) > 0 {
		missing := strings.Join(res.Missing, ", ")
		if m.Required {
			out.warn(sid, "required relation %s: %s not found: %s; record skipped", m.SourceField, m.TargetCollection, missing)
			out.Skip = true
			return nil
		}
		out.warn(sid, "relation %s: %s not found: %s", m.SourceField, m.TargetCollection, missing)
	}

	ids := make([]any, 0, len(res.IDs))
	for _, id := range res.IDs {
		ids = append(ids, id)
	}
	return setTarget(out, sid, m, ids)
}

func setTarget(out *Outcome, sid string, m Mapping, value any) error {
	if err := m.TargetField.Set(out.Record, value); err != nil {
		return fmt.Errorf("record %s: relation %s: %w", sid, m.SourceField, err)
	}
	return nil
}

func (o *Outcome) warn(sid, format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf("%s: ", sid)+fmt.Sprintf(format, args...))
}
