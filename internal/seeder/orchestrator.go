// Package seeder imports fixture plans into a document store: idempotent
// upserts, resets, deferred relation passes and run summaries.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/relation"
	"github.com/dbsmedya/goseed/internal/resolver"
	"github.com/dbsmedya/goseed/internal/store"
)

// Options control a single run.
type Options struct {
	Reset bool
}

// Orchestrator executes one plan against a backend.
type Orchestrator struct {
	kind    string
	plan    plan.Plan
	backend store.Backend
	loader  *fixture.Loader
	upsert  *UpsertEngine
	reset   *ResetEngine
	logger  *logger.Logger
}

// NewOrchestrator validates the plan for kind and wires the engines. reset
// may be nil when the caller never resets.
func NewOrchestrator(kind string, backend store.Backend, loader *fixture.Loader, upsert *UpsertEngine, reset *ResetEngine, log *logger.Logger) (*Orchestrator, error) {
	if backend == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("fixture loader is nil")
	}
	if upsert == nil {
		return nil, fmt.Errorf("upsert engine is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	p, err := plan.ForKind(kind)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(p, plan.Available(kind)...); err != nil {
		return nil, fmt.Errorf("plan validation failed: %w", err)
	}

	return &Orchestrator{
		kind:    kind,
		plan:    p,
		backend: backend,
		loader:  loader,
		upsert:  upsert,
		reset:   reset,
		logger:  log.WithRun(kind),
	}, nil
}

// Plan returns the plan being executed.
func (o *Orchestrator) Plan() plan.Plan {
	return o.plan
}

// Preload reads and validates every fixture of the plan. Any error is
// fatal and nothing has been written yet.
func (o *Orchestrator) Preload() (map[string][]*fixture.Record, error) {
	fixtures := make(map[string][]*fixture.Record, len(o.plan.Steps))
	for _, s := range o.plan.Steps {
		records, err := o.loader.Load(o.kind, s.Fixture)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		fixtures[s.Name] = records
	}
	return fixtures, nil
}

// Run executes the plan. The returned error is non-nil only for fatal
// conditions; per-record problems are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	start := time.Now()
	o.logger.Infow("Starting seed run", "steps", len(o.plan.Steps), "reset", opts.Reset)

	fixtures, err := o.Preload()
	if err != nil {
		return nil, err
	}

	if opts.Reset {
		if o.reset == nil {
			return nil, fmt.Errorf("reset requested but no reset engine configured")
		}
		if _, err := o.reset.Reset(ctx, o.kind); err != nil {
			return nil, err
		}
	}

	res := resolver.New(o.backend)
	summary := newRunSummary()

	for _, s := range o.plan.Steps {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted before step %s: %w", s.Name, err)
		}

		var unit *UnitSummary
		if s.Globals {
			unit, err = o.runGlobals(ctx, s, fixtures[s.Name])
		} else {
			unit, err = o.runStep(ctx, s, fixtures[s.Name], res)
		}
		if unit != nil {
			summary.add(unit)
		}
		if err != nil {
			return summary, err
		}
	}

	for _, s := range o.plan.Steps {
		if len(s.Deferred) == 0 {
			continue
		}
		unit, err := o.runDeferred(ctx, s, fixtures[s.Name], res)
		summary.add(unit)
		if err != nil {
			return summary, err
		}
	}

	created, updated := summary.Totals()
	o.logger.Infow("Seed run completed",
		"duration", time.Since(start),
		"created", created,
		"updated", updated,
		"warnings", len(summary.Warnings),
		"failures", len(summary.Failures),
		"resolver_queries", res.Queries(),
	)
	return summary, nil
}

func (o *Orchestrator) runStep(ctx context.Context, s plan.Step, records []*fixture.Record, res *resolver.Resolver) (*UnitSummary, error) {
	log := o.logger.WithStep(s.Name).WithCollection(s.Collection)
	unit := newUnit(s.Name)
	log.Infof("Seeding %d records", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return unit, fmt.Errorf("run interrupted in step %s: %w", s.Name, err)
		}
		if err := o.seedRecord(ctx, s, rec, res, unit, log); err != nil {
			return unit, err
		}
	}

	log.Infow("Step finished",
		"created", unit.Created,
		"updated", unit.Updated,
		"warnings", len(unit.Warnings),
		"failures", len(unit.Failures),
	)
	return unit, nil
}

func (o *Orchestrator) seedRecord(ctx context.Context, s plan.Step, rec *fixture.Record, res *resolver.Resolver, unit *UnitSummary, log *logger.Logger) error {
	sid := rec.StableID()

	out, err := relation.Apply(ctx, rec, s.Mappings, res)
	if err != nil {
		unit.fail("%s: %v", sid, err)
		log.Errorw("Relation mapping failed", "stable_id", sid, "error", err)
		return nil
	}
	for _, w := range out.Warnings {
		unit.warn(w)
		log.Warn(w)
	}
	if out.Skip {
		return nil
	}

	draft := out.Record
	for _, m := range s.Deferred {
		draft.Delete(m.SourceField)
	}

	var file *store.File
	if s.FileField != "" {
		name, _ := draft.Get(s.FileField)
		draft.Delete(s.FileField)
		if filename, ok := name.(string); ok && filename != "" {
			file, err = o.loader.ReadMedia(filename)
			if err != nil {
				unit.fail("%s: %v", sid, err)
				log.Errorw("Upload source unreadable", "stable_id", sid, "error", err)
				return nil
			}
		}
	}

	result, err := o.upsert.Upsert(ctx, s.Collection, draft.Document(), file)
	if errors.Is(err, ErrMissingStableID) {
		return err
	}
	if err != nil {
		unit.fail("%s: %v", sid, err)
		log.Errorw("Upsert failed", "stable_id", sid, "error", err)
		return nil
	}
	unit.record(result)
	res.Remember(s.Collection, sid, result.ID)
	return nil
}

func (o *Orchestrator) runGlobals(ctx context.Context, s plan.Step, records []*fixture.Record) (*UnitSummary, error) {
	log := o.logger.WithStep(s.Name)
	unit := newUnit(s.Name)

	registered := make(map[string]bool)
	for _, slug := range o.backend.GlobalSlugs() {
		registered[slug] = true
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return unit, fmt.Errorf("run interrupted in step %s: %w", s.Name, err)
		}
		slug := rec.StableID()
		if !registered[slug] {
			unit.fail("%s: global is not registered", slug)
			log.Errorw("Unknown global", "slug", slug)
			continue
		}

		data := rec.Document()
		delete(data, store.FieldStableID)
		if _, err := o.backend.UpdateGlobal(ctx, slug, data, store.SeedWrite()); err != nil {
			unit.fail("%s: %v", slug, err)
			log.Errorw("Global update failed", "slug", slug, "error", err)
			continue
		}
		unit.Updated++
	}

	log.Infow("Step finished", "updated", unit.Updated, "failures", len(unit.Failures))
	return unit, nil
}

// runDeferred resolves a step's deferred mappings now that every document
// of the run exists. Self references are dropped and records without any
// deferred field are left alone.
func (o *Orchestrator) runDeferred(ctx context.Context, s plan.Step, records []*fixture.Record, res *resolver.Resolver) (*UnitSummary, error) {
	log := o.logger.WithStep(s.DeferredUnit()).WithCollection(s.Collection)
	unit := newUnit(s.DeferredUnit())

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return unit, fmt.Errorf("run interrupted in %s: %w", unit.Name, err)
		}
		sid := rec.StableID()

		draft, hasFields := deferredDraft(rec, s.Deferred)
		if !hasFields {
			continue
		}

		id, ok, err := res.ResolveIDByStableID(ctx, s.Collection, sid)
		if err != nil {
			unit.fail("%s: %v", sid, err)
			continue
		}
		if !ok {
			unit.warn(fmt.Sprintf("%s: not seeded; deferred relations skipped", sid))
			continue
		}

		out, err := relation.Apply(ctx, draft, s.Deferred, res)
		if err != nil {
			unit.fail("%s: %v", sid, err)
			continue
		}
		for _, w := range out.Warnings {
			unit.warn(w)
			log.Warn(w)
		}
		if out.Skip {
			continue
		}

		data := out.Record.Document()
		delete(data, store.FieldStableID)
		if _, err := o.backend.Update(ctx, s.Collection, id, data, store.SeedWrite()); err != nil {
			unit.fail("%s: %v", sid, err)
			log.Errorw("Deferred update failed", "stable_id", sid, "error", err)
			continue
		}
		unit.Updated++
	}

	log.Infow("Deferred pass finished", "updated", unit.Updated, "warnings", len(unit.Warnings))
	return unit, nil
}

// deferredDraft copies the deferred source fields of rec with self
// references removed. ok is false when rec carries none of them.
func deferredDraft(rec *fixture.Record, mappings []relation.Mapping) (draft *fixture.Record, ok bool) {
	sid := rec.StableID()
	draft = fixture.RecordOf(store.FieldStableID, sid)

	for _, m := range mappings {
		raw, present := rec.Get(m.SourceField)
		if !present || raw == nil || raw == any(sid) {
			continue
		}
		ok = true
		if list, isList := raw.([]any); isList {
			kept := make([]any, 0, len(list))
			for _, ref := range list {
				if ref != any(sid) {
					kept = append(kept, ref)
				}
			}
			raw = kept
		}
		draft.Set(m.SourceField, raw)
	}
	return draft, ok
}
