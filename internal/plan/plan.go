// Package plan holds the static seed plans: ordered import steps with the
// relation mappings that tie fixtures together.
package plan

import (
	"fmt"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/relation"
)

// Step is one import step. A globals step has no collection and writes
// singleton documents keyed by stableId.
type Step struct {
	Name       string
	Collection string
	Fixture    string
	Mappings   []relation.Mapping
	// Deferred mappings are resolved after every step of the run finished.
	Deferred []relation.Mapping
	// FileField names the fixture field holding an upload source filename.
	FileField string
	Globals   bool
}

// DeferredUnit is the summary unit name of the deferred pass for the step.
func (s Step) DeferredUnit() string {
	return s.Name + "-relations"
}

// Plan is an ordered list of steps for one fixture kind.
type Plan struct {
	Kind  string
	Steps []Step
}

// ForKind returns the plan for kind.
func ForKind(kind string) (Plan, error) {
	switch kind {
	case fixture.KindBaseline:
		return Baseline(), nil
	case fixture.KindDemo:
		return Demo(), nil
	default:
		return Plan{}, fmt.Errorf("unknown seed kind %q (want %q or %q)", kind, fixture.KindBaseline, fixture.KindDemo)
	}
}

// Collections returns the collections of the collection steps in order.
func (p Plan) Collections() []string {
	var out []string
	for _, s := range p.Steps {
		if !s.Globals && s.Collection != "" {
			out = append(out, s.Collection)
		}
	}
	return out
}

// Step returns the step named name.
func (p Plan) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// HasDeferred reports whether any step declares deferred mappings.
func (p Plan) HasDeferred() bool {
	for _, s := range p.Steps {
		if len(s.Deferred) > 0 {
			return true
		}
	}
	return false
}

// Available returns the collections a plan may reference without producing
// them. Demo data builds on baseline data.
func Available(kind string) []string {
	if kind == fixture.KindDemo {
		return Baseline().Collections()
	}
	return nil
}

// ResetCollections returns the collections reset(kind) clears, dependents
// first. Resetting baseline also clears demo data, which points into it.
func ResetCollections(kind string) ([]string, error) {
	switch kind {
	case fixture.KindDemo:
		return reversed(Demo().Collections()), nil
	case fixture.KindBaseline:
		return append(reversed(Demo().Collections()), reversed(Baseline().Collections())...), nil
	default:
		return nil, fmt.Errorf("unknown seed kind %q (want %q or %q)", kind, fixture.KindBaseline, fixture.KindDemo)
	}
}

// ResetKinds returns the kinds whose collections reset(kind) clears.
func ResetKinds(kind string) []string {
	if kind == fixture.KindBaseline {
		return []string{fixture.KindBaseline, fixture.KindDemo}
	}
	return []string{kind}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func one(source, target, collection string, required bool) relation.Mapping {
	return relation.Mapping{
		SourceField:      source,
		TargetField:      relation.MustParsePath(target),
		TargetCollection: collection,
		Required:         required,
	}
}

func many(source, target, collection string, required bool) relation.Mapping {
	m := one(source, target, collection, required)
	m.Many = true
	return m
}
