package plan

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/goseed/internal/graph"
)

// OrderError lists every ordering problem found in a plan.
type OrderError struct {
	Kind     string
	Problems []string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("invalid %s plan:\n  - %s", e.Kind, strings.Join(e.Problems, "\n  - "))
}

// BuildGraph returns the collection dependency graph of p. Collections in
// available come first, in the given order.
func BuildGraph(p Plan, available ...string) *graph.Graph {
	g := graph.NewGraph()
	for _, c := range available {
		g.AddNode(c)
	}
	for _, s := range p.Steps {
		if s.Globals {
			continue
		}
		g.AddNode(s.Collection)
		for _, m := range s.Mappings {
			g.AddEdge(m.TargetCollection, s.Collection)
		}
	}
	return g
}

// Validate checks that p can run in its literal order: no dependency
// cycles, every mapping target is produced by an earlier step (or is
// available), and step names are unique.
func Validate(p Plan, available ...string) error {
	g := BuildGraph(p, available...)
	if err := g.Validate(); err != nil {
		return err
	}

	var problems []string

	sequence := append([]string(nil), available...)
	producer := make(map[string]Step)
	for _, s := range p.Steps {
		if s.Globals || s.Collection == "" {
			continue
		}
		if _, ok := producer[s.Collection]; !ok {
			producer[s.Collection] = s
			sequence = append(sequence, s.Collection)
		}
	}
	known := make(map[string]bool, len(sequence))
	for _, c := range sequence {
		known[c] = true
	}

	names := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("step %d has no name", i))
		} else if names[s.Name] {
			problems = append(problems, fmt.Sprintf("duplicate step name %q", s.Name))
		}
		names[s.Name] = true

		if s.Fixture == "" {
			problems = append(problems, fmt.Sprintf("step %q has no fixture", s.Name))
		}
		if s.Globals {
			if len(s.Mappings) > 0 || len(s.Deferred) > 0 {
				problems = append(problems, fmt.Sprintf("globals step %q cannot declare relations", s.Name))
			}
			continue
		}
		if s.Collection == "" {
			problems = append(problems, fmt.Sprintf("step %q has no collection", s.Name))
			continue
		}

		for _, m := range s.Mappings {
			if len(m.TargetField) == 0 {
				problems = append(problems, fmt.Sprintf("step %q: mapping %s has no target field", s.Name, m.SourceField))
			}
			if !known[m.TargetCollection] {
				problems = append(problems, fmt.Sprintf(
					"step %q depends on %q via %s, which no step produces", s.Name, m.TargetCollection, m.SourceField))
			}
		}
		for _, m := range s.Deferred {
			if !known[m.TargetCollection] {
				problems = append(problems, fmt.Sprintf(
					"step %q defers %s to %q, which no step produces", s.Name, m.SourceField, m.TargetCollection))
			}
		}
	}

	for _, v := range g.CheckOrder(sequence) {
		s := producer[v.Collection]
		problems = append(problems, fmt.Sprintf(
			"step %q runs before %q, which it depends on via %s", s.Name, v.DependsOn, sourceFieldFor(s, v.DependsOn)))
	}

	if len(problems) > 0 {
		return &OrderError{Kind: p.Kind, Problems: problems}
	}
	return nil
}

func sourceFieldFor(s Step, target string) string {
	var fields []string
	for _, m := range s.Mappings {
		if m.TargetCollection == target {
			fields = append(fields, m.SourceField)
		}
	}
	return strings.Join(fields, ", ")
}

// ValidateAll validates the baseline and demo plans.
func ValidateAll() error {
	if err := Validate(Baseline()); err != nil {
		return err
	}
	return Validate(Demo(), Available(Demo().Kind)...)
}
