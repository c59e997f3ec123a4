package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/relation"
)

var planKind string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the execution plan for a fixture kind",
	Long: `Plan displays the fixed step order of a plan and what each step needs.

The plan shows:
  - Steps in execution order with their relation dependencies
  - Deferred relation passes
  - Collection order derived from the dependency graph
  - Reset order (dependents first)
  - Whether the order satisfies every dependency

Example:
  goseed plan --kind demo`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planKind, "kind", "k", "",
		"Fixture kind: baseline or demo (default: both)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	kinds := []string{fixture.KindBaseline, fixture.KindDemo}
	if planKind != "" {
		kinds = []string{planKind}
	}

	var invalid []string
	for i, kind := range kinds {
		if i > 0 {
			fmt.Fprintln(outputWriter)
		}
		ok, err := printPlan(kind)
		if err != nil {
			return err
		}
		if !ok {
			invalid = append(invalid, kind)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid plan order: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// printPlan prints one plan and reports whether its order is valid.
func printPlan(kind string) (bool, error) {
	p, err := plan.ForKind(kind)
	if err != nil {
		return false, err
	}
	resetOrder, err := plan.ResetCollections(kind)
	if err != nil {
		return false, err
	}

	printHeader("Execution Plan: %s", kind)
	fmt.Fprintln(outputWriter)

	printSection("Steps")
	for i, s := range p.Steps {
		printStep(i+1, s)
	}

	if p.HasDeferred() {
		fmt.Fprintln(outputWriter)
		printSection("Deferred Passes")
		for _, s := range p.Steps {
			if len(s.Deferred) == 0 {
				continue
			}
			fmt.Fprintf(outputWriter, "  %s: %s\n", s.DeferredUnit(), describeMappings(s.Collection, s.Deferred))
		}
	}

	g := plan.BuildGraph(p, plan.Available(kind)...)
	seedOrder, err := g.SeedOrder()
	if err != nil {
		fmt.Fprintln(outputWriter)
		fmt.Fprintf(outputWriter, "❌ %v\n", err)
		return false, nil
	}
	deleteOrder, err := g.DeleteOrder()
	if err != nil {
		return false, err
	}

	fmt.Fprintln(outputWriter)
	printSection("Dependency Order")
	fmt.Fprintf(outputWriter, "  seed:   %s\n", strings.Join(seedOrder, " -> "))
	fmt.Fprintf(outputWriter, "  delete: %s\n", strings.Join(deleteOrder, " -> "))

	fmt.Fprintln(outputWriter)
	printSection("Reset Order (dependents first)")
	for i, c := range resetOrder {
		fmt.Fprintf(outputWriter, "  [%d] %s\n", i+1, c)
	}

	fmt.Fprintln(outputWriter)
	if err := plan.Validate(p, plan.Available(kind)...); err != nil {
		fmt.Fprintf(outputWriter, "❌ %v\n", err)
		return false, nil
	}
	fmt.Fprintln(outputWriter, "✅ Step order satisfies every dependency")
	return true, nil
}

func printStep(num int, s plan.Step) {
	numStr := fmt.Sprintf("[%d]", num)
	switch {
	case s.Globals:
		fmt.Fprintf(outputWriter, "  %s %s (globals)\n", numStr, s.Name)
	case len(s.Mappings) == 0:
		fmt.Fprintf(outputWriter, "  %s %s\n", numStr, s.Name)
	default:
		fmt.Fprintf(outputWriter, "  %s %s | %s\n", numStr, s.Name, describeMappings(s.Collection, s.Mappings))
	}
	if s.FileField != "" {
		fmt.Fprintf(outputWriter, "      upload: %s\n", s.FileField)
	}
}

func describeMappings(collection string, mappings []relation.Mapping) string {
	parts := make([]string, 0, len(mappings))
	for _, m := range mappings {
		target := m.TargetCollection
		if target == collection {
			target = "self"
		}
		if m.Many {
			target += "[]"
		}
		mode := "optional"
		if m.Required {
			mode = "required"
		}
		parts = append(parts, fmt.Sprintf("%s -> %s (%s, %s)", m.SourceField, m.TargetField, target, mode))
	}
	return strings.Join(parts, "; ")
}
