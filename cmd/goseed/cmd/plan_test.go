package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/relation"
)

func capturePlan(t *testing.T, kind string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	original := planKind
	planKind = kind
	defer func() { planKind = original }()

	err := runPlan(planCmd, nil)
	return buf.String(), err
}

func TestRunPlan_Demo(t *testing.T) {
	out, err := capturePlan(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Execution Plan: demo")
	assert.Contains(t, out, "[1] media")
	assert.Contains(t, out, "upload: file")
	assert.Contains(t, out, "cityStableId -> location.city (cities, required)")
	assert.Contains(t, out, "posts-relations: relatedPostsStableIds -> relatedPosts (self[], optional)")
	assert.Contains(t, out, "Dependency Order")
	assert.Contains(t, out, "  seed:   countries -> ")
	assert.Contains(t, out, "Reset Order (dependents first)")
	assert.Contains(t, out, "[1] favorite-clinics")
	assert.Contains(t, out, "✅ Step order satisfies every dependency")
	assert.NotContains(t, out, "Execution Plan: baseline")
}

func TestRunPlan_BothKinds(t *testing.T) {
	out, err := capturePlan(t, "")
	require.NoError(t, err)

	assert.Contains(t, out, "Execution Plan: baseline")
	assert.Contains(t, out, "[1] globals (globals)")
	assert.Contains(t, out, "parentStableId -> parent (self, optional)")
	assert.Contains(t, out, "Execution Plan: demo")
}

func TestRunPlan_UnknownKind(t *testing.T) {
	_, err := capturePlan(t, "staging")
	assert.Error(t, err)
}

func TestDescribeMappings(t *testing.T) {
	got := describeMappings("treatments", []relation.Mapping{
		{SourceField: "specialtyStableId", TargetField: relation.MustParsePath("specialty"), TargetCollection: "medical-specialties", Required: true},
		{SourceField: "tagStableIds", TargetField: relation.MustParsePath("tags"), TargetCollection: "tags", Many: true},
	})
	assert.Equal(t, "specialtyStableId -> specialty (medical-specialties, required); tagStableIds -> tags (tags[], optional)", got)
}

func TestPrintStep(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	p := plan.Baseline()
	countries, _ := p.Step("countries")
	printStep(2, countries)
	assert.Equal(t, "  [2] countries\n", buf.String())
}
