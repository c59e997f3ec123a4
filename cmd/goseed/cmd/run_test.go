package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gookit/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/seeder"
)

func init() {
	color.Disable()
}

const memoryConfig = `
environment: development
store:
  driver: memory
objects:
  bucket: media
  root: /objects
fixtures:
  dir: /seed
  media_dir: /seed/media
globals:
  - site-settings
logging:
  level: error
  format: json
  output: stderr
`

// setupMemoryRun points the CLI at an in-memory store and a MemMapFs
// holding the given baseline fixtures.
func setupMemoryRun(t *testing.T, fixtures map[string]string) *bytes.Buffer {
	t.Helper()
	t.Setenv("SEED_ENV", "")
	t.Setenv("APP_ENV", "")

	path := filepath.Join(t.TempDir(), "goseed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryConfig), 0o644))

	fs := afero.NewMemMapFs()
	loader := fixture.NewLoader(fs, "/seed", "/seed/media")
	for _, s := range plan.Baseline().Steps {
		body, ok := fixtures[s.Fixture]
		if !ok {
			body = "[]"
		}
		require.NoError(t, afero.WriteFile(fs, loader.Path(fixture.KindBaseline, s.Fixture), []byte(body), 0o644))
	}

	origFs, origCfg, origKind, origReset := appFs, cfgFile, runKind, runReset
	appFs, cfgFile, runKind, runReset = fs, path, fixture.KindBaseline, false
	var buf bytes.Buffer
	setOutputWriter(&buf)
	t.Cleanup(func() {
		appFs, cfgFile, runKind, runReset = origFs, origCfg, origKind, origReset
		resetOutputWriter()
	})
	return &buf
}

func TestRunSeed_MemoryStore(t *testing.T) {
	out := setupMemoryRun(t, map[string]string{
		"globals":   `[{"stableId":"site-settings","title":"Clinics"}]`,
		"countries": `[{"stableId":"tr"}]`,
		"cities":    `[{"stableId":"ist","countryStableId":"tr"},{"stableId":"atl","countryStableId":"nowhere"}]`,
	})

	require.NoError(t, runSeed(runCmd, nil))

	text := out.String()
	assert.Contains(t, text, "=== Seed Summary: baseline ===")
	assert.Contains(t, text, "UNIT")
	assert.Contains(t, text, "Total: 2 created, 1 updated, 1 warnings, 0 failures")
	assert.Contains(t, text, "[cities] atl:")
}

func TestRunSeed_FailuresReturnError(t *testing.T) {
	setupMemoryRun(t, map[string]string{
		"globals": `[{"stableId":"not-registered"}]`,
	})

	err := runSeed(runCmd, nil)
	assert.EqualError(t, err, "seed run completed with 1 failures")
}

func TestRunSeed_MalformedFixture(t *testing.T) {
	out := setupMemoryRun(t, map[string]string{
		"tags": `{"stableId":"t1"}`,
	})

	err := runSeed(runCmd, nil)
	assert.ErrorIs(t, err, fixture.ErrMalformedFixture)
	assert.NotContains(t, out.String(), "Seed Summary")
}

func TestRunReset_RefusedInProduction(t *testing.T) {
	setupMemoryRun(t, nil)
	t.Setenv("SEED_ENV", "production")

	origKind := resetKind
	resetKind = fixture.KindDemo
	defer func() { resetKind = origKind }()

	err := runResetCmd(resetCmd, nil)
	assert.ErrorIs(t, err, seeder.ErrProductionReset)
}

func TestRunReset_EnvFlagCannotLeaveProduction(t *testing.T) {
	setupMemoryRun(t, nil)
	t.Setenv("SEED_ENV", "production")

	origKind, origEnv := resetKind, environment
	resetKind = fixture.KindDemo
	environment = "development"
	defer func() { resetKind, environment = origKind, origEnv }()

	err := runResetCmd(resetCmd, nil)
	assert.ErrorIs(t, err, seeder.ErrProductionReset)
}

func TestRunValidate_MemoryStore(t *testing.T) {
	out := setupMemoryRun(t, nil)

	err := runValidate(validateCmd, nil)
	assert.Error(t, err, "demo fixtures are missing")
	assert.Contains(t, out.String(), "✅ Plan order")
	assert.Contains(t, out.String(), "✅ countries: 0 records")
	assert.Contains(t, out.String(), "❌ media:")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	s := &seeder.RunSummary{
		Units: []*seeder.UnitSummary{
			{Name: "countries", Created: 2, Warnings: []string{}, Failures: []string{}},
			{Name: "medical-specialties", Updated: 12, Warnings: []string{"x"}, Failures: []string{"y"}},
		},
		Warnings: []string{"[medical-specialties] x"},
		Failures: []string{"[medical-specialties] y"},
	}

	printRunSummary(&buf, "baseline", s)
	lines := bytes.Split(buf.Bytes(), []byte("\n"))

	var header, row []byte
	for i, l := range lines {
		if bytes.Contains(l, []byte("UNIT")) {
			header, row = l, lines[i+2]
		}
	}
	require.NotNil(t, header)
	assert.Equal(t, bytes.Index(header, []byte("CREATED")), bytes.Index(row, []byte("2")), "columns align")
	assert.Contains(t, buf.String(), "Failures:\n  - [medical-specialties] y")
}

func TestLockKinds(t *testing.T) {
	tests := []struct {
		kind  string
		reset bool
		want  []string
	}{
		{fixture.KindBaseline, false, []string{fixture.KindBaseline}},
		{fixture.KindBaseline, true, []string{fixture.KindBaseline, fixture.KindDemo}},
		{fixture.KindDemo, true, []string{fixture.KindDemo}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lockKinds(tt.kind, tt.reset), "%s reset=%v", tt.kind, tt.reset)
	}
}
