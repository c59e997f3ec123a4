package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, plans and fixtures",
	Long: `Validate checks everything a run depends on without writing anything.

Checks performed:
  - Configuration syntax and required fields
  - Plan step order against relation dependencies
  - Every fixture file of both plans (present, array of objects, unique stableIds)
  - Store connectivity (mysql driver only)

Example:
  goseed validate --config goseed.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", configFile)
	fmt.Fprintf(outputWriter, "Environment: %s\n", cfg.Environment)
	fmt.Fprintf(outputWriter, "Store: %s\n\n", cfg.Store.Driver)

	hasErrors := false
	if err := plan.ValidateAll(); err != nil {
		fmt.Fprintf(outputWriter, "❌ Plan order: %v\n", err)
		hasErrors = true
	} else {
		fmt.Fprintln(outputWriter, "✅ Plan order")
	}

	loader := fixture.NewLoader(appFs, cfg.Fixtures.Dir, cfg.Fixtures.MediaDir)
	for _, kind := range []string{fixture.KindBaseline, fixture.KindDemo} {
		if !validateFixtures(loader, kind) {
			hasErrors = true
		}
	}

	if cfg.Store.Driver == config.DriverMySQL {
		ctx := context.Background()
		db := database.NewManager(&cfg.Store.Database)
		if err := db.Connect(ctx); err != nil {
			fmt.Fprintf(outputWriter, "❌ Store connection: %v\n", err)
			hasErrors = true
		} else {
			if err := db.Ping(ctx); err != nil {
				fmt.Fprintf(outputWriter, "❌ Store connection: %v\n", err)
				hasErrors = true
			} else {
				fmt.Fprintln(outputWriter, "✅ Store connection")
			}
			_ = db.Close()
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintln(outputWriter, "\n=== Validation Complete ===")
	return nil
}

// validateFixtures loads every fixture of kind and prints one line per step.
func validateFixtures(loader *fixture.Loader, kind string) bool {
	p, err := plan.ForKind(kind)
	if err != nil {
		fmt.Fprintf(outputWriter, "❌ %v\n", err)
		return false
	}

	ok := true
	fmt.Fprintf(outputWriter, "\n--- Fixtures: %s ---\n", kind)
	for _, s := range p.Steps {
		records, err := loader.Load(kind, s.Fixture)
		if err != nil {
			fmt.Fprintf(outputWriter, "❌ %s: %v\n", s.Name, err)
			ok = false
			continue
		}
		fmt.Fprintf(outputWriter, "✅ %s: %d records\n", s.Name, len(records))
	}
	return ok
}
