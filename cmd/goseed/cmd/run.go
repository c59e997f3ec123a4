package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/seeder"
)

var (
	runKind  string
	runReset bool
	runForce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Seed a fixture plan into the store",
	Long: `Run imports every fixture of a plan in its fixed order.

The run follows these steps:
  1. Load and validate every fixture of the plan
  2. Optionally reset the plan's collections (refused in production)
  3. Upsert each step's records, resolving relations by stableId
  4. Resolve deferred relations once every document exists
  5. Print the summary of created, updated, warned and failed records

Example:
  goseed run --config goseed.yaml --kind baseline
  goseed run --kind demo --reset --store memory`,
	RunE: runSeed,
}

func init() {
	runCmd.Flags().StringVarP(&runKind, "kind", "k", "",
		"Fixture kind to seed: baseline or demo (required)")
	runCmd.MarkFlagRequired("kind")

	runCmd.Flags().BoolVar(&runReset, "reset", false,
		"Delete the plan's collections before seeding")
	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Run even if the run lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(runCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnf("Received %s - stopping after the current record...", sig)
	})
	defer cancel()

	rt, err := openRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	orch, err := rt.orchestrator(runKind)
	if err != nil {
		return fmt.Errorf("failed to prepare %s run: %w", runKind, err)
	}

	var summary *seeder.RunSummary
	err = rt.withRunLock(ctx, lockKinds(runKind, runReset), runForce, func() error {
		runID, err := rt.startRun(ctx, runKind, runReset)
		if err != nil {
			return err
		}
		var runErr error
		summary, runErr = orch.Run(ctx, seeder.Options{Reset: runReset})
		rt.finishRun(runID, summary, runErr)
		return runErr
	})

	if summary != nil {
		printRunSummary(outputWriter, runKind, summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Seed run cancelled by user")
		}
		return fmt.Errorf("seed run failed: %w", err)
	}
	if !summary.OK() {
		return fmt.Errorf("seed run completed with %d failures", len(summary.Failures))
	}
	return nil
}

// startRun records a run in the run log when one is configured.
func (rt *seedRuntime) startRun(ctx context.Context, kind string, reset bool) (string, error) {
	if rt.runLog == nil {
		return "", nil
	}
	return rt.runLog.Start(ctx, kind, reset)
}

// finishRun records the outcome. The run context may be cancelled by now.
func (rt *seedRuntime) finishRun(runID string, summary *seeder.RunSummary, runErr error) {
	if rt.runLog == nil || runID == "" {
		return
	}
	ctx := context.Background()
	var err error
	if runErr != nil {
		err = rt.runLog.Fail(ctx, runID, summary, runErr)
	} else {
		err = rt.runLog.Complete(ctx, runID, summary)
	}
	if err != nil {
		rt.log.Warnf("Failed to update run log: %v", err)
	}
}
