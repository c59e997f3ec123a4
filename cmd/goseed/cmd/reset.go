package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/seeder"
)

var (
	resetKind  string
	resetForce bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every document a plan owns",
	Long: `Reset empties the collections of a plan, dependents first. Resetting
baseline also clears demo collections, which reference baseline data.

Reset is refused when the environment is production.

Example:
  goseed reset --config goseed.yaml --kind demo`,
	RunE: runResetCmd,
}

func init() {
	resetCmd.Flags().StringVarP(&resetKind, "kind", "k", "",
		"Fixture kind to reset: baseline or demo (required)")
	resetCmd.MarkFlagRequired("kind")

	resetCmd.Flags().BoolVar(&resetForce, "force", false,
		"Reset even if the run lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(resetCmd)
}

func runResetCmd(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.IsProduction() {
		return seeder.ErrProductionReset
	}

	ctx, cancel := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnf("Received %s - stopping reset...", sig)
	})
	defer cancel()

	rt, err := openRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	engine, err := rt.resetEngine()
	if err != nil {
		return err
	}

	var stats *seeder.ResetStats
	err = rt.withRunLock(ctx, lockKinds(resetKind, true), resetForce, func() error {
		var resetErr error
		stats, resetErr = engine.Reset(ctx, resetKind)
		return resetErr
	})
	if stats != nil {
		printResetStats(stats)
	}
	if err != nil {
		if errors.Is(err, seeder.ErrResetStalled) {
			log.Error("Reset stopped making progress; check store delete permissions")
		}
		return fmt.Errorf("reset failed: %w", err)
	}
	return nil
}

func printResetStats(stats *seeder.ResetStats) {
	fmt.Fprintln(outputWriter)
	printSection("Reset")
	t := &table{headers: []string{"COLLECTION", "DELETED"}}
	total := 0
	for _, c := range stats.Collections {
		n, ok := stats.Deleted[c]
		if !ok {
			continue
		}
		total += n
		t.add(c, strconv.Itoa(n))
	}
	t.render(outputWriter)
	fmt.Fprintf(outputWriter, "\nDeleted %d documents in %s\n", total, stats.Duration)
}
