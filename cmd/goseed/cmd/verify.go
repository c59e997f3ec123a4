package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/seeder"
)

var verifyKind string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every fixture record exists in the store",
	Long: `Verify resolves every fixture stableId of a plan against the store and
lists the ones without a live document. Records skipped by a run because a
required relation was missing show up here.

Example:
  goseed verify --kind baseline`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyKind, "kind", "k", "",
		"Fixture kind to verify: baseline or demo (required)")
	verifyCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	rt, err := openRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	v, err := seeder.NewVerifier(rt.backend, rt.loader, seeder.MethodCount, log)
	if err != nil {
		return err
	}
	stats, verifyErr := v.Verify(ctx, verifyKind)
	if stats != nil {
		printVerifyStats(stats)
	}
	return verifyErr
}

func printVerifyStats(stats *seeder.VerifyStats) {
	printSection("Verification")
	t := &table{headers: []string{"STEP", "EXPECTED", "FOUND", "IN STORE", "MISSING"}}
	for _, r := range stats.Results {
		inStore := "-"
		if r.StoreCount >= 0 {
			inStore = strconv.FormatInt(r.StoreCount, 10)
		}
		t.add(r.Step, strconv.Itoa(r.Expected), strconv.Itoa(r.Found), inStore, strings.Join(r.Missing, ", "))
	}
	t.render(outputWriter)
	fmt.Fprintf(outputWriter, "\n%d steps verified, %d passed, %d failed\n",
		stats.StepsVerified, stats.StepsPassed, stats.StepsFailed)
}
