package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/seeder"
)

var (
	statusKind  string
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent seed runs",
	Long: `Status lists the latest runs recorded in the seed_run table.
Only the mysql store keeps a run log.

Example:
  goseed status --kind demo --limit 5`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusKind, "kind", "k", "",
		"Only show runs of this kind")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10,
		"Number of runs to show")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	if rt.runLog == nil {
		return fmt.Errorf("run history is only kept by the mysql store")
	}
	runs, err := rt.runLog.Recent(ctx, statusKind, statusLimit)
	if err != nil {
		return err
	}
	printRuns(runs)
	return nil
}

func printRuns(runs []seeder.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(outputWriter, "No runs recorded")
		return
	}
	t := &table{headers: []string{"RUN", "KIND", "STATUS", "RESET", "CREATED", "UPDATED", "WARNINGS", "FAILURES", "STARTED", "FINISHED"}}
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		t.add(r.RunID, r.Kind, string(r.Status), strconv.FormatBool(r.Reset),
			strconv.Itoa(r.Created), strconv.Itoa(r.Updated),
			strconv.Itoa(r.Warnings), strconv.Itoa(r.Failures),
			r.StartedAt.Format("2006-01-02 15:04:05"), finished)
	}
	t.render(outputWriter)
	for _, r := range runs {
		if r.ErrorMessage != "" {
			fmt.Fprintf(outputWriter, "\n%s: %s", r.RunID, r.ErrorMessage)
		}
	}
	fmt.Fprintln(outputWriter)
}
