package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/seeder"
)

var (
	exportKind   string
	exportStep   string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write live documents of a step back to its fixture",
	Long: `Export reads the documents of one plan step and writes them as a portable
fixture: native relation ids become stableIds again and store bookkeeping
fields are dropped.

Example:
  goseed export --kind baseline --step cities
  goseed export --kind demo --step clinics --stdout`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportKind, "kind", "k", "",
		"Fixture kind: baseline or demo (required)")
	exportCmd.MarkFlagRequired("kind")
	exportCmd.Flags().StringVarP(&exportStep, "step", "s", "",
		"Plan step to export (required)")
	exportCmd.MarkFlagRequired("step")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false,
		"Print the fixture instead of overwriting the fixture file")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	exporter, err := seeder.NewExporter(rt.backend, log)
	if err != nil {
		return err
	}
	out, err := exporter.Export(ctx, exportKind, exportStep)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	for _, w := range out.Warnings {
		log.Warn(w)
	}

	if exportStdout {
		data, err := json.MarshalIndent(out.Records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode fixture: %w", err)
		}
		fmt.Fprintln(outputWriter, string(data))
		return nil
	}

	p, _ := plan.ForKind(exportKind)
	s, _ := p.Step(exportStep)
	if err := rt.loader.Write(exportKind, s.Fixture, out.Records); err != nil {
		return err
	}
	fmt.Fprintf(outputWriter, "Exported %d records to %s (%d warnings)\n",
		len(out.Records), rt.loader.Path(exportKind, s.Fixture), len(out.Warnings))
	return nil
}
