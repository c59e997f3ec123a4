package cmd

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/fixture"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display detailed version information including build details.`,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	cmd.Printf("goseed version %s\n", Version)
	cmd.Printf("  Commit: %s\n", Commit)
	cmd.Printf("  Go version: %s\n", runtime.Version())
	cmd.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	cmd.Printf("  Fixture kinds: %s\n", strings.Join([]string{fixture.KindBaseline, fixture.KindDemo}, ", "))
}
