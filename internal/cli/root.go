package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	workdirFlag string
	outputJSON  bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackhouse",
		Short: "Provision and run a local analytics pipeline",
		Long: "stackhouse provisions a fixed set of external binaries (clickhouse,\n" +
			"s3fs, agt) and runs them together as a supervised local pipeline:\n" +
			"an S3-protocol file server fronting a project's data directory, with\n" +
			"a ClickHouse server attached to it.",
	}

	cmd.PersistentFlags().StringVar(&workdirFlag, "workdir", "", "Working directory (default $STACKHOUSE_HOME or ~/.stackhouse)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSystemCmd())
	cmd.AddCommand(newBinariesCmd())
	cmd.AddCommand(newPipelineCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newCleanCmd())

	return cmd
}
