package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/ci"
	"github.com/quarklab/pixelci/internal/output"
)

var (
	runParallel int
	runDryRun   bool
	runLeg      int
	runNoRecord bool

	runCmd = &cobra.Command{
		Use:   "run <config.yml>",
		Short: "Validate, expand and execute a CI configuration",
		Long: `Run a CI configuration across its full environment/platform matrix.

Each build leg executes its init, install and test_script commands in
order. The first command exiting non-zero fails the leg; any failed leg
fails the run, and the process exit code propagates the failure.

Results are recorded in the pixelci database unless --no-record is set.`,
		Example: `  # Run the full matrix sequentially
  pixelci run appveyor.yml

  # Run up to two legs at a time
  pixelci run appveyor.yml --parallel 2

  # Show what would run without executing anything
  pixelci run appveyor.yml --dry-run

  # Run a single leg by index
  pixelci run appveyor.yml --leg 1`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().IntVar(&runParallel, "parallel", 1, "max build legs to run concurrently")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "expand and print commands without executing")
	runCmd.Flags().IntVar(&runLeg, "leg", -1, "run only the leg with this index")
	runCmd.Flags().BoolVar(&runNoRecord, "no-record", false, "skip recording the run in the database")
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	cfg, err := ci.ParseFile(configPath)
	if err != nil {
		return err
	}

	legs := ci.ExpandMatrix(cfg)
	if runLeg >= 0 {
		if runLeg >= len(legs) {
			return fmt.Errorf("leg %d does not exist (matrix has %d legs)", runLeg, len(legs))
		}
		legs = legs[runLeg : runLeg+1]
	}

	runner := &ci.Runner{
		Executor: ci.Executor{DryRun: runDryRun},
		Parallel: runParallel,
	}
	if runDryRun {
		runner.OnCommand = func(leg ci.Leg, step ci.Step, res ci.CommandResult) {
			fmt.Printf("[%s] %s: %s\n", leg.Name(), step, res.Expanded)
		}
	}

	result := runner.Run(cmd.Context(), cfg, legs)
	if !runDryRun {
		fmt.Print(output.RenderRunResult(result))
	}

	if !runDryRun && !runNoRecord {
		db, err := openStore()
		if err != nil {
			return err
		}
		if _, err := db.RecordRun(configPath, result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record run: %v\n", err)
		}
		db.Close()
	}

	if result.Failed() {
		// Propagate the leg exit code without cobra reporting an error.
		os.Exit(result.ExitCode())
	}
	return nil
}
