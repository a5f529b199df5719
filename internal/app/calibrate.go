package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/analysis"
	"github.com/quarklab/pixelci/internal/config"
	"github.com/quarklab/pixelci/internal/interpreter"
	"github.com/quarklab/pixelci/internal/output"
	"github.com/quarklab/pixelci/internal/rawfile"
	"github.com/quarklab/pixelci/internal/store"
)

var (
	calibratePlan     string
	calibrateDACStart int
	calibrateDACStep  int
	calibrateFitLow   int
	calibrateFitHigh  int
	calibrateNoRecord bool

	calibrateCmd = &cobra.Command{
		Use:   "calibrate [step0.raw step1.raw ...]",
		Short: "Fit a PlsrDAC-to-ToT calibration from scan step files",
		Long: `Fit a linear PlsrDAC calibration from one raw data file per scan
step. The n-th file holds the hits taken at PlsrDAC value
dac-start + n*dac-step; alternatively a YAML scan plan names each step's
DAC value and file. Each step is reduced to a mean/std ToT response
point and a line is fit over the configured DAC range.

The fit is stored in the database together with its per-step points.`,
		Example: `  # Steps at PlsrDAC 50, 100, 150, ...
  pixelci calibrate --dac-start 50 --dac-step 50 step_*.raw

  # Restrict the fit to the linear region
  pixelci calibrate --dac-start 50 --dac-step 50 --fit-low 100 --fit-high 600 step_*.raw

  # Steps from a scan plan
  pixelci calibrate --plan scan.yml`,
		Args: cobra.ArbitraryArgs,
		RunE: runCalibrate,
	}
)

func init() {
	calibrateCmd.Flags().StringVar(&calibratePlan, "plan", "", "YAML scan plan naming each step's DAC value and file")
	calibrateCmd.Flags().IntVar(&calibrateDACStart, "dac-start", 50, "PlsrDAC value of the first step file")
	calibrateCmd.Flags().IntVar(&calibrateDACStep, "dac-step", 50, "PlsrDAC increment between step files")
	calibrateCmd.Flags().IntVar(&calibrateFitLow, "fit-low", 0, "lower DAC bound of the fit range (default from config)")
	calibrateCmd.Flags().IntVar(&calibrateFitHigh, "fit-high", 0, "upper DAC bound of the fit range (default from config)")
	calibrateCmd.Flags().BoolVar(&calibrateNoRecord, "no-record", false, "skip recording the calibration in the database")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd, &configPathFlag)
	if err != nil {
		return err
	}
	steps, files, err := calibrationSteps(args)
	if err != nil {
		return err
	}

	fitLow := cfg.Calibration.FitLow
	if cmd.Flags().Changed("fit-low") {
		fitLow = calibrateFitLow
	}
	fitHigh := cfg.Calibration.FitHigh
	if cmd.Flags().Changed("fit-high") {
		fitHigh = calibrateFitHigh
	}

	progress := output.NewProgress(len(files), "Interpreting scan steps")
	hitsPerStep := make([][]interpreter.Hit, len(files))
	for i, path := range files {
		hits, err := interpretPath(path, cfg.Interpreter.TriggerCount)
		if err != nil {
			return err
		}
		hitsPerStep[i] = hits
		progress.Increment()
	}
	progress.Finish()

	points, err := analysis.CalibrationPoints(steps, hitsPerStep)
	if err != nil {
		return err
	}
	fit, err := analysis.FitPlsrDAC(points, fitLow, fitHigh)
	if err != nil {
		return err
	}

	result := &store.CalibrationResult{
		CreatedAt: time.Now(),
		Slope:     fit.Slope,
		Intercept: fit.Intercept,
		RSquared:  fit.RSquared,
		FitLow:    fit.FitLow,
		FitHigh:   fit.FitHigh,
	}
	storePoints := make([]store.CalibrationPoint, len(points))
	for i, p := range points {
		storePoints[i] = store.CalibrationPoint{
			PlsrDAC:  p.PlsrDAC,
			MeanTot:  p.MeanTot,
			StdTot:   p.StdTot,
			HitCount: p.HitCount,
		}
	}

	if !calibrateNoRecord {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.InsertCalibration(result, storePoints)
		if err != nil {
			return fmt.Errorf("failed to record calibration: %w", err)
		}
		result.ID = id
	}

	fmt.Print(output.RenderCalibration(result, storePoints))
	return nil
}

// calibrationSteps resolves the DAC value and file of each scan step, from
// the plan file when given and from the positional files plus the
// dac-start/dac-step flags otherwise.
func calibrationSteps(args []string) ([]int, []string, error) {
	if calibratePlan != "" {
		if len(args) > 0 {
			return nil, nil, fmt.Errorf("--plan and positional step files are mutually exclusive")
		}
		plan, err := analysis.LoadPlan(calibratePlan)
		if err != nil {
			return nil, nil, err
		}
		steps := make([]int, len(plan.Steps))
		files := make([]string, len(plan.Steps))
		for i, step := range plan.Steps {
			steps[i] = step.DAC
			files[i] = step.File
		}
		return steps, files, nil
	}

	if len(args) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 step files (or --plan)")
	}
	if calibrateDACStep <= 0 {
		return nil, nil, fmt.Errorf("--dac-step must be positive")
	}
	steps := make([]int, len(args))
	for i := range args {
		steps[i] = calibrateDACStart + i*calibrateDACStep
	}
	return steps, args, nil
}

// interpretPath reads and interprets a whole raw data file.
func interpretPath(path string, trigCount int) ([]interpreter.Hit, error) {
	reader, err := rawfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	it := interpreter.New(trigCount)
	buf := make([]uint32, 1<<16)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			it.Interpret(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	it.StoreEvent()
	return it.TakeHits(), nil
}
