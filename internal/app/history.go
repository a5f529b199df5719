package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/output"
	"github.com/quarklab/pixelci/internal/store"
)

var (
	historyLimit       int
	historyScans       bool
	historyCalibration bool

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, scans and calibrations",
		Long: `Show CI run history from the database, newest first. With --scans
the recorded raw data scans are listed instead, and with --calibration
the latest calibration fit is shown.`,
		Example: `  # Last 20 CI runs
  pixelci history

  # Last 5 runs
  pixelci history --limit 5

  # Recorded scans
  pixelci history --scans

  # Latest calibration fit
  pixelci history --calibration`,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max entries to show")
	historyCmd.Flags().BoolVar(&historyScans, "scans", false, "show recorded scans instead of runs")
	historyCmd.Flags().BoolVar(&historyCalibration, "calibration", false, "show the latest calibration fit")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if historyCalibration {
		result, err := db.GetLatestCalibration()
		if err != nil {
			if errors.Is(err, store.ErrNotInitialized) {
				fmt.Println("No recorded calibrations.")
				return nil
			}
			return err
		}
		points, err := db.ListCalibrationPoints(result.ID)
		if err != nil {
			return err
		}
		fmt.Print(output.RenderCalibration(result, points))
		return nil
	}

	if historyScans {
		scans, err := db.ListScans(historyLimit)
		if err != nil {
			if errors.Is(err, store.ErrNotInitialized) {
				fmt.Println("No recorded scans.")
				return nil
			}
			return err
		}
		fmt.Print(output.RenderScanHistory(scans))
		return nil
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			fmt.Println("No recorded runs.")
			return nil
		}
		return err
	}
	fmt.Print(output.RenderRunHistory(runs))
	return nil
}
