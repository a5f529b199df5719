package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/config"
	"github.com/quarklab/pixelci/internal/output"
	"github.com/quarklab/pixelci/internal/register"
)

var (
	selftestPlsrDAC int

	selftestCmd = &cobra.Command{
		Use:   "selftest",
		Short: "Write and read back the front-end register configuration",
		Long: `Write the full global and pixel register configuration to the chip
and read every register back. Any readback that differs from the model
is reported as a mismatch. Readonly registers are skipped.

The transport comes from the device section of the config; the loopback
transport checks the register model without hardware attached.`,
		Example: `  pixelci selftest
  pixelci selftest --plsr-dac 200`,
		RunE: runSelftest,
	}
)

func init() {
	selftestCmd.Flags().IntVar(&selftestPlsrDAC, "plsr-dac", -1, "set the PlsrDAC injection value before the test")
}

func runSelftest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd, &configPathFlag)
	if err != nil {
		return err
	}

	globals := register.NewGlobalFile()
	if selftestPlsrDAC >= 0 {
		if err := globals.Set("PlsrDAC", uint16(selftestPlsrDAC)); err != nil {
			return err
		}
	}
	pixels := register.NewPixelFile()

	var tr register.Transport
	switch cfg.Device.Transport {
	case "", "loopback":
		tr = register.NewLoopback(cfg.Device.Serial)
	default:
		return fmt.Errorf("unknown device transport %q", cfg.Device.Transport)
	}

	spinner := output.NewSpinner("Running register self-test...")
	spinner.Start()
	report, err := register.SelfTest(globals, pixels, tr)
	spinner.Stop()
	if err != nil {
		return err
	}

	fmt.Printf("Chip serial: 0x%06X\n", report.ChipSN)
	fmt.Printf("Checked %d global registers and %d pixel planes\n",
		report.Globals, report.Planes)

	if report.Passed() {
		fmt.Println("✓ Self-test passed")
		return nil
	}

	fmt.Printf("✗ Self-test failed: %d mismatched values\n", report.TotalMismatches())
	for _, m := range report.Mismatches {
		fmt.Printf("  %-16s %d\n", m.Name, m.Count)
	}
	os.Exit(1)
	return nil
}
