package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/config"
	"github.com/quarklab/pixelci/internal/store"
)

var (
	dbPathFlag     string
	configPathFlag string

	// RootCmd is the root command for pixelci
	RootCmd = &cobra.Command{
		Use:   "pixelci",
		Short: "CI pipeline runner and pixel-detector readout analysis",
		Long: `pixelci runs appveyor-style CI configuration files and analyzes
FE-I4 pixel-detector raw data.

The run side parses a CI config, expands its environment/platform matrix
into build legs, executes each leg's init, install and test_script
commands, and records every result in a local SQLite database. The first
failing command fails its leg; any failed leg fails the run.

The analysis side interprets raw data word streams into hit tables,
builds occupancy and ToT histograms, clusters hits, fits PlsrDAC
calibrations, watches data taking for stalls, and self-tests the
front-end register configuration.

Examples:
  # Validate and run a CI config across its matrix
  pixelci validate appveyor.yml
  pixelci run appveyor.yml --parallel 2

  # Show the expanded build legs
  pixelci legs appveyor.yml

  # Interpret a raw data file
  pixelci interpret scan_42.raw.zst --clusters

  # Watch data taking in the background
  pixelci status --daemon

  # Check the chip configuration
  pixelci selftest`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database path (default: ~/.pixelci/pixelci.db)")
	RootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "config file path (default: pixelci.yaml in the user config dir)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(legsCmd)
	RootCmd.AddCommand(interpretCmd)
	RootCmd.AddCommand(calibrateCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(selftestCmd)
	RootCmd.AddCommand(historyCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the database path: the --db flag, then the config
// file's db_path, then the default under ~/.pixelci.
func getDBPath() (string, error) {
	if dbPathFlag != "" {
		return dbPathFlag, nil
	}

	if cfg, err := config.Load(nil, &configPathFlag); err == nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	// Create .pixelci directory if it doesn't exist
	pixelciDir := filepath.Join(home, ".pixelci")
	if err := os.MkdirAll(pixelciDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pixelci directory: %w", err)
	}

	return filepath.Join(pixelciDir, "pixelci.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	pixelciDir := filepath.Join(home, ".pixelci")
	if err := os.MkdirAll(pixelciDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pixelci directory: %w", err)
	}

	return filepath.Join(pixelciDir, "status.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	pixelciDir := filepath.Join(home, ".pixelci")
	if err := os.MkdirAll(pixelciDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pixelci directory: %w", err)
	}

	return filepath.Join(pixelciDir, "status.log"), nil
}

// openStore opens the database and ensures the schema exists.
func openStore() (*store.Store, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return db, nil
}
