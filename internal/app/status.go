package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/config"
	"github.com/quarklab/pixelci/internal/monitor"
	"github.com/quarklab/pixelci/internal/output"
)

var (
	statusDir         string
	statusTimeout     time.Duration
	statusDaemon      bool
	statusDaemonChild bool
	statusPIDFile     string
	statusLogFile     string
	statusStop        bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Watch a data-taking directory for stalls",
		Long: `Watch the data-taking directory and alert when no new raw data
arrives within the stall timeout.

An alert fires once per stall; a recovery notification follows when data
taking resumes. Alerts go to the configured SMTP recipients, or to the
log when no SMTP server is configured.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a background process
  • Stop: stop a running daemon`,
		Example: `  # Watch the configured directory in the foreground
  pixelci status

  # Watch a specific directory with a short timeout
  pixelci status --dir /data/run_42 --timeout 2m

  # Run in the background
  pixelci status --daemon

  # Stop the background monitor
  pixelci status --stop`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().StringVar(&statusDir, "dir", "", "data-taking directory (default from config)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 0, "stall timeout (default from config)")
	statusCmd.Flags().BoolVar(&statusDaemon, "daemon", false, "run as background daemon")
	statusCmd.Flags().BoolVar(&statusDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	statusCmd.Flags().StringVar(&statusPIDFile, "pid-file", "", "PID file path (default: ~/.pixelci/status.pid)")
	statusCmd.Flags().StringVar(&statusLogFile, "log-file", "", "log file path (default: ~/.pixelci/status.log)")
	statusCmd.Flags().BoolVar(&statusStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	statusCmd.Flags().MarkHidden("daemon-child")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		statusPIDFile = defaultPID
	}

	if statusLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		statusLogFile = defaultLog
	}

	if statusStop {
		return stopStatusDaemon()
	}

	if statusDaemon {
		return startStatusDaemon()
	}

	cfg, err := config.Load(cmd, &configPathFlag)
	if err != nil {
		return err
	}

	m, err := newMonitor(cfg)
	if err != nil {
		return err
	}

	if statusDaemonChild {
		// Runs as the daemon child; stdout and stderr go to the log file.
		return m.RunDaemon(statusPIDFile)
	}

	return runStatusForeground(m)
}

// newMonitor builds a monitor from the resolved configuration and flags.
func newMonitor(cfg config.Config) (*monitor.Monitor, error) {
	dir := cfg.Monitor.Dir
	if statusDir != "" {
		dir = statusDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no data-taking directory: set monitor.dir in the config or pass --dir")
	}

	timeout := statusTimeout
	if timeout == 0 && cfg.Monitor.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Monitor.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid monitor.timeout %q: %w", cfg.Monitor.Timeout, err)
		}
		timeout = parsed
	}

	var notifier monitor.Notifier
	if cfg.Monitor.SMTP.Addr != "" {
		notifier = monitor.NewSMTPNotifier(monitor.SMTPConfig{
			Addr:     cfg.Monitor.SMTP.Addr,
			From:     cfg.Monitor.SMTP.From,
			To:       cfg.Monitor.SMTP.To,
			Username: cfg.Monitor.SMTP.Username,
			Password: cfg.Monitor.SMTP.Password,
		})
	} else {
		notifier = monitor.NewLogNotifier(os.Stdout)
	}

	return monitor.New(monitor.Config{
		Dir:       dir,
		Recursive: cfg.Monitor.Recursive,
		Suffixes:  cfg.Monitor.Suffixes,
		Timeout:   timeout,
	}, notifier)
}

func stopStatusDaemon() error {
	running, err := monitor.IsDaemonRunning(statusPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	spinner.Start()
	if err := monitor.StopDaemon(statusPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func startStatusDaemon() error {
	running, err := monitor.IsDaemonRunning(statusPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", statusPIDFile)
	}

	// Re-exec ourselves with the hidden child flag; the child owns the
	// monitor for its whole lifetime.
	childArgs := []string{
		"status", "--daemon-child",
		"--pid-file", statusPIDFile,
		"--log-file", statusLogFile,
	}
	if statusDir != "" {
		childArgs = append(childArgs, "--dir", statusDir)
	}
	if statusTimeout != 0 {
		childArgs = append(childArgs, "--timeout", statusTimeout.String())
	}
	if configPathFlag != "" {
		childArgs = append(childArgs, "--config", configPathFlag)
	}

	spinner := output.NewSpinner("Starting daemon...")
	spinner.Start()
	if err := monitor.StartDaemon(statusPIDFile, statusLogFile, childArgs); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nData-taking monitor started\n")
	fmt.Printf("  PID file: %s\n", statusPIDFile)
	fmt.Printf("  Log file: %s\n", statusLogFile)
	fmt.Printf("\nTo stop: pixelci status --stop\n")

	return nil
}

func runStatusForeground(m *monitor.Monitor) error {
	fmt.Println("Watching data taking (press Ctrl+C to stop)...")
	fmt.Println()

	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := m.Stop(); err != nil {
		return fmt.Errorf("failed to stop monitor: %w", err)
	}

	fmt.Println("Monitor stopped")
	return nil
}
