package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingNotifier captures alerts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *recordingNotifier) Notify(subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, subject)
	return nil
}

func (n *recordingNotifier) subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.alerts))
	copy(out, n.alerts)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newTestMonitor(t *testing.T, cfg Config, n Notifier) *Monitor {
	t.Helper()
	m, err := New(cfg, n)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Dir: "x"}, nil); err == nil {
		t.Error("New() should reject nil notifier")
	}
	if _, err := New(Config{}, NewLogNotifier(os.Stderr)); err == nil {
		t.Error("New() should reject empty directory")
	}
}

func TestStallAlertAndRecovery(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	m := newTestMonitor(t, Config{
		Dir:           dir,
		Suffixes:      []string{".raw"},
		Timeout:       150 * time.Millisecond,
		CheckInterval: 25 * time.Millisecond,
	}, n)

	// Nothing changes, so the stall alert must fire once.
	if !waitFor(t, 2*time.Second, m.Stalled) {
		t.Fatal("monitor never entered the stalled state")
	}
	subjects := n.subjects()
	if len(subjects) != 1 || !strings.Contains(subjects[0], "stalled") {
		t.Fatalf("alerts = %v", subjects)
	}

	// A data file write recovers the monitor.
	if err := os.WriteFile(filepath.Join(dir, "scan_1.raw"), []byte{1, 2, 3, 4}, 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return !m.Stalled() }) {
		t.Fatal("monitor never recovered")
	}
	if !waitFor(t, 2*time.Second, func() bool {
		s := n.subjects()
		return len(s) == 2 && strings.Contains(s[1], "resumed")
	}) {
		t.Fatalf("alerts = %v", n.subjects())
	}
}

func TestSuffixFilterIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	m := newTestMonitor(t, Config{
		Dir:           dir,
		Suffixes:      []string{".raw"},
		Timeout:       150 * time.Millisecond,
		CheckInterval: 25 * time.Millisecond,
	}, n)

	before := m.LastChange()

	// Writes to unwatched files must not reset the stall timer.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, m.Stalled) {
		t.Fatal("monitor should stall despite unrelated file writes")
	}
	if !m.LastChange().Equal(before) {
		t.Error("unrelated write moved the change timestamp")
	}
}

func TestAlertFiresOnce(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	m := newTestMonitor(t, Config{
		Dir:           dir,
		Timeout:       100 * time.Millisecond,
		CheckInterval: 20 * time.Millisecond,
	}, n)

	if !waitFor(t, 2*time.Second, m.Stalled) {
		t.Fatal("monitor never stalled")
	}
	// Let several check intervals pass; the latch must hold.
	time.Sleep(150 * time.Millisecond)
	if got := len(n.subjects()); got != 1 {
		t.Errorf("alerts = %d, want 1", got)
	}
}

func TestRecursiveWatchesNewSubdir(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	m := newTestMonitor(t, Config{
		Dir:           dir,
		Recursive:     true,
		Suffixes:      []string{".raw"},
		Timeout:       10 * time.Second,
		CheckInterval: 50 * time.Millisecond,
	}, n)

	sub := filepath.Join(dir, "run_7")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	before := m.LastChange()
	if err := os.WriteFile(filepath.Join(sub, "scan.raw"), []byte{1}, 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return m.LastChange().After(before) }) {
		t.Error("write in new subdirectory was not observed")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(&buf)
	if err := n.Notify("data taking stalled", "no changes"); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "data taking stalled") || !strings.Contains(out, "no changes") {
		t.Errorf("log output = %q", out)
	}
}

func TestIsDaemonRunningNoPIDFile(t *testing.T) {
	running, err := IsDaemonRunning(filepath.Join(t.TempDir(), "absent.pid"))
	if err != nil {
		t.Fatalf("IsDaemonRunning() failed: %v", err)
	}
	if running {
		t.Error("absent PID file should report not running")
	}
}

func TestIsDaemonRunningStalePID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "stale.pid")
	// PID 4194304 exceeds the default Linux pid_max, so no such process.
	if err := os.WriteFile(pidFile, []byte("4194304\n"), 0644); err != nil {
		t.Fatal(err)
	}
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Fatalf("IsDaemonRunning() failed: %v", err)
	}
	if running {
		t.Error("stale PID should report not running")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file should be removed")
	}
}
