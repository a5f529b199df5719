// Package monitor watches a data-taking directory and raises an alert when
// the watched data files stop changing. When changes resume it sends a
// recovery notification and re-arms. Notifications are delivered through
// the Notifier interface.
package monitor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config controls what the monitor watches and when it alerts.
type Config struct {
	// Dir is the data-taking directory.
	Dir string
	// Recursive adds subdirectories of Dir, including ones created while
	// the monitor runs.
	Recursive bool
	// Suffixes filters watched files by name suffix (e.g. ".raw",
	// ".raw.zst"). Empty means every file counts.
	Suffixes []string
	// Timeout is the stall threshold. Zero defaults to 5 minutes.
	Timeout time.Duration
	// CheckInterval is how often the stall condition is evaluated. Zero
	// defaults to Timeout/4.
	CheckInterval time.Duration
}

// Monitor is a data-taking stall watchdog.
type Monitor struct {
	cfg      Config
	notifier Notifier
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	lastChange time.Time
	alerted    bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a monitor for the given directory. The notifier must not be
// nil; use NewLogNotifier for a plain log sink.
func New(cfg Config, notifier Notifier) (*Monitor, error) {
	if notifier == nil {
		return nil, fmt.Errorf("monitor: notifier cannot be nil")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("monitor: directory cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = cfg.Timeout / 4
	}
	return &Monitor{
		cfg:      cfg,
		notifier: notifier,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. The stall timer starts armed: a directory that
// never changes alerts after the first timeout.
func (m *Monitor) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor: create watcher: %w", err)
	}
	m.watcher = watcher

	if err := m.addDir(m.cfg.Dir); err != nil {
		watcher.Close()
		return err
	}
	if m.cfg.Recursive {
		err := filepath.WalkDir(m.cfg.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != m.cfg.Dir {
				return m.addDir(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return fmt.Errorf("monitor: walk %s: %w", m.cfg.Dir, err)
		}
	}

	m.mu.Lock()
	m.lastChange = time.Now()
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
	return nil
}

// Stop halts the monitor and releases the watcher.
func (m *Monitor) Stop() error {
	close(m.stopCh)
	m.wg.Wait()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// Stalled reports whether the monitor is currently in the alerted state.
func (m *Monitor) Stalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerted
}

// LastChange returns the time of the last observed data file change.
func (m *Monitor) LastChange() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChange
}

func (m *Monitor) addDir(dir string) error {
	if err := m.watcher.Add(dir); err != nil {
		return fmt.Errorf("monitor: watch %s: %w", dir, err)
	}
	return nil
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "monitor: watch error: %v\n", err)

		case <-ticker.C:
			m.checkStall()

		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) handleEvent(event fsnotify.Event) {
	// New subdirectories join the watch in recursive mode.
	if m.cfg.Recursive && event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := m.addDir(event.Name); err != nil {
				fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	if !m.matches(event.Name) {
		return
	}

	m.mu.Lock()
	m.lastChange = time.Now()
	recovered := m.alerted
	m.alerted = false
	m.mu.Unlock()

	if recovered {
		m.notify("data taking resumed",
			fmt.Sprintf("Data files under %s are changing again (last change: %s).",
				m.cfg.Dir, event.Name))
	}
}

func (m *Monitor) checkStall() {
	m.mu.Lock()
	stalled := !m.alerted && time.Since(m.lastChange) > m.cfg.Timeout
	if stalled {
		m.alerted = true
	}
	last := m.lastChange
	m.mu.Unlock()

	if stalled {
		m.notify("data taking stalled",
			fmt.Sprintf("No data file under %s has changed since %s (timeout %s).",
				m.cfg.Dir, last.Format(time.RFC3339), m.cfg.Timeout))
	}
}

func (m *Monitor) matches(path string) bool {
	if len(m.cfg.Suffixes) == 0 {
		return true
	}
	name := filepath.Base(path)
	for _, suffix := range m.cfg.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (m *Monitor) notify(subject, body string) {
	if err := m.notifier.Notify(subject, body); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: notify: %v\n", err)
	}
}
