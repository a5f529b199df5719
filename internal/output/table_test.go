package output

import (
	"strings"
	"testing"
	"time"

	"github.com/quarklab/pixelci/internal/ci"
	"github.com/quarklab/pixelci/internal/interpreter"
	"github.com/quarklab/pixelci/internal/store"
)

func TestRenderLegTable(t *testing.T) {
	tests := []struct {
		name     string
		legs     []ci.Leg
		contains []string
	}{
		{
			name:     "no legs",
			legs:     nil,
			contains: []string{"No build legs"},
		},
		{
			name: "matrix legs",
			legs: []ci.Leg{
				{Index: 0, Platform: "x86", Env: map[string]string{"PYTHON": "2.7"}},
				{Index: 1, Platform: "x64", Env: map[string]string{"PYTHON": "2.7"}},
			},
			contains: []string{"x86", "x64", "PYTHON=2.7", "Platform"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderLegTable(tt.legs)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("output missing %q:\n%s", want, result)
				}
			}
		})
	}
}

func TestRenderRunResult(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	run := ci.RunResult{
		Duration: 3 * time.Second,
		Legs: []ci.LegResult{
			{
				Leg:      ci.Leg{Index: 0, Platform: "x86", Env: map[string]string{"PYTHON": "2.7"}},
				ExitCode: 0,
				Duration: time.Second,
			},
			{
				Leg:      ci.Leg{Index: 1, Platform: "x64", Env: map[string]string{"PYTHON": "2.7"}},
				ExitCode: 2,
				Duration: 2 * time.Second,
			},
		},
	}
	result := RenderRunResult(run)

	for _, want := range []string{"pass", "FAIL", "Run failed (exit 2)", "1.0s", "2.0s"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
}

func TestRenderRunResultAllPass(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	run := ci.RunResult{
		Legs: []ci.LegResult{
			{Leg: ci.Leg{Index: 0}, ExitCode: 0},
		},
	}
	result := RenderRunResult(run)
	if !strings.Contains(result, "Run passed") {
		t.Errorf("output missing pass verdict:\n%s", result)
	}
}

func TestRenderRunHistory(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := RenderRunHistory(nil); !strings.Contains(got, "No recorded runs") {
		t.Errorf("empty history output: %q", got)
	}

	runs := []*store.Run{
		{
			ID:         7,
			ConfigPath: "appveyor.yml",
			StartedAt:  time.Now().Add(-2 * time.Hour),
			Duration:   90 * time.Second,
			ExitCode:   1,
			LegCount:   2,
		},
	}
	result := RenderRunHistory(runs)
	for _, want := range []string{"appveyor.yml", "2 hours ago", "1m30s", "FAIL (1)"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
}

func TestRenderInterpretSummary(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	c := interpreter.Counters{
		Words:        1000,
		TriggerWords: 50,
		DataHeaders:  800,
		DataRecords:  120,
		Events:       50,
	}
	result := RenderInterpretSummary("scan_42.raw.zst", 4096, c, 130)

	for _, want := range []string{"scan_42.raw.zst", "4 KB", "trigger words", "50", "hits", "130"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
}

func TestRenderScanHistory(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	scans := []*store.Scan{
		{
			ID:         1,
			Source:     "scan_42.raw",
			TakenAt:    time.Now().Add(-10 * time.Minute),
			WordCount:  1000,
			EventCount: 50,
			HitCount:   130,
			ErrorCount: 3,
		},
	}
	result := RenderScanHistory(scans)
	for _, want := range []string{"scan_42.raw", "10 minutes ago", "1000", "130"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
}

func TestRenderCalibration(t *testing.T) {
	result := RenderCalibration(
		&store.CalibrationResult{
			ID:        3,
			CreatedAt: time.Now(),
			Slope:     0.05,
			Intercept: 1.2,
			RSquared:  0.998,
			FitLow:    40,
			FitHigh:   200,
		},
		[]store.CalibrationPoint{
			{PlsrDAC: 80, MeanTot: 5.1, StdTot: 0.4, HitCount: 100},
			{PlsrDAC: 40, MeanTot: 3.0, StdTot: 0.5, HitCount: 100},
		},
	)

	for _, want := range []string{"Calibration #3", "0.050000", "[40, 200]", "PlsrDAC"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
	// Points are sorted by DAC setting.
	if strings.Index(result, "40 ") > strings.Index(result, "80 ") {
		t.Errorf("points not sorted by DAC:\n%s", result)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2 KB"},
		{3 * 1024 * 1024, "3 MB"},
		{2147483648, "2.0 GB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-26 * time.Hour), "1 day ago"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(tt.t); got != tt.want {
			t.Errorf("formatRelativeTime = %q, want %q", got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("averylongconfigname.yml", 10); got != "averylo..." {
		t.Errorf("truncate long = %q", got)
	}
}
