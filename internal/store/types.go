package store

import "time"

// Run is one recorded CI run.
type Run struct {
	ID         int64
	ConfigPath string
	StartedAt  time.Time
	Duration   time.Duration
	ExitCode   int
	LegCount   int
}

// Leg is one recorded build leg of a run.
type Leg struct {
	ID       int64
	RunID    int64
	Index    int
	Name     string
	Platform string
	Env      map[string]string
	ExitCode int
	Duration time.Duration
}

// CommandRecord is one executed command of a leg.
type CommandRecord struct {
	ID       int64
	LegID    int64
	Step     string
	Shell    string
	Line     string
	ExitCode int
	Output   string
}

// Scan summarizes one interpreted raw data file.
type Scan struct {
	ID         int64
	Source     string
	TakenAt    time.Time
	WordCount  int64
	EventCount int64
	HitCount   int64
	ErrorCount int64
}

// CalibrationResult is a persisted PlsrDAC calibration fit.
type CalibrationResult struct {
	ID        int64
	CreatedAt time.Time
	Slope     float64
	Intercept float64
	RSquared  float64
	FitLow    int
	FitHigh   int
}

// CalibrationPoint is one measured step of a calibration.
type CalibrationPoint struct {
	ResultID int64
	PlsrDAC  int
	MeanTot  float64
	StdTot   float64
	HitCount int64
}
