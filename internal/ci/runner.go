package ci

import (
	"context"
	"sync"
	"time"
)

// Step names the pipeline phase a command belongs to.
type Step string

const (
	StepInit    Step = "init"
	StepInstall Step = "install"
	StepTest    Step = "test_script"
)

// StepResult is one executed command with its phase.
type StepResult struct {
	Step   Step
	Result CommandResult
}

// LegResult is the outcome of one build leg.
type LegResult struct {
	Leg      Leg
	Steps    []StepResult
	ExitCode int
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether any command of the leg exited non-zero.
func (r LegResult) Failed() bool { return r.ExitCode != 0 }

// RunResult is the outcome of a full matrix run.
type RunResult struct {
	Legs     []LegResult
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether any leg failed.
func (r RunResult) Failed() bool {
	for _, l := range r.Legs {
		if l.Failed() {
			return true
		}
	}
	return false
}

// ExitCode is the process exit code for the run: the first failing leg's
// code, 0 when every leg passed.
func (r RunResult) ExitCode() int {
	for _, l := range r.Legs {
		if l.Failed() {
			return l.ExitCode
		}
	}
	return 0
}

// Runner executes the expanded matrix of a configuration.
type Runner struct {
	Executor Executor
	// Parallel bounds concurrent legs; values below 1 run sequentially.
	Parallel int
	// OnCommand, when set, observes every command result as it completes.
	// Parallel legs may call it concurrently.
	OnCommand func(leg Leg, step Step, res CommandResult)
}

// Run executes every leg. The pipeline within a leg is strictly linear:
// init, install, test_script; the first non-zero exit code stops the leg.
func (r *Runner) Run(ctx context.Context, cfg *Config, legs []Leg) RunResult {
	run := RunResult{Started: time.Now()}
	run.Legs = make([]LegResult, len(legs))

	workers := r.Parallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(legs) {
		workers = len(legs)
	}

	if workers <= 1 {
		for i, leg := range legs {
			run.Legs[i] = r.runLeg(ctx, cfg, leg)
		}
	} else {
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i, leg := range legs {
			wg.Add(1)
			go func(i int, leg Leg) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				run.Legs[i] = r.runLeg(ctx, cfg, leg)
			}(i, leg)
		}
		wg.Wait()
	}

	run.Duration = time.Since(run.Started)
	return run
}

func (r *Runner) runLeg(ctx context.Context, cfg *Config, leg Leg) (result LegResult) {
	result = LegResult{Leg: leg, Started: time.Now()}
	defer func() { result.Duration = time.Since(result.Started) }()

	phases := []struct {
		step Step
		cmds []Command
	}{
		{StepInit, cfg.Init},
		{StepInstall, cfg.Install},
		{StepTest, cfg.TestScript},
	}
	for _, phase := range phases {
		for _, c := range phase.cmds {
			res := r.Executor.Run(ctx, c, leg.Env)
			result.Steps = append(result.Steps, StepResult{Step: phase.step, Result: res})
			if r.OnCommand != nil {
				r.OnCommand(leg, phase.step, res)
			}
			if res.ExitCode != 0 {
				result.ExitCode = res.ExitCode
				return result
			}
		}
	}
	return result
}
