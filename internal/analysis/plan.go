package analysis

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ScanStep is one calibration scan step: the raw data file taken at one
// PlsrDAC setting. DAC below zero means "derive from the plan's start and
// step"; a step without a dac key unmarshals to -1.
type ScanStep struct {
	DAC  int    `yaml:"dac"`
	File string `yaml:"file"`
}

// UnmarshalYAML defaults DAC to the derive sentinel so an explicit
// "dac: 0" stays distinguishable from an absent key.
func (s *ScanStep) UnmarshalYAML(b []byte) error {
	type rawStep ScanStep
	raw := rawStep{DAC: -1}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ScanStep(raw)
	return nil
}

// ScanPlan describes a PlsrDAC calibration scan. Steps without an explicit
// DAC value get dac_start + i*dac_step.
type ScanPlan struct {
	DACStart int        `yaml:"dac_start"`
	DACStep  int        `yaml:"dac_step"`
	Steps    []ScanStep `yaml:"steps"`
}

// ParsePlan decodes and validates a scan plan document. The returned steps
// all carry resolved DAC values.
func ParsePlan(data []byte) (*ScanPlan, error) {
	var plan ScanPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("analysis: invalid scan plan: %w", err)
	}

	if len(plan.Steps) < 2 {
		return nil, fmt.Errorf("analysis: scan plan needs at least 2 steps, got %d", len(plan.Steps))
	}
	for i := range plan.Steps {
		if plan.Steps[i].File == "" {
			return nil, fmt.Errorf("analysis: scan plan step %d has no file", i)
		}
		if plan.Steps[i].DAC < 0 {
			plan.Steps[i].DAC = plan.DACStart + i*plan.DACStep
		}
	}
	for i := 1; i < len(plan.Steps); i++ {
		if plan.Steps[i].DAC <= plan.Steps[i-1].DAC {
			return nil, fmt.Errorf("analysis: scan plan DAC values must increase (step %d: %d after %d)",
				i, plan.Steps[i].DAC, plan.Steps[i-1].DAC)
		}
	}
	return &plan, nil
}

// LoadPlan reads a scan plan from a YAML file.
func LoadPlan(path string) (*ScanPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to read scan plan %s: %w", path, err)
	}
	return ParsePlan(data)
}
