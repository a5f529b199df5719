package register

import "fmt"

// Mismatch is one register or plane whose readback differed from the
// model.
type Mismatch struct {
	Name string
	// Count is 1 for a global register, the number of differing pixels
	// for a plane.
	Count int
}

// Report is the outcome of a self-test.
type Report struct {
	ChipSN     uint32
	Globals    int // globals checked
	Planes     int // planes checked
	Mismatches []Mismatch
}

// Passed reports whether every readback matched.
func (r Report) Passed() bool { return len(r.Mismatches) == 0 }

// TotalMismatches sums the mismatch counts.
func (r Report) TotalMismatches() int {
	total := 0
	for _, m := range r.Mismatches {
		total += m.Count
	}
	return total
}

// SelfTest writes the model configuration to the chip, reads it back and
// counts mismatches. Readonly registers are skipped.
func SelfTest(globals *GlobalFile, pixels *PixelFile, tr Transport) (Report, error) {
	var report Report

	sn, err := tr.ChipSN()
	if err != nil {
		return report, fmt.Errorf("register: read chip serial: %w", err)
	}
	report.ChipSN = sn

	for _, reg := range globals.All() {
		if reg.Readonly {
			continue
		}
		report.Globals++
		if err := tr.WriteGlobal(reg.Address, reg.Value); err != nil {
			return report, fmt.Errorf("register: write %s: %w", reg.Name, err)
		}
		got, err := tr.ReadGlobal(reg.Address)
		if err != nil {
			return report, fmt.Errorf("register: read %s: %w", reg.Name, err)
		}
		if got != reg.Value {
			report.Mismatches = append(report.Mismatches, Mismatch{Name: reg.Name, Count: 1})
		}
	}

	for _, name := range pixels.PlaneNames() {
		plane, err := pixels.Plane(name)
		if err != nil {
			return report, err
		}
		report.Planes++

		want := plane.Values()
		if err := tr.WritePlane(name, want); err != nil {
			return report, fmt.Errorf("register: write plane %s: %w", name, err)
		}
		got, err := tr.ReadPlane(name)
		if err != nil {
			return report, fmt.Errorf("register: read plane %s: %w", name, err)
		}
		if len(got) != len(want) {
			return report, fmt.Errorf("register: plane %s readback length %d, want %d", name, len(got), len(want))
		}
		diff := 0
		for i := range want {
			if got[i] != want[i] {
				diff++
			}
		}
		if diff > 0 {
			report.Mismatches = append(report.Mismatches, Mismatch{Name: name, Count: diff})
		}
	}

	return report, nil
}
