// Package register models the FE-I4 global and pixel register files and
// provides a self-test that verifies the configuration held by the chip
// against the local model through a Transport.
package register

import (
	"fmt"
	"sort"

	"github.com/quarklab/pixelci/internal/fei4"
)

// Global is one named global register.
type Global struct {
	Name    string
	Address uint8
	Bits    uint8
	Value   uint16
	// Readonly registers are skipped by the write phase of the self-test.
	Readonly bool
}

// GlobalFile is the global register model.
type GlobalFile struct {
	regs  []Global
	index map[string]int
}

// defaultGlobals is the FE-I4B subset the tool configures. Values are the
// power-up defaults.
var defaultGlobals = []Global{
	{Name: "TrigCnt", Address: 2, Bits: 4, Value: 0},
	{Name: "Trig_Lat", Address: 2, Bits: 8, Value: 210},
	{Name: "Vthin_AltCoarse", Address: 3, Bits: 8, Value: 0},
	{Name: "Vthin_AltFine", Address: 3, Bits: 8, Value: 150},
	{Name: "PrmpVbpf", Address: 5, Bits: 8, Value: 110},
	{Name: "Amp2Vbn", Address: 8, Bits: 8, Value: 79},
	{Name: "PlsrDAC", Address: 31, Bits: 10, Value: 0},
	{Name: "PlsrDelay", Address: 14, Bits: 6, Value: 2},
	{Name: "Efuse_Sense", Address: 27, Bits: 1, Value: 0, Readonly: true},
	{Name: "Chip_SN", Address: 35, Bits: 16, Value: 0, Readonly: true},
}

// NewGlobalFile creates a global register file with default values.
func NewGlobalFile() *GlobalFile {
	f := &GlobalFile{index: make(map[string]int, len(defaultGlobals))}
	f.regs = make([]Global, len(defaultGlobals))
	copy(f.regs, defaultGlobals)
	for i, r := range f.regs {
		f.index[r.Name] = i
	}
	return f
}

// Get returns a register by name.
func (f *GlobalFile) Get(name string) (Global, error) {
	i, ok := f.index[name]
	if !ok {
		return Global{}, fmt.Errorf("register: unknown global register %q", name)
	}
	return f.regs[i], nil
}

// Set updates a register value, masked to the register width.
func (f *GlobalFile) Set(name string, value uint16) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("register: unknown global register %q", name)
	}
	mask := uint16(1)<<f.regs[i].Bits - 1
	if f.regs[i].Bits >= 16 {
		mask = 0xFFFF
	}
	f.regs[i].Value = value & mask
	return nil
}

// Names returns all register names in a stable order.
func (f *GlobalFile) Names() []string {
	names := make([]string, 0, len(f.regs))
	for _, r := range f.regs {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// All returns the registers in declaration order.
func (f *GlobalFile) All() []Global {
	out := make([]Global, len(f.regs))
	copy(out, f.regs)
	return out
}

// Pixel register planes.

// PlaneBits maps pixel plane names to their per-pixel bit width.
var PlaneBits = map[string]uint8{
	"Enable":       1,
	"Imon":         1,
	"C_High":       1,
	"C_Low":        1,
	"EnableDigInj": 1,
	"TDAC":         5,
	"FDAC":         4,
}

// Plane is one pixel register plane, 80 columns by 336 rows.
type Plane struct {
	Name   string
	Bits   uint8
	values []uint8
}

// NewPlane creates a zeroed plane.
func NewPlane(name string) (*Plane, error) {
	bits, ok := PlaneBits[name]
	if !ok {
		return nil, fmt.Errorf("register: unknown pixel plane %q", name)
	}
	return &Plane{
		Name:   name,
		Bits:   bits,
		values: make([]uint8, fei4.NColumns*fei4.NRows),
	}, nil
}

// Fill sets every pixel to value, masked to the plane width.
func (p *Plane) Fill(value uint8) {
	v := value & (1<<p.Bits - 1)
	for i := range p.values {
		p.values[i] = v
	}
}

// Set writes one pixel. Column is 1..80, row 1..336.
func (p *Plane) Set(column, row int, value uint8) error {
	i, err := pixelIndex(column, row)
	if err != nil {
		return err
	}
	p.values[i] = value & (1<<p.Bits - 1)
	return nil
}

// Get reads one pixel.
func (p *Plane) Get(column, row int) (uint8, error) {
	i, err := pixelIndex(column, row)
	if err != nil {
		return 0, err
	}
	return p.values[i], nil
}

// Values returns the backing plane data, column-major.
func (p *Plane) Values() []uint8 {
	out := make([]uint8, len(p.values))
	copy(out, p.values)
	return out
}

func pixelIndex(column, row int) (int, error) {
	if column < 1 || column > fei4.NColumns {
		return 0, fmt.Errorf("register: column %d out of range [1, %d]", column, fei4.NColumns)
	}
	if row < 1 || row > fei4.NRows {
		return 0, fmt.Errorf("register: row %d out of range [1, %d]", row, fei4.NRows)
	}
	return (column-1)*fei4.NRows + (row - 1), nil
}

// PixelFile is the pixel register model, one plane per configuration bit
// group.
type PixelFile struct {
	planes map[string]*Plane
}

// NewPixelFile creates a pixel file with all known planes zeroed.
func NewPixelFile() *PixelFile {
	f := &PixelFile{planes: make(map[string]*Plane, len(PlaneBits))}
	for name := range PlaneBits {
		p, _ := NewPlane(name)
		f.planes[name] = p
	}
	return f
}

// Plane returns a plane by name.
func (f *PixelFile) Plane(name string) (*Plane, error) {
	p, ok := f.planes[name]
	if !ok {
		return nil, fmt.Errorf("register: unknown pixel plane %q", name)
	}
	return p, nil
}

// PlaneNames returns the plane names in a stable order.
func (f *PixelFile) PlaneNames() []string {
	names := make([]string, 0, len(f.planes))
	for name := range f.planes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
