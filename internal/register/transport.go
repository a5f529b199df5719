package register

import (
	"fmt"
	"sync"
)

// Transport moves register values between the model and the chip.
type Transport interface {
	WriteGlobal(address uint8, value uint16) error
	ReadGlobal(address uint8) (uint16, error)
	WritePlane(name string, values []uint8) error
	ReadPlane(name string) ([]uint8, error)
	// ChipSN reads the serial number burned into the EFUSE.
	ChipSN() (uint32, error)
}

// Loopback is an in-memory transport. It echoes every write back on read,
// except for addresses and pixels listed as faulty, which lets tests and
// offline use exercise the self-test's mismatch counting.
type Loopback struct {
	mu      sync.Mutex
	globals map[uint8]uint16
	planes  map[string][]uint8
	serial  uint32

	// FaultyGlobals drop writes to the listed addresses.
	FaultyGlobals map[uint8]bool
	// FaultyPixels zeroes the listed plane indexes on read.
	FaultyPixels map[string][]int
}

// NewLoopback creates a loopback transport with the given chip serial.
func NewLoopback(serial uint32) *Loopback {
	return &Loopback{
		globals: make(map[uint8]uint16),
		planes:  make(map[string][]uint8),
		serial:  serial,
	}
}

func (l *Loopback) WriteGlobal(address uint8, value uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FaultyGlobals[address] {
		return nil
	}
	l.globals[address] = value
	return nil
}

func (l *Loopback) ReadGlobal(address uint8) (uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globals[address], nil
}

func (l *Loopback) WritePlane(name string, values []uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := make([]uint8, len(values))
	copy(stored, values)
	l.planes[name] = stored
	return nil
}

func (l *Loopback) ReadPlane(name string) ([]uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.planes[name]
	if !ok {
		return nil, fmt.Errorf("register: plane %q never written", name)
	}
	out := make([]uint8, len(stored))
	copy(out, stored)
	for _, i := range l.FaultyPixels[name] {
		if i >= 0 && i < len(out) {
			out[i] = 0
		}
	}
	return out, nil
}

func (l *Loopback) ChipSN() (uint32, error) {
	return l.serial, nil
}
