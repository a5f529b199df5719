// Package histogram provides dense index-based histograms for interpreted
// hit and cluster data. Unlike edge-binned histograms, the inputs here are
// integer indices; an index outside the requested shape is an error, never a
// silent clamp or wrap.
package histogram

import (
	"fmt"

	"github.com/quarklab/pixelci/internal/fei4"
	"github.com/quarklab/pixelci/internal/interpreter"
)

// Hist1DIndex counts occurrences of each index in x over [0, shape).
func Hist1DIndex(x []int, shape int) ([]int64, error) {
	h := make([]int64, shape)
	for _, i := range x {
		if i < 0 || i >= shape {
			return nil, fmt.Errorf("index %d out of range for shape %d", i, shape)
		}
		h[i]++
	}
	return h, nil
}

// Hist2DIndex counts occurrences of each (x, y) index pair. x and y must
// have equal length.
func Hist2DIndex(x, y []int, shape [2]int) ([][]int64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("index slices differ in length: %d vs %d", len(x), len(y))
	}
	h := make([][]int64, shape[0])
	for i := range h {
		h[i] = make([]int64, shape[1])
	}
	for k := range x {
		if x[k] < 0 || x[k] >= shape[0] || y[k] < 0 || y[k] >= shape[1] {
			return nil, fmt.Errorf("index (%d,%d) out of range for shape %v", x[k], y[k], shape)
		}
		h[x[k]][y[k]]++
	}
	return h, nil
}

// Hist3DIndex counts occurrences of each (x, y, z) index triple.
func Hist3DIndex(x, y, z []int, shape [3]int) ([][][]int64, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return nil, fmt.Errorf("index slices differ in length: %d, %d, %d", len(x), len(y), len(z))
	}
	h := make([][][]int64, shape[0])
	for i := range h {
		h[i] = make([][]int64, shape[1])
		for j := range h[i] {
			h[i][j] = make([]int64, shape[2])
		}
	}
	for k := range x {
		if x[k] < 0 || x[k] >= shape[0] || y[k] < 0 || y[k] >= shape[1] || z[k] < 0 || z[k] >= shape[2] {
			return nil, fmt.Errorf("index (%d,%d,%d) out of range for shape %v", x[k], y[k], z[k], shape)
		}
		h[x[k]][y[k]][z[k]]++
	}
	return h, nil
}

// Occupancy is a per-pixel hit count histogram, one plane per scan
// parameter index. Column and row addresses are 1-based as on the wire.
type Occupancy struct {
	counts  []int64
	nParams int
}

// NewOccupancy creates an occupancy histogram with nParams scan-parameter
// planes. nParams below 1 is treated as 1.
func NewOccupancy(nParams int) *Occupancy {
	if nParams < 1 {
		nParams = 1
	}
	return &Occupancy{
		counts:  make([]int64, fei4.NColumns*fei4.NRows*nParams),
		nParams: nParams,
	}
}

// NParams returns the number of scan-parameter planes.
func (o *Occupancy) NParams() int { return o.nParams }

// AddHits accumulates hits into the plane for the given parameter index.
// Hits with out-of-geometry addresses are an error.
func (o *Occupancy) AddHits(hits []interpreter.Hit, param int) error {
	if param < 0 || param >= o.nParams {
		return fmt.Errorf("scan parameter index %d out of range (%d planes)", param, o.nParams)
	}
	for _, h := range hits {
		if h.Column < 1 || h.Column > fei4.NColumns || h.Row < 1 || h.Row > fei4.NRows {
			return fmt.Errorf("hit at (%d,%d) outside detector geometry", h.Column, h.Row)
		}
		o.counts[o.index(int(h.Column), int(h.Row), param)]++
	}
	return nil
}

func (o *Occupancy) index(col, row, param int) int {
	return ((col-1)*fei4.NRows+(row-1))*o.nParams + param
}

// At returns the hit count of pixel (col, row) in the given parameter plane.
func (o *Occupancy) At(col, row, param int) int64 {
	return o.counts[o.index(col, row, param)]
}

// Total returns the summed hit count over all pixels and planes.
func (o *Occupancy) Total() int64 {
	var sum int64
	for _, c := range o.counts {
		sum += c
	}
	return sum
}

// OccupiedPixels returns the number of pixels with at least one hit,
// summed over planes.
func (o *Occupancy) OccupiedPixels() int {
	n := 0
	for _, c := range o.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// TotHist counts hits per ToT code (0-15).
func TotHist(hits []interpreter.Hit) [16]int64 {
	var h [16]int64
	for _, hit := range hits {
		h[hit.Tot&0xF]++
	}
	return h
}

// RelBCIDHist counts hits per relative BCID (0-15).
func RelBCIDHist(hits []interpreter.Hit) [16]int64 {
	var h [16]int64
	for _, hit := range hits {
		h[hit.RelativeBCID&0xF]++
	}
	return h
}

// ServiceRecordHist counts service records per code (0-63) directly from a
// raw word stream.
func ServiceRecordHist(words []uint32) [64]int64 {
	var h [64]int64
	for _, w := range words {
		if fei4.IsTriggerWord(w) || !fei4.IsServiceRecord(w) {
			continue
		}
		h[fei4.DecodeServiceRecord(w).Code]++
	}
	return h
}

// EventStatusHist counts events per status flag. Bit i of an event's status
// increments bucket i; an event contributes at most once per flag.
func EventStatusHist(hits []interpreter.Hit) [16]int64 {
	var h [16]int64
	lastEvent := int64(-1)
	var lastStatus uint16
	flush := func() {
		for bit := 0; bit < 16; bit++ {
			if lastStatus&(1<<bit) != 0 {
				h[bit]++
			}
		}
	}
	for _, hit := range hits {
		if hit.EventNumber != lastEvent {
			if lastEvent >= 0 {
				flush()
			}
			lastEvent = hit.EventNumber
			lastStatus = hit.EventStatus
		}
	}
	if lastEvent >= 0 {
		flush()
	}
	return h
}
