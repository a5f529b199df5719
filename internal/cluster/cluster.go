// Package cluster groups interpreted hits into per-event clusters. Two hits
// join the same cluster when they are within the configured column, row and
// relative-BCID windows of any hit already in it. Clustering never crosses
// event boundaries.
package cluster

import (
	"sort"

	"github.com/quarklab/pixelci/internal/interpreter"
)

// Cluster is one reconstructed cluster.
type Cluster struct {
	EventNumber int64
	ID          uint16 // cluster index within its event
	Size        uint16
	Tot         uint32 // summed ToT over all hits
	Charge      float32
	SeedColumn  uint8
	SeedRow     uint16
	MeanColumn  float32
	MeanRow     float32
	EventStatus uint16
}

// HitInfo associates one input hit with its cluster.
type HitInfo struct {
	Hit       interpreter.Hit
	ClusterID uint16
	IsSeed    bool
}

// Config holds the clustering windows. A hit joins a cluster when its
// distance to any member hit is within every window.
type Config struct {
	ColumnWindow int // default 1
	RowWindow    int // default 2
	BCIDWindow   int // default 2
	MinSize      int // clusters smaller than this are dropped; default 1
}

// DefaultConfig returns the standard clustering windows.
func DefaultConfig() Config {
	return Config{ColumnWindow: 1, RowWindow: 2, BCIDWindow: 2, MinSize: 1}
}

func (c Config) normalized() Config {
	if c.ColumnWindow <= 0 {
		c.ColumnWindow = 1
	}
	if c.RowWindow <= 0 {
		c.RowWindow = 2
	}
	if c.BCIDWindow <= 0 {
		c.BCIDWindow = 2
	}
	if c.MinSize <= 0 {
		c.MinSize = 1
	}
	return c
}

// Clusterizer clusters hit tables event by event.
type Clusterizer struct {
	cfg Config
}

// New creates a clusterizer with the given configuration.
func New(cfg Config) *Clusterizer {
	return &Clusterizer{cfg: cfg.normalized()}
}

// Cluster groups hits into clusters. Hits must be event-ordered, as the
// interpreter emits them. The returned clusters are ordered by event and
// cluster ID; hit infos parallel the input order.
func (cz *Clusterizer) Cluster(hits []interpreter.Hit) ([]Cluster, []HitInfo) {
	var clusters []Cluster
	infos := make([]HitInfo, 0, len(hits))

	start := 0
	for start < len(hits) {
		end := start + 1
		for end < len(hits) && hits[end].EventNumber == hits[start].EventNumber {
			end++
		}
		clusters = cz.clusterEvent(hits[start:end], clusters, &infos)
		start = end
	}
	return clusters, infos
}

// clusterEvent clusters the hits of a single event via union-find style
// region growing.
func (cz *Clusterizer) clusterEvent(hits []interpreter.Hit, clusters []Cluster, infos *[]HitInfo) []Cluster {
	n := len(hits)
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}

	var groups [][]int
	for i := 0; i < n; i++ {
		if assigned[i] >= 0 {
			continue
		}
		// Grow a new cluster from hit i.
		group := []int{i}
		assigned[i] = len(groups)
		for k := 0; k < len(group); k++ {
			a := hits[group[k]]
			for j := 0; j < n; j++ {
				if assigned[j] >= 0 {
					continue
				}
				b := hits[j]
				if absInt(int(a.Column)-int(b.Column)) <= cz.cfg.ColumnWindow &&
					absInt(int(a.Row)-int(b.Row)) <= cz.cfg.RowWindow &&
					absInt(int(a.RelativeBCID)-int(b.RelativeBCID)) <= cz.cfg.BCIDWindow {
					assigned[j] = assigned[i]
					group = append(group, j)
				}
			}
		}
		groups = append(groups, group)
	}

	// Drop groups under the size threshold, renumbering the survivors.
	id := uint16(0)
	for _, group := range groups {
		if len(group) < cz.cfg.MinSize {
			continue
		}

		c := Cluster{
			EventNumber: hits[group[0]].EventNumber,
			ID:          id,
			Size:        uint16(len(group)),
			EventStatus: hits[group[0]].EventStatus,
		}
		seed := group[0]
		var sumCol, sumRow float64
		for _, idx := range group {
			h := hits[idx]
			c.Tot += uint32(h.Tot)
			sumCol += float64(h.Column)
			sumRow += float64(h.Row)
			if h.Tot > hits[seed].Tot {
				seed = idx
			}
		}
		c.SeedColumn = hits[seed].Column
		c.SeedRow = hits[seed].Row
		c.MeanColumn = float32(sumCol / float64(len(group)))
		c.MeanRow = float32(sumRow / float64(len(group)))
		c.Charge = float32(c.Tot)
		clusters = append(clusters, c)

		for _, idx := range group {
			*infos = append(*infos, HitInfo{
				Hit:       hits[idx],
				ClusterID: id,
				IsSeed:    idx == seed,
			})
		}
		id++
	}
	return clusters
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SizeHist counts clusters per size, up to maxSize; larger clusters land in
// the top bin.
func SizeHist(clusters []Cluster, maxSize int) []int64 {
	if maxSize < 1 {
		maxSize = 1
	}
	h := make([]int64, maxSize+1)
	for _, c := range clusters {
		s := int(c.Size)
		if s > maxSize {
			s = maxSize
		}
		h[s]++
	}
	return h
}

// TotHistPerSize builds a ToT histogram per cluster size: the first index
// is the summed cluster ToT (capped at 127), the second the cluster size
// (capped at 31).
func TotHistPerSize(clusters []Cluster) [128][32]int64 {
	var h [128][32]int64
	for _, c := range clusters {
		tot := c.Tot
		if tot > 127 {
			tot = 127
		}
		size := c.Size
		if size > 31 {
			size = 31
		}
		h[tot][size]++
	}
	return h
}

// SortByEvent orders clusters by event number, then cluster ID. The
// clusterizer emits this order already; the helper exists for merged
// tables.
func SortByEvent(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].EventNumber != clusters[j].EventNumber {
			return clusters[i].EventNumber < clusters[j].EventNumber
		}
		return clusters[i].ID < clusters[j].ID
	})
}
