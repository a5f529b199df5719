package cluster

import (
	"testing"

	"github.com/quarklab/pixelci/internal/interpreter"
)

func hit(event int64, col uint8, row uint16, tot uint8, bcid uint8) interpreter.Hit {
	return interpreter.Hit{
		EventNumber:  event,
		Column:       col,
		Row:          row,
		Tot:          tot,
		RelativeBCID: bcid,
	}
}

func TestSingleCluster(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 11, 101, 7, 0),
		hit(0, 10, 102, 1, 1),
	}
	clusters, infos := New(DefaultConfig()).Cluster(hits)

	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	c := clusters[0]
	if c.Size != 3 {
		t.Errorf("size = %d, want 3", c.Size)
	}
	if c.Tot != 11 {
		t.Errorf("tot = %d, want 11", c.Tot)
	}
	if c.SeedColumn != 11 || c.SeedRow != 101 {
		t.Errorf("seed = %d/%d, want 11/101", c.SeedColumn, c.SeedRow)
	}
	if len(infos) != 3 {
		t.Fatalf("hit infos = %d, want 3", len(infos))
	}
	seeds := 0
	for _, in := range infos {
		if in.ClusterID != 0 {
			t.Errorf("cluster id = %d, want 0", in.ClusterID)
		}
		if in.IsSeed {
			seeds++
		}
	}
	if seeds != 1 {
		t.Errorf("seed hits = %d, want 1", seeds)
	}
}

func TestSplitByColumnWindow(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 12, 100, 3, 0), // two columns away, outside the window
	}
	clusters, _ := New(DefaultConfig()).Cluster(hits)
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
	if clusters[0].ID != 0 || clusters[1].ID != 1 {
		t.Errorf("ids = %d,%d, want 0,1", clusters[0].ID, clusters[1].ID)
	}
}

func TestSplitByBCIDWindow(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 10, 101, 3, 3), // same pixel region but 3 BCIDs later
	}
	clusters, _ := New(DefaultConfig()).Cluster(hits)
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
}

func TestNoClusteringAcrossEvents(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(1, 10, 100, 3, 0),
	}
	clusters, _ := New(DefaultConfig()).Cluster(hits)
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
	if clusters[0].EventNumber != 0 || clusters[1].EventNumber != 1 {
		t.Errorf("event numbers = %d,%d, want 0,1",
			clusters[0].EventNumber, clusters[1].EventNumber)
	}
	// Cluster IDs restart per event.
	if clusters[1].ID != 0 {
		t.Errorf("second event cluster id = %d, want 0", clusters[1].ID)
	}
}

func TestChainedNeighbors(t *testing.T) {
	// a-b and b-c are in range, a-c is not; all three must merge.
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 11, 102, 3, 0),
		hit(0, 12, 104, 3, 0),
	}
	clusters, _ := New(DefaultConfig()).Cluster(hits)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	if clusters[0].Size != 3 {
		t.Errorf("size = %d, want 3", clusters[0].Size)
	}
}

func TestMinSizeDropsSmallClusters(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 10, 101, 3, 0),
		hit(0, 50, 200, 3, 0), // isolated single hit
	}
	cfg := DefaultConfig()
	cfg.MinSize = 2
	clusters, infos := New(cfg).Cluster(hits)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	if clusters[0].Size != 2 {
		t.Errorf("size = %d, want 2", clusters[0].Size)
	}
	if len(infos) != 2 {
		t.Errorf("hit infos = %d, want 2", len(infos))
	}
}

func TestMeanPosition(t *testing.T) {
	hits := []interpreter.Hit{
		hit(0, 10, 100, 3, 0),
		hit(0, 11, 102, 3, 0),
	}
	clusters, _ := New(DefaultConfig()).Cluster(hits)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	if clusters[0].MeanColumn != 10.5 {
		t.Errorf("mean column = %v, want 10.5", clusters[0].MeanColumn)
	}
	if clusters[0].MeanRow != 101 {
		t.Errorf("mean row = %v, want 101", clusters[0].MeanRow)
	}
}

func TestSizeHist(t *testing.T) {
	clusters := []Cluster{
		{Size: 1}, {Size: 1}, {Size: 2}, {Size: 9},
	}
	h := SizeHist(clusters, 4)
	if h[1] != 2 || h[2] != 1 || h[4] != 1 {
		t.Errorf("hist = %v", h)
	}
}

func TestTotHistPerSize(t *testing.T) {
	clusters := []Cluster{
		{Tot: 5, Size: 2},
		{Tot: 5, Size: 2},
		{Tot: 500, Size: 40},
	}
	h := TotHistPerSize(clusters)
	if h[5][2] != 2 {
		t.Errorf("h[5][2] = %d, want 2", h[5][2])
	}
	if h[127][31] != 1 {
		t.Errorf("h[127][31] = %d, want 1", h[127][31])
	}
}
