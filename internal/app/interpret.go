package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/cluster"
	"github.com/quarklab/pixelci/internal/config"
	"github.com/quarklab/pixelci/internal/histogram"
	"github.com/quarklab/pixelci/internal/interpreter"
	"github.com/quarklab/pixelci/internal/output"
	"github.com/quarklab/pixelci/internal/rawfile"
	"github.com/quarklab/pixelci/internal/store"
)

var (
	interpretTriggerCount int
	interpretChunkSize    int
	interpretHits         int
	interpretClusters     bool
	interpretTotHist      bool
	interpretOccupancy    bool
	interpretNoRecord     bool

	interpretCmd = &cobra.Command{
		Use:   "interpret <file.raw|file.raw.zst>",
		Short: "Interpret a raw data file into events and hits",
		Long: `Interpret an FE-I4 raw data word stream into an event-ordered hit
table and report word, event and hit counters.

Files ending in .zst are decompressed transparently. Events are
delimited by trigger words when present, otherwise by the configured
number of data headers per event.`,
		Example: `  # Basic counters
  pixelci interpret scan_42.raw

  # Include cluster and ToT statistics
  pixelci interpret scan_42.raw.zst --clusters --tot-hist

  # Self-triggered data with 4 consecutive bunch crossings per event
  pixelci interpret selftrigger.raw --trigger-count 4`,
		Args: cobra.ExactArgs(1),
		RunE: runInterpret,
	}
)

func init() {
	interpretCmd.Flags().IntVar(&interpretTriggerCount, "trigger-count", 0, "data headers per event (default from config, 0 means 16)")
	interpretCmd.Flags().IntVar(&interpretChunkSize, "chunk-size", 0, "words to read per chunk (default from config)")
	interpretCmd.Flags().IntVar(&interpretHits, "hits", 0, "print the first N decoded hits")
	interpretCmd.Flags().BoolVar(&interpretClusters, "clusters", false, "cluster hits and show a cluster size histogram")
	interpretCmd.Flags().BoolVar(&interpretTotHist, "tot-hist", false, "show the hit ToT histogram")
	interpretCmd.Flags().BoolVar(&interpretOccupancy, "occupancy", false, "show per-plane occupancy totals")
	interpretCmd.Flags().BoolVar(&interpretNoRecord, "no-record", false, "skip recording the scan in the database")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd, &configPathFlag)
	if err != nil {
		return err
	}

	trigCount := cfg.Interpreter.TriggerCount
	if cmd.Flags().Changed("trigger-count") {
		trigCount = interpretTriggerCount
	}
	chunkSize := cfg.Interpreter.ChunkSize
	if cmd.Flags().Changed("chunk-size") {
		chunkSize = interpretChunkSize
	}
	if chunkSize < 1 {
		chunkSize = 1 << 20
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	reader, err := rawfile.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	it := interpreter.New(trigCount)
	buf := make([]uint32, chunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			it.Interpret(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	it.StoreEvent()

	hits := it.Hits()
	counters := it.Counters()
	fmt.Print(output.RenderInterpretSummary(path, info.Size(), counters, len(hits)))

	if interpretHits > 0 {
		n := interpretHits
		if n > len(hits) {
			n = len(hits)
		}
		fmt.Printf("\n%-8s %-8s %-5s %-5s %-4s %s\n", "Event", "Trigger", "Col", "Row", "ToT", "RelBCID")
		for _, h := range hits[:n] {
			fmt.Printf("%-8d %-8d %-5d %-5d %-4d %d\n",
				h.EventNumber, h.TriggerNumber, h.Column, h.Row, h.Tot, h.RelativeBCID)
		}
	}

	if interpretTotHist {
		tot := histogram.TotHist(hits)
		fmt.Printf("\n%-6s %s\n", "ToT", "Hits")
		for code, count := range tot {
			if count > 0 {
				fmt.Printf("%-6d %d\n", code, count)
			}
		}
	}

	if interpretOccupancy {
		occ := histogram.NewOccupancy(1)
		if err := occ.AddHits(hits, 0); err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(output.RenderOccupancySummary(
			[]int64{occ.Total()}, []int{occ.OccupiedPixels()}))
	}

	if interpretClusters {
		cl := cluster.New(cluster.DefaultConfig())
		clusters, _ := cl.Cluster(hits)
		fmt.Printf("\nClusters: %d\n", len(clusters))
		sizes := cluster.SizeHist(clusters, 8)
		fmt.Printf("%-6s %s\n", "Size", "Clusters")
		for size, count := range sizes {
			if size > 0 && count > 0 {
				fmt.Printf("%-6d %d\n", size, count)
			}
		}
	}

	if !interpretNoRecord {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = db.InsertScan(&store.Scan{
			Source:     path,
			TakenAt:    time.Now(),
			WordCount:  counters.Words,
			EventCount: counters.Events,
			HitCount:   int64(len(hits)),
			ErrorCount: counters.UnknownWords,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record scan: %v\n", err)
		}
	}

	return nil
}
