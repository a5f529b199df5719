// Package analysis provides event-level correlation helpers and scan-curve
// fitting on top of interpreted hit and cluster tables.
package analysis

import (
	"sort"

	"github.com/quarklab/pixelci/internal/cluster"
)

// EventCount pairs an event number with a per-event count.
type EventCount struct {
	EventNumber int64
	Count       int64
}

// ClusterSizesPerEvent counts the entries per event in an event-ordered
// event-number column, one pair per distinct event.
func ClusterSizesPerEvent(eventNumbers []int64) []EventCount {
	var out []EventCount
	for i := 0; i < len(eventNumbers); {
		j := i + 1
		for j < len(eventNumbers) && eventNumbers[j] == eventNumbers[i] {
			j++
		}
		out = append(out, EventCount{EventNumber: eventNumbers[i], Count: int64(j - i)})
		i = j
	}
	return out
}

// EventsInBoth returns the sorted distinct event numbers present in both
// inputs. The inputs must be sorted ascending; duplicates are allowed.
func EventsInBoth(a, b []int64) []int64 {
	var out []int64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			if len(out) == 0 || out[len(out)-1] != a[i] {
				out = append(out, a[i])
			}
			i++
			j++
		}
	}
	return out
}

// MaxEventsInBoth merges two sorted event-number columns, keeping each
// event with its larger multiplicity. An event occurring twice in one
// input and once in the other appears twice in the result.
func MaxEventsInBoth(a, b []int64) []int64 {
	var out []int64
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var ev int64
		switch {
		case i >= len(a):
			ev = b[j]
		case j >= len(b):
			ev = a[i]
		case a[i] <= b[j]:
			ev = a[i]
		default:
			ev = b[j]
		}
		na := 0
		for i < len(a) && a[i] == ev {
			i++
			na++
		}
		nb := 0
		for j < len(b) && b[j] == ev {
			j++
			nb++
		}
		n := na
		if nb > n {
			n = nb
		}
		for k := 0; k < n; k++ {
			out = append(out, ev)
		}
	}
	return out
}

// In1DEvents reports for each element of a whether it occurs in b. Both
// inputs must be sorted ascending.
func In1DEvents(a, b []int64) []bool {
	mask := make([]bool, len(a))
	j := 0
	for i, ev := range a {
		for j < len(b) && b[j] < ev {
			j++
		}
		mask[i] = j < len(b) && b[j] == ev
	}
	return mask
}

// MapClusters returns one cluster per requested event. Events are looked
// up in the event-ordered cluster table; the first cluster of a matching
// event is taken, events without clusters yield a zero cluster. Repeated
// occurrences of an event also yield zero clusters; only the first
// occurrence claims the cluster.
func MapClusters(events []int64, clusters []cluster.Cluster) []cluster.Cluster {
	out := make([]cluster.Cluster, len(events))
	for i, ev := range events {
		if i > 0 && events[i-1] == ev {
			continue
		}
		idx := sort.Search(len(clusters), func(k int) bool {
			return clusters[k].EventNumber >= ev
		})
		if idx < len(clusters) && clusters[idx].EventNumber == ev {
			out[i] = clusters[idx]
		}
	}
	return out
}
