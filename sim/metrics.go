// Tracks run-wide growth metrics: clock, coverage, event tallies, deposit shape.

package sim

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/crystal-sim/crystal-sim/sim/cluster"
	"github.com/crystal-sim/crystal-sim/sim/lattice"
)

// Snapshot is a read-only view of the engine taken between steps. The
// Lattice reference is only valid until the next step mutates it.
type Snapshot struct {
	State       State
	Steps       int // executed events
	Attempts    int // Step calls, stalls included
	Time        float64
	Coverage    float64
	Last        StepResult
	EventCounts map[string]int
	Clusters    cluster.Statistics
	Lattice     lattice.Reader
}

// Metrics aggregates statistics about a run for final reporting.
type Metrics struct {
	Steps            int
	Attempts         int
	SimTime          float64
	Coverage         float64
	AspectRatio      float64
	NucleationEvents int
	EventCounts      map[string]int // event class -> executed count
	StallCounts      map[string]int // stall outcome -> count
	Clusters         cluster.Statistics
	Termination      Termination
	WallTime         time.Duration
}

// Snapshot captures the current state for an observer.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:       e.State(),
		Steps:       e.StepCount(),
		Attempts:    e.attempts,
		Time:        e.clock,
		Coverage:    e.lattice.Coverage(),
		Last:        e.last,
		EventCounts: e.eventCountMap(),
		Clusters:    e.clusters.Statistics(),
		Lattice:     e.lattice,
	}
}

// Metrics returns the run metrics accumulated so far.
func (e *Engine) Metrics() Metrics {
	m := Metrics{
		Steps:            e.StepCount(),
		Attempts:         e.attempts,
		SimTime:          e.clock,
		Coverage:         e.lattice.Coverage(),
		AspectRatio:      AspectRatio(e.lattice),
		NucleationEvents: e.eventCounts[EventNucleation],
		EventCounts:      e.eventCountMap(),
		StallCounts:      make(map[string]int),
		Clusters:         e.clusters.Statistics(),
		Termination:      e.Termination(),
	}
	for o := Outcome(0); o < numOutcomes; o++ {
		if o.Stalled() {
			m.StallCounts[o.String()] = e.stallCounts[o]
		}
	}
	return m
}

func (e *Engine) metricsSince(start time.Time) Metrics {
	m := e.Metrics()
	m.WallTime = time.Since(start)
	return m
}

func (e *Engine) eventCountMap() map[string]int {
	counts := make(map[string]int, numEventClasses)
	for _, c := range EventClasses {
		counts[c.String()] = e.eventCounts[c]
	}
	return counts
}

// AspectRatio is the mean lateral (x, y) extent of the grown deposit divided
// by its vertical extent. Substrate sites are excluded; an empty deposit is 1.
func AspectRatio(l lattice.Reader) float64 {
	n := l.Size()
	lo := [3]int{n, n, n}
	hi := [3]int{-1, -1, -1}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				s := l.At(lattice.Coord{X: x, Y: y, Z: z})
				if s == lattice.Empty || s == lattice.Substrate {
					continue
				}
				v := [3]int{x, y, z}
				for k := range v {
					lo[k] = min(lo[k], v[k])
					hi[k] = max(hi[k], v[k])
				}
			}
		}
	}
	if hi[2] < 0 {
		return 1
	}
	lateral := float64((hi[0]-lo[0]+1)+(hi[1]-lo[1]+1)) / 2
	return lateral / float64(hi[2]-lo[2]+1)
}

// Print writes aggregated metrics at the end of the simulation.
func (m Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Simulated time       : %.3e s\n", m.SimTime)
	fmt.Fprintf(w, "Wall time            : %.2f s\n", m.WallTime.Seconds())
	fmt.Fprintf(w, "Steps completed      : %d (%d attempts)\n", m.Steps, m.Attempts)
	fmt.Fprintf(w, "Final coverage       : %.1f%%\n", 100*m.Coverage)
	fmt.Fprintf(w, "Aspect ratio         : %.2f\n", m.AspectRatio)
	fmt.Fprintf(w, "Nucleation events    : %d\n", m.NucleationEvents)
	fmt.Fprintf(w, "Total clusters       : %d\n", m.Clusters.TotalClusters)
	fmt.Fprintf(w, "Critical clusters    : %d\n", m.Clusters.CriticalClusters)
	fmt.Fprintf(w, "Largest cluster      : %d\n", m.Clusters.LargestSize)
	if m.Termination != TerminationNone {
		fmt.Fprintf(w, "Terminated by        : %s\n", m.Termination)
	}
	fmt.Fprintln(w, "Event counts:")
	for _, c := range EventClasses {
		fmt.Fprintf(w, "  %-18s %d\n", c.String()+":", m.EventCounts[c.String()])
	}
	if stalls := sortedKeys(m.StallCounts); len(stalls) > 0 {
		fmt.Fprintln(w, "Stalls:")
		for _, k := range stalls {
			fmt.Fprintf(w, "  %-18s %d\n", k+":", m.StallCounts[k])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
