// Package cluster labels connected groups of mobile atoms on a lattice and
// reports which of them are large enough to nucleate.
package cluster

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/crystal-sim/crystal-sim/sim/lattice"
)

// Connectivity selects which neighbors count as touching.
type Connectivity int

const (
	// Face joins only the six face-adjacent sites.
	Face Connectivity = 6
	// Full joins all 26 sites of the surrounding 3x3x3 block, diagonals included.
	Full Connectivity = 26
)

// ParseConnectivity accepts 6 or 26.
func ParseConnectivity(n int) (Connectivity, error) {
	switch Connectivity(n) {
	case Face, Full:
		return Connectivity(n), nil
	}
	return 0, fmt.Errorf("unsupported connectivity %d; valid: 6, 26", n)
}

func (c Connectivity) offsets() []lattice.Coord {
	var out []lattice.Coord
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				nonzero := 0
				for _, d := range [3]int{dx, dy, dz} {
					if d != 0 {
						nonzero++
					}
				}
				if nonzero == 0 || (c == Face && nonzero > 1) {
					continue
				}
				out = append(out, lattice.Coord{X: dx, Y: dy, Z: dz})
			}
		}
	}
	return out
}

// Cluster is one connected component of mobile sites. IDs are assigned in
// raster order of each cluster's first site and are only meaningful within
// a single analysis pass.
type Cluster struct {
	ID      int
	Size    int
	Center  [3]float64 // centroid of member coordinates
	Extent  [3]int     // max - min along x, y, z
	Members []lattice.Coord
}

// Statistics summarizes the clusters of the latest pass.
type Statistics struct {
	TotalClusters    int
	CriticalClusters int
	LargestSize      int
	MeanSize         float64
	SizeDistribution map[int]int // size -> number of clusters of that size
}

// Analyzer recomputes clusters from scratch on every Update.
type Analyzer struct {
	criticalSize int
	offsets      []lattice.Coord
	clusters     []Cluster
	labels       []int
}

// NewAnalyzer creates an analyzer. criticalSize must be at least 1.
func NewAnalyzer(criticalSize int, conn Connectivity) (*Analyzer, error) {
	if criticalSize < 1 {
		return nil, fmt.Errorf("critical cluster size must be >= 1, got %d", criticalSize)
	}
	if _, err := ParseConnectivity(int(conn)); err != nil {
		return nil, err
	}
	return &Analyzer{criticalSize: criticalSize, offsets: conn.offsets()}, nil
}

// CriticalSize returns the nucleation threshold.
func (a *Analyzer) CriticalSize() int { return a.criticalSize }

// Update labels every connected component of mobile sites in l.
// Labeling does not wrap across the periodic x/y faces.
func (a *Analyzer) Update(l lattice.Reader) {
	n := l.Size()
	if len(a.labels) != n*n*n {
		a.labels = make([]int, n*n*n)
	} else {
		for i := range a.labels {
			a.labels[i] = 0
		}
	}
	a.clusters = nil

	index := func(c lattice.Coord) int { return (c.X*n+c.Y)*n + c.Z }
	inBounds := func(c lattice.Coord) bool {
		return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n && c.Z >= 0 && c.Z < n
	}

	var queue []lattice.Coord
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				start := lattice.Coord{X: x, Y: y, Z: z}
				if l.At(start) != lattice.Mobile || a.labels[index(start)] != 0 {
					continue
				}
				id := len(a.clusters) + 1
				a.labels[index(start)] = id
				queue = append(queue[:0], start)
				var members []lattice.Coord
				for len(queue) > 0 {
					c := queue[0]
					queue = queue[1:]
					members = append(members, c)
					for _, d := range a.offsets {
						nb := lattice.Coord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
						if !inBounds(nb) || a.labels[index(nb)] != 0 || l.At(nb) != lattice.Mobile {
							continue
						}
						a.labels[index(nb)] = id
						queue = append(queue, nb)
					}
				}
				a.clusters = append(a.clusters, describe(id, members))
			}
		}
	}
}

func describe(id int, members []lattice.Coord) Cluster {
	sort.Slice(members, func(i, j int) bool {
		mi, mj := members[i], members[j]
		if mi.X != mj.X {
			return mi.X < mj.X
		}
		if mi.Y != mj.Y {
			return mi.Y < mj.Y
		}
		return mi.Z < mj.Z
	})
	lo := [3]int{members[0].X, members[0].Y, members[0].Z}
	hi := lo
	var sum [3]float64
	for _, m := range members {
		v := [3]int{m.X, m.Y, m.Z}
		for k := 0; k < 3; k++ {
			sum[k] += float64(v[k])
			lo[k] = min(lo[k], v[k])
			hi[k] = max(hi[k], v[k])
		}
	}
	c := Cluster{ID: id, Size: len(members), Members: members}
	for k := 0; k < 3; k++ {
		c.Center[k] = sum[k] / float64(len(members))
		c.Extent[k] = hi[k] - lo[k]
	}
	return c
}

// Clusters returns every cluster of the latest pass. Callers must not modify the result.
func (a *Analyzer) Clusters() []Cluster { return a.clusters }

// CriticalClusters returns clusters whose size is at least the critical size.
func (a *Analyzer) CriticalClusters() []Cluster {
	var out []Cluster
	for _, c := range a.clusters {
		if c.Size >= a.criticalSize {
			out = append(out, c)
		}
	}
	return out
}

// Statistics summarizes the latest pass.
func (a *Analyzer) Statistics() Statistics {
	s := Statistics{
		TotalClusters:    len(a.clusters),
		SizeDistribution: make(map[int]int),
	}
	if len(a.clusters) == 0 {
		return s
	}
	sizes := make([]float64, len(a.clusters))
	for i, c := range a.clusters {
		sizes[i] = float64(c.Size)
		s.SizeDistribution[c.Size]++
		s.LargestSize = max(s.LargestSize, c.Size)
		if c.Size >= a.criticalSize {
			s.CriticalClusters++
		}
	}
	s.MeanSize = stat.Mean(sizes, nil)
	return s
}

// Reset discards all cluster state.
func (a *Analyzer) Reset() {
	a.clusters = nil
	for i := range a.labels {
		a.labels[i] = 0
	}
}
