// Package lattice holds the cubic growth grid: per-site states plus
// incrementally maintained index sets of occupied, empty and mobile sites.
//
// Periodic boundaries apply in x and y. The z axis is bounded: z=0 is the
// substrate floor and nothing wraps from the top layer back to it.
package lattice

import (
	"fmt"
)

// SiteState is the categorical content of one grid cell.
type SiteState uint8

const (
	Empty SiteState = iota
	Substrate
	Mobile
	Stable
	Defect
	// Nucleation and Cluster are tags for analysis output only; kinetics never reads them.
	Nucleation
	Cluster
)

var stateNames = [...]string{"empty", "substrate", "mobile", "stable", "defect", "nucleation", "cluster"}

func (s SiteState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Coord is a lattice coordinate. Each component lies in [0, Size).
type Coord struct {
	X, Y, Z int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Axis names one of the three hop directions.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// NumAxes is the number of lattice axes.
const NumAxes = 3

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis maps "x", "y" or "z" to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch name {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown direction %q; valid: x, y, z", name)
}

// Reader is the read-only view handed to observers after a step completes.
type Reader interface {
	Size() int
	At(c Coord) SiteState
	OccupiedCount() int
	EmptyCount() int
	MobileCount() int
	Coverage() float64
}

// Lattice is the mutable grid. It is not safe for concurrent mutation; the
// engine that owns it is the only writer.
type Lattice struct {
	size     int
	states   []SiteState
	occupied *IndexSet
	empty    *IndexSet
	mobile   *IndexSet
}

var _ Reader = (*Lattice)(nil)

// New allocates an all-empty lattice of side size.
func New(size int) *Lattice {
	l := &Lattice{
		size:   size,
		states: make([]SiteState, size*size*size),
	}
	l.Clear()
	return l
}

// Size returns the side length N.
func (l *Lattice) Size() int { return l.size }

// Volume returns N³.
func (l *Lattice) Volume() int { return len(l.states) }

// Index returns the linear index of c in x-major raster order.
func (l *Lattice) Index(c Coord) int {
	return (c.X*l.size+c.Y)*l.size + c.Z
}

// CoordOf is the inverse of Index.
func (l *Lattice) CoordOf(idx int) Coord {
	z := idx % l.size
	idx /= l.size
	return Coord{X: idx / l.size, Y: idx % l.size, Z: z}
}

// InBounds reports whether c lies inside the grid.
func (l *Lattice) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < l.size && c.Y >= 0 && c.Y < l.size && c.Z >= 0 && c.Z < l.size
}

// At returns the state at c.
func (l *Lattice) At(c Coord) SiteState {
	return l.states[l.Index(c)]
}

// Set writes state at c and keeps the index sets in step with it.
func (l *Lattice) Set(c Coord, s SiteState) {
	l.SetIndex(l.Index(c), s)
}

// SetIndex is Set addressed by linear index.
func (l *Lattice) SetIndex(idx int, s SiteState) {
	prev := l.states[idx]
	if prev == s {
		return
	}
	l.states[idx] = s
	switch {
	case prev == Empty:
		l.empty.Remove(idx)
		l.occupied.Add(idx)
	case s == Empty:
		l.occupied.Remove(idx)
		l.empty.Add(idx)
	}
	if prev == Mobile {
		l.mobile.Remove(idx)
	}
	if s == Mobile {
		l.mobile.Add(idx)
	}
}

// Move relocates the state at from into the empty site to and leaves from empty.
func (l *Lattice) Move(from, to Coord) error {
	fi, ti := l.Index(from), l.Index(to)
	if l.states[ti] != Empty {
		return fmt.Errorf("move %v -> %v: target is %v", from, to, l.states[ti])
	}
	s := l.states[fi]
	if s == Empty {
		return fmt.Errorf("move %v -> %v: source is empty", from, to)
	}
	l.SetIndex(fi, Empty)
	l.SetIndex(ti, s)
	return nil
}

// Clear empties every site and rebuilds the index sets, so a cleared lattice
// is indistinguishable from a freshly allocated one.
func (l *Lattice) Clear() {
	n := len(l.states)
	l.occupied = NewIndexSet(n)
	l.empty = NewIndexSet(n)
	l.mobile = NewIndexSet(n)
	for i := range l.states {
		l.states[i] = Empty
		l.empty.Add(i)
	}
}

// Seed lays the substrate floor at z=0 and places one mobile atom above its center.
func (l *Lattice) Seed() {
	for x := 0; x < l.size; x++ {
		for y := 0; y < l.size; y++ {
			l.Set(Coord{X: x, Y: y, Z: 0}, Substrate)
		}
	}
	center := l.size / 2
	l.Set(Coord{X: center, Y: center, Z: 1}, Mobile)
}

// Reset clears the grid and re-seeds it.
func (l *Lattice) Reset() {
	l.Clear()
	l.Seed()
}

func (l *Lattice) OccupiedCount() int { return l.occupied.Len() }
func (l *Lattice) EmptyCount() int    { return l.empty.Len() }
func (l *Lattice) MobileCount() int   { return l.mobile.Len() }

// Occupied, Empty and Mobile expose the index sets for iteration and sampling.
// Callers must not mutate them.
func (l *Lattice) Occupied() *IndexSet { return l.occupied }
func (l *Lattice) Empty() *IndexSet    { return l.empty }
func (l *Lattice) Mobile() *IndexSet   { return l.mobile }

// Coverage is the occupied fraction of the whole grid, substrate included.
func (l *Lattice) Coverage() float64 {
	return float64(l.occupied.Len()) / float64(len(l.states))
}

// Hop returns the neighbor one unit step along axis in direction sign (+1 or -1).
// x and y wrap; a z hop off either face reports ok=false.
func (l *Lattice) Hop(c Coord, axis Axis, sign int) (Coord, bool) {
	switch axis {
	case AxisX:
		c.X = wrap(c.X+sign, l.size)
	case AxisY:
		c.Y = wrap(c.Y+sign, l.size)
	case AxisZ:
		c.Z += sign
		if c.Z < 0 || c.Z >= l.size {
			return c, false
		}
	}
	return c, true
}

// VacantHops returns the empty sites reachable by a ± hop along axis, in (+, -) order.
func (l *Lattice) VacantHops(c Coord, axis Axis) []Coord {
	var out []Coord
	for _, sign := range [2]int{1, -1} {
		if n, ok := l.Hop(c, axis, sign); ok && l.At(n) == Empty {
			out = append(out, n)
		}
	}
	return out
}

// CountVacantHops is VacantHops without the allocation.
func (l *Lattice) CountVacantHops(c Coord, axis Axis) int {
	count := 0
	for _, sign := range [2]int{1, -1} {
		if n, ok := l.Hop(c, axis, sign); ok && l.At(n) == Empty {
			count++
		}
	}
	return count
}

// anchored reports whether any face neighbor of c is substrate or stable.
func (l *Lattice) anchored(c Coord) bool {
	for axis := AxisX; axis <= AxisZ; axis++ {
		for _, sign := range [2]int{1, -1} {
			n, ok := l.Hop(c, axis, sign)
			if !ok {
				continue
			}
			if s := l.states[l.Index(n)]; s == Substrate || s == Stable {
				return true
			}
		}
	}
	return false
}

// GrowthFront returns every empty site face-adjacent to a substrate or stable
// site, in ascending index order. Only the result slice is allocated.
func (l *Lattice) GrowthFront() []Coord {
	var front []Coord
	for idx, s := range l.states {
		if s != Empty {
			continue
		}
		if c := l.CoordOf(idx); l.anchored(c) {
			front = append(front, c)
		}
	}
	return front
}

// Verify checks that the index sets agree with the state array.
func (l *Lattice) Verify() error {
	if l.occupied.Len()+l.empty.Len() != len(l.states) {
		return fmt.Errorf("index sets cover %d+%d sites, lattice has %d",
			l.occupied.Len(), l.empty.Len(), len(l.states))
	}
	mobile := 0
	for idx, s := range l.states {
		if s == Empty {
			if !l.empty.Contains(idx) || l.occupied.Contains(idx) {
				return fmt.Errorf("site %v is empty but indexed as occupied", l.CoordOf(idx))
			}
		} else if !l.occupied.Contains(idx) || l.empty.Contains(idx) {
			return fmt.Errorf("site %v is %v but indexed as empty", l.CoordOf(idx), s)
		}
		if s == Mobile {
			mobile++
			if !l.mobile.Contains(idx) {
				return fmt.Errorf("mobile site %v missing from mobile index", l.CoordOf(idx))
			}
		}
	}
	if mobile != l.mobile.Len() {
		return fmt.Errorf("mobile index holds %d sites, lattice has %d", l.mobile.Len(), mobile)
	}
	return nil
}

func wrap(v, n int) int {
	return (v%n + n) % n
}
