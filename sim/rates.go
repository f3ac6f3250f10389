package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/crystal-sim/crystal-sim/sim/lattice"
)

// RateTable holds the aggregate rate of every event class, in events per
// unit time (same units as the attempt frequency). Recomputed every step.
type RateTable [numEventClasses]float64

// Get returns the rate of class c.
func (r RateTable) Get(c EventClass) float64 { return r[c] }

// Total returns the sum of all class rates.
func (r RateTable) Total() float64 { return floats.Sum(r[:]) }

// Map returns the table keyed by event-class name.
func (r RateTable) Map() map[string]float64 {
	m := make(map[string]float64, len(r))
	for _, c := range EventClasses {
		m[c.String()] = r[c]
	}
	return m
}

// Sample picks a class with probability proportional to its rate, given u
// uniform on [0,1). Returns EventNone if every rate is zero.
func (r RateTable) Sample(u float64) EventClass {
	total := r.Total()
	if total <= 0 {
		return EventNone
	}
	target := u * total
	last := EventNone
	acc := 0.0
	for _, c := range EventClasses {
		if r[c] <= 0 {
			continue
		}
		acc += r[c]
		last = c
		if target < acc {
			return c
		}
	}
	// rounding can leave target a hair above the final cumulative sum
	return last
}

// RateCalculator turns the lattice and temperature into attachment and
// directional diffusion rates using Arrhenius kinetics.
type RateCalculator struct {
	attemptFrequency  float64
	attachBarrier     float64
	diffusionBarriers [lattice.NumAxes]float64
	boltzmann         float64
}

// NewRateCalculator validates the keyed barrier map and builds a calculator.
func NewRateCalculator(k KineticsConfig, boltzmann float64) (*RateCalculator, error) {
	barriers, err := k.axisBarriers()
	if err != nil {
		return nil, err
	}
	return &RateCalculator{
		attemptFrequency:  k.AttemptFrequency,
		attachBarrier:     k.AttachBarrier,
		diffusionBarriers: barriers,
		boltzmann:         boltzmann,
	}, nil
}

// Arrhenius returns A·exp(−barrier / (k_B·T)).
func (rc *RateCalculator) Arrhenius(barrier, temperature float64) float64 {
	return rc.attemptFrequency * math.Exp(-barrier/(rc.boltzmann*temperature))
}

// DiffusionClass maps an axis to its diffusion event class.
func DiffusionClass(axis lattice.Axis) EventClass {
	return EventDiffuseX + EventClass(axis)
}

// Compute fills the attach and diffuse_* entries. The nucleation entry is left
// at zero; the engine owns it because it depends on cluster state.
//
// Attachment treats every empty site as a candidate. Diffusion along an axis
// counts, for each mobile atom, the vacant sites one hop away in + and −.
func (rc *RateCalculator) Compute(l *lattice.Lattice, temperature float64) RateTable {
	var r RateTable
	r[EventAttach] = rc.Arrhenius(rc.attachBarrier, temperature) * float64(l.EmptyCount())

	var vacant [lattice.NumAxes]int
	for _, idx := range l.Mobile().Items() {
		c := l.CoordOf(idx)
		for axis := lattice.AxisX; axis <= lattice.AxisZ; axis++ {
			vacant[axis] += l.CountVacantHops(c, axis)
		}
	}
	for axis := lattice.AxisX; axis <= lattice.AxisZ; axis++ {
		if vacant[axis] == 0 {
			continue
		}
		r[DiffusionClass(axis)] = rc.Arrhenius(rc.diffusionBarriers[axis], temperature) * float64(vacant[axis])
	}
	return r
}
