// Package sim provides the kinetic Monte Carlo engine for crystal growth on a
// cubic lattice, in the rejection-free (BKL) family.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: Event classes (attach, diffuse_x/y/z, nucleation) and step outcomes
//   - rates.go: Arrhenius rate table and class sampling
//   - engine.go: The state machine, one step, and the run loop
//
// # Architecture
//
// The engine owns every piece of mutable state; sub-packages are pure
// collaborators it drives:
//   - sim/lattice/: site states and O(1) occupied/empty/mobile index sets
//   - sim/cluster/: connected-component labeling of mobile atoms
//   - sim/nucleation/: classical nucleation theory barriers and probabilities
//   - sim/trace/: per-step trace recording
//
// # One Step
//
// Rates are recomputed from the lattice, a class is sampled in proportion to
// its rate, a concrete target is picked uniformly within the class, the
// lattice is mutated, clusters are relabeled, and the clock advances by
// −ln(U)/total. A class with no valid target is a stall: no mutation and no
// time advance. All randomness comes from one seeded stream (rng.go).
package sim
