package sim

import (
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible simulation run.
// Two engines with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical event sequences.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// newKineticStream returns the single stream every kinetic draw comes from:
// event class, target site, hop direction, nucleating cluster, waiting time.
// It is seeded with the key directly, so a seed reproduces rand.NewSource(seed).
//
// Thread-safety: NOT thread-safe. Only the stepping goroutine draws from it.
func newKineticStream(key SimulationKey) *rand.Rand {
	return rand.New(rand.NewSource(int64(key)))
}
