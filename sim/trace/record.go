// Package trace provides per-step event recording for kinetic Monte Carlo runs.
// It has no dependencies on sim/ and stores pure data types.
package trace

// StepRecord captures the outcome of a single engine step.
type StepRecord struct {
	Step     int     `yaml:"step"`     // 1-based attempt index within the run
	Event    string  `yaml:"event"`    // event class name, "none" if no class was selected
	Outcome  string  `yaml:"outcome"`  // "executed" or the stall kind
	Dt       float64 `yaml:"dt"`       // waiting time drawn for this step (0 for stalls)
	Time     float64 `yaml:"time"`     // simulation clock after the step
	Coverage float64 `yaml:"coverage"` // occupied fraction after the step
}

// Executed reports whether the step mutated the lattice.
func (r StepRecord) Executed() bool {
	return r.Outcome == OutcomeExecuted
}

// OutcomeExecuted is the Outcome string of a step that applied an event.
const OutcomeExecuted = "executed"
