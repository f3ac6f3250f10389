package sim

import "fmt"

// EventClass is the closed set of kinetic event kinds the engine can select.
type EventClass int

const (
	EventAttach EventClass = iota
	EventDiffuseX
	EventDiffuseY
	EventDiffuseZ
	EventNucleation

	numEventClasses
)

// EventNone marks a step in which no event class was selected.
const EventNone EventClass = -1

// EventClasses lists every class in selection order.
var EventClasses = [numEventClasses]EventClass{
	EventAttach, EventDiffuseX, EventDiffuseY, EventDiffuseZ, EventNucleation,
}

var eventNames = [numEventClasses]string{"attach", "diffuse_x", "diffuse_y", "diffuse_z", "nucleation"}

func (c EventClass) String() string {
	if c >= 0 && c < numEventClasses {
		return eventNames[c]
	}
	if c == EventNone {
		return "none"
	}
	return fmt.Sprintf("event(%d)", int(c))
}

// Outcome classifies what a single step did.
type Outcome int

const (
	// OutcomeExecuted means an event mutated the lattice and time advanced.
	OutcomeExecuted Outcome = iota
	// OutcomeNoEvents means the total rate was zero; nothing can happen.
	OutcomeNoEvents
	// OutcomeNoAttachmentSite means attach was selected but the growth front is empty.
	OutcomeNoAttachmentSite
	// OutcomeNoAvailableMove means the chosen atom had no vacant hop along the chosen axis.
	OutcomeNoAvailableMove
	// OutcomeNoCriticalCluster means nucleation was selected with no critical cluster present.
	OutcomeNoCriticalCluster
	// OutcomePaused means the engine is paused and the step was not taken.
	OutcomePaused

	numOutcomes
)

var outcomeNames = [numOutcomes]string{
	"executed", "no_events", "no_attachment_site", "no_available_move", "no_critical_cluster", "paused",
}

func (o Outcome) String() string {
	if o >= 0 && o < numOutcomes {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Stalled reports whether the step was a kinetic no-op. Stalls are not errors:
// the engine stays steppable.
func (o Outcome) Stalled() bool {
	return o != OutcomeExecuted && o != OutcomePaused
}

// StepResult is the observable result of one Step call. Dt is zero unless
// Outcome is OutcomeExecuted.
type StepResult struct {
	Event   EventClass
	Outcome Outcome
	Dt      float64
}
