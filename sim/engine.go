package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crystal-sim/crystal-sim/sim/cluster"
	"github.com/crystal-sim/crystal-sim/sim/lattice"
	"github.com/crystal-sim/crystal-sim/sim/nucleation"
	"github.com/crystal-sim/crystal-sim/sim/trace"
)

var (
	// ErrTerminated is returned by Step and Run once the engine has terminated. Reset to reuse it.
	ErrTerminated = errors.New("simulation terminated")
	// ErrInvalidTransition is returned for a pause/resume that the current state does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrBusy is returned when Run or Reset is called while a run loop is active.
	ErrBusy = errors.New("run loop already active")
	// ErrInvariantViolation wraps a disagreement between the lattice and its index sets.
	ErrInvariantViolation = errors.New("lattice invariant violated")
)

// State is the engine lifecycle state.
type State int

const (
	StateReady State = iota
	StateRunning
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Termination records why the engine entered StateTerminated.
type Termination string

const (
	TerminationNone               Termination = ""
	TerminationStepBudget         Termination = "step_budget"
	TerminationCoverageLimit      Termination = "coverage_limit"
	TerminationNoEvents           Termination = "no_events"
	TerminationStopped            Termination = "stopped"
	TerminationCanceled           Termination = "canceled"
	TerminationPredicate          Termination = "stop_predicate"
	TerminationInvariantViolation Termination = "invariant_violation"
)

const defaultPollInterval = 10 * time.Millisecond

// Engine owns the lattice and every piece of derived state. All mutation
// happens on the goroutine that calls Step or Run; Pause, Resume and Stop
// may be called from elsewhere and take effect between steps.
type Engine struct {
	cfg         Config
	temperature float64

	lattice  *lattice.Lattice
	rates    *RateCalculator
	clusters *cluster.Analyzer
	// nucleationPerAtom is A·P(ΔG_hetero, T); zero when nucleation is disabled.
	nucleationPerAtom float64

	rng   *rand.Rand
	trace *trace.SimulationTrace

	clock       float64
	steps       atomic.Int64 // read by Pause, Resume and Stop from other goroutines
	attempts    int
	eventCounts [numEventClasses]int
	stallCounts [numOutcomes]int
	last        StepResult

	mu          sync.Mutex
	state       State
	termination Termination
	looping     bool

	stopRequested atomic.Bool
}

// Initialize builds an engine from the reference parameters with the given
// lattice size and temperature.
func Initialize(size int, temperature float64) (*Engine, error) {
	cfg := DefaultConfig()
	cfg.Lattice.Size = size
	cfg.Lattice.Temperature = temperature
	return New(cfg)
}

// New validates cfg and builds an engine in StateReady with the lattice seeded.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Kinetics.DiffusionBarriers = copyBarriers(cfg.Kinetics.DiffusionBarriers)

	rc, err := NewRateCalculator(cfg.Kinetics, cfg.BoltzmannConstant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	analyzer, err := cluster.NewAnalyzer(cfg.Nucleation.CriticalSize, cluster.Connectivity(cfg.Nucleation.Connectivity))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:         cfg,
		temperature: cfg.Lattice.Temperature,
		lattice:     lattice.New(cfg.Lattice.Size),
		rates:       rc,
		clusters:    analyzer,
		trace:       trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)}),
	}
	if cfg.Nucleation.Enabled {
		calc, err := nucleation.NewCalculator(cfg.nucleationParams())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		e.nucleationPerAtom, err = calc.ClusterRate(1, e.temperature)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	e.initialize()
	return e, nil
}

func copyBarriers(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// initialize puts the engine into its pristine post-construction state.
func (e *Engine) initialize() {
	e.lattice.Reset()
	e.clusters.Reset()
	e.clusters.Update(e.lattice)
	e.rng = newKineticStream(NewSimulationKey(e.cfg.Seed))
	e.trace.Reset()
	e.clock = 0
	e.steps.Store(0)
	e.attempts = 0
	e.eventCounts = [numEventClasses]int{}
	e.stallCounts = [numOutcomes]int{}
	e.last = StepResult{Event: EventNone}
	e.state = StateReady
	e.termination = TerminationNone
	e.stopRequested.Store(false)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Termination returns why the engine terminated, or TerminationNone.
func (e *Engine) Termination() Termination {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.termination
}

// Clock returns the accumulated simulated time.
func (e *Engine) Clock() float64 { return e.clock }

// StepCount returns the number of executed events.
func (e *Engine) StepCount() int { return int(e.steps.Load()) }

// Lattice returns a read-only view of the grid.
func (e *Engine) Lattice() lattice.Reader { return e.lattice }

// Trace returns the step trace collected so far.
func (e *Engine) Trace() *trace.SimulationTrace { return e.trace }

// Pause suspends a running engine. State is preserved.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("%w: pause from %v", ErrInvalidTransition, e.state)
	}
	e.state = StatePaused
	logrus.Infof("[step %07d] Simulation paused", e.steps.Load())
	return nil
}

// Resume continues a paused engine with the same clock and counters.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("%w: resume from %v", ErrInvalidTransition, e.state)
	}
	e.state = StateRunning
	logrus.Infof("[step %07d] Simulation resumed", e.steps.Load())
	return nil
}

// Stop asks an active run loop to halt before its next step. Without an
// active loop the engine terminates immediately.
func (e *Engine) Stop() {
	e.stopRequested.Store(true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.looping {
		e.terminateLocked(TerminationStopped)
	}
}

// Reset restores the seeded lattice, zeroes clock and tallies, discards
// cluster state, rewinds the random stream and returns to StateReady.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.looping {
		return ErrBusy
	}
	e.initialize()
	logrus.Info("Simulation reset")
	return nil
}

func (e *Engine) terminateLocked(reason Termination) {
	if e.state == StateTerminated {
		return
	}
	e.state = StateTerminated
	e.termination = reason
	logrus.Infof("[step %07d] Simulation terminated: %s", e.steps.Load(), reason)
}

func (e *Engine) terminate(reason Termination) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terminateLocked(reason)
}

// Rates computes the current rate table, nucleation included.
func (e *Engine) Rates() RateTable {
	r := e.rates.Compute(e.lattice, e.temperature)
	if e.nucleationPerAtom > 0 {
		atoms := 0
		for _, c := range e.clusters.CriticalClusters() {
			atoms += c.Size
		}
		r[EventNucleation] = e.nucleationPerAtom * float64(atoms)
	}
	return r
}

// Step executes exactly one kinetic Monte Carlo step.
//
// A paused engine returns OutcomePaused without touching anything. Kinetic
// stalls come back as outcomes with Dt = 0, never as errors. The error is
// non-nil only for a terminated engine or an invariant violation.
func (e *Engine) Step() (StepResult, error) {
	e.mu.Lock()
	switch e.state {
	case StateTerminated:
		e.mu.Unlock()
		return StepResult{Event: EventNone}, ErrTerminated
	case StatePaused:
		e.mu.Unlock()
		return StepResult{Event: EventNone, Outcome: OutcomePaused}, nil
	case StateReady:
		e.state = StateRunning
	}
	e.mu.Unlock()
	return e.step()
}

func (e *Engine) step() (StepResult, error) {
	e.attempts++
	rates := e.Rates()
	total := rates.Total()
	if total <= 0 {
		return e.stall(StepResult{Event: EventNone, Outcome: OutcomeNoEvents}), nil
	}

	rng := e.rng
	class := rates.Sample(rng.Float64())
	outcome, err := e.execute(class, rng)
	if err != nil {
		return StepResult{Event: class}, e.invariantViolation(err)
	}
	if outcome != OutcomeExecuted {
		return e.stall(StepResult{Event: class, Outcome: outcome}), nil
	}

	if e.cfg.CheckInvariants {
		if err := e.lattice.Verify(); err != nil {
			return StepResult{Event: class}, e.invariantViolation(err)
		}
	}
	e.clusters.Update(e.lattice)

	res := StepResult{Event: class, Outcome: OutcomeExecuted, Dt: waitingTime(rng, total)}
	e.clock += res.Dt
	steps := e.steps.Add(1)
	e.eventCounts[class]++
	e.last = res
	logrus.Debugf("[step %07d] %s dt=%.3e t=%.6e", steps, class, res.Dt, e.clock)
	e.record(res)
	return res, nil
}

func (e *Engine) stall(res StepResult) StepResult {
	e.stallCounts[res.Outcome]++
	e.last = res
	logrus.Debugf("[step %07d] stall: %s (%s)", e.steps.Load(), res.Outcome, res.Event)
	e.record(res)
	return res
}

func (e *Engine) record(res StepResult) {
	if !e.trace.Config.Enabled() {
		return
	}
	e.trace.RecordStep(trace.StepRecord{
		Step:     e.attempts,
		Event:    res.Event.String(),
		Outcome:  res.Outcome.String(),
		Dt:       res.Dt,
		Time:     e.clock,
		Coverage: e.lattice.Coverage(),
	})
}

// waitingTime draws Δt = −ln(U)/total with U uniform on (0,1).
func waitingTime(rng *rand.Rand, total float64) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return -math.Log(u) / total
}

// execute applies one event of the chosen class. Targets are picked uniformly
// within the class rather than weighted by per-site rate.
func (e *Engine) execute(class EventClass, rng *rand.Rand) (Outcome, error) {
	switch class {
	case EventAttach:
		return e.attach(rng), nil
	case EventDiffuseX, EventDiffuseY, EventDiffuseZ:
		return e.diffuse(lattice.Axis(class-EventDiffuseX), rng)
	case EventNucleation:
		return e.nucleate(rng), nil
	}
	return OutcomeNoEvents, fmt.Errorf("unhandled event class %v", class)
}

func (e *Engine) attach(rng *rand.Rand) Outcome {
	front := e.lattice.GrowthFront()
	if len(front) == 0 {
		return OutcomeNoAttachmentSite
	}
	e.lattice.Set(front[rng.Intn(len(front))], lattice.Mobile)
	return OutcomeExecuted
}

func (e *Engine) diffuse(axis lattice.Axis, rng *rand.Rand) (Outcome, error) {
	mobile := e.lattice.Mobile()
	if mobile.Len() == 0 {
		return OutcomeNoAvailableMove, nil
	}
	from := e.lattice.CoordOf(mobile.At(rng.Intn(mobile.Len())))
	vacant := e.lattice.VacantHops(from, axis)
	if len(vacant) == 0 {
		return OutcomeNoAvailableMove, nil
	}
	if err := e.lattice.Move(from, vacant[rng.Intn(len(vacant))]); err != nil {
		return OutcomeNoAvailableMove, err
	}
	return OutcomeExecuted, nil
}

func (e *Engine) nucleate(rng *rand.Rand) Outcome {
	critical := e.clusters.CriticalClusters()
	if len(critical) == 0 {
		return OutcomeNoCriticalCluster
	}
	total := 0
	for _, c := range critical {
		total += c.Size
	}
	target := rng.Intn(total)
	i := 0
	for target >= critical[i].Size {
		target -= critical[i].Size
		i++
	}
	for _, m := range critical[i].Members {
		e.lattice.Set(m, lattice.Stable)
	}
	return OutcomeExecuted
}

func (e *Engine) invariantViolation(cause error) error {
	logrus.WithFields(logrus.Fields{
		"step":     e.steps.Load(),
		"attempts": e.attempts,
		"time":     e.clock,
		"occupied": e.lattice.OccupiedCount(),
		"empty":    e.lattice.EmptyCount(),
		"mobile":   e.lattice.MobileCount(),
		"volume":   e.lattice.Volume(),
	}).Errorf("Lattice invariant violated: %v", cause)
	e.terminate(TerminationInvariantViolation)
	return fmt.Errorf("%w: %v", ErrInvariantViolation, cause)
}

// CriticalClusters returns the clusters currently eligible for nucleation.
func (e *Engine) CriticalClusters() []cluster.Cluster {
	return e.clusters.CriticalClusters()
}

// ClusterStatistics summarizes the current clusters.
func (e *Engine) ClusterStatistics() cluster.Statistics {
	return e.clusters.Statistics()
}

// RunOptions controls a Run call.
type RunOptions struct {
	// Steps is the number of Step attempts to make, stalls included. Must be > 0.
	Steps int
	// MaxCoverage stops the run once occupied/volume reaches it. Zero disables the limit.
	MaxCoverage float64
	// Observer, if set, is called with a snapshot every ObserveEvery attempts.
	Observer func(Snapshot)
	// ObserveEvery defaults to 1.
	ObserveEvery int
	// StopWhen, if set, is checked after every attempt; returning true terminates the run.
	StopWhen func(Snapshot) bool
	// PollInterval is how long the loop sleeps between checks while paused.
	PollInterval time.Duration
}

// Run drives repeated steps until the step budget is spent, the coverage limit
// is reached, no event is possible, StopWhen fires, Stop is called or ctx is
// canceled. The engine is terminated when Run returns.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (Metrics, error) {
	if opts.Steps <= 0 {
		return e.Metrics(), fmt.Errorf("run: steps must be positive, got %d", opts.Steps)
	}
	if opts.ObserveEvery <= 0 {
		opts.ObserveEvery = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	e.mu.Lock()
	switch {
	case e.state == StateTerminated:
		e.mu.Unlock()
		return e.Metrics(), ErrTerminated
	case e.looping:
		e.mu.Unlock()
		return e.Metrics(), ErrBusy
	}
	e.looping = true
	if e.state == StateReady {
		e.state = StateRunning
	}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.looping = false
		e.mu.Unlock()
	}()

	logrus.Infof("Starting simulation: lattice=%d^3, T=%gK, steps=%d, max coverage=%g, critical size=%d",
		e.cfg.Lattice.Size, e.temperature, opts.Steps, opts.MaxCoverage, e.clusters.CriticalSize())
	start := time.Now()

	reason := TerminationStepBudget
	for done := 0; done < opts.Steps; {
		if err := ctx.Err(); err != nil {
			e.terminate(TerminationCanceled)
			return e.metricsSince(start), err
		}
		if e.stopRequested.Load() {
			reason = TerminationStopped
			break
		}
		if e.State() == StatePaused {
			select {
			case <-ctx.Done():
			case <-time.After(opts.PollInterval):
			}
			continue
		}
		if opts.MaxCoverage > 0 && e.lattice.Coverage() >= opts.MaxCoverage {
			reason = TerminationCoverageLimit
			break
		}

		res, err := e.step()
		if err != nil {
			return e.metricsSince(start), err
		}
		done++
		if res.Outcome == OutcomeNoEvents {
			reason = TerminationNoEvents
			break
		}
		if opts.Observer != nil && done%opts.ObserveEvery == 0 {
			opts.Observer(e.Snapshot())
		}
		if opts.StopWhen != nil && opts.StopWhen(e.Snapshot()) {
			reason = TerminationPredicate
			break
		}
	}

	e.terminate(reason)
	m := e.metricsSince(start)
	logrus.Infof("Simulation ended after %d steps (%d attempts), t=%.6e", m.Steps, m.Attempts, m.SimTime)
	return m, nil
}
