package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSteps          int
	ExecutedCount       int
	StalledCount        int
	MeanDt              float64 // over executed steps
	MaxDt               float64
	FinalTime           float64
	FinalCoverage       float64
	EventDistribution   map[string]int // event class → executed count
	OutcomeDistribution map[string]int // outcome → count, stalls included
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventDistribution:   make(map[string]int),
		OutcomeDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalSteps = len(st.Steps)
	totalDt := 0.0
	for _, r := range st.Steps {
		summary.OutcomeDistribution[r.Outcome]++
		if !r.Executed() {
			summary.StalledCount++
			continue
		}
		summary.ExecutedCount++
		summary.EventDistribution[r.Event]++
		totalDt += r.Dt
		if r.Dt > summary.MaxDt {
			summary.MaxDt = r.Dt
		}
	}
	if summary.ExecutedCount > 0 {
		summary.MeanDt = totalDt / float64(summary.ExecutedCount)
	}
	if n := len(st.Steps); n > 0 {
		summary.FinalTime = st.Steps[n-1].Time
		summary.FinalCoverage = st.Steps[n-1].Coverage
	}

	return summary
}
