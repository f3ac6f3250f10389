package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalSteps != 0 || summary.ExecutedCount != 0 {
		t.Error("expected zero counts for nil trace")
	}
	if summary.EventDistribution == nil || summary.OutcomeDistribution == nil {
		t.Error("expected non-nil distributions")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalSteps != 0 {
		t.Errorf("expected 0 total steps, got %d", summary.TotalSteps)
	}
	if summary.ExecutedCount != 0 || summary.StalledCount != 0 {
		t.Error("expected 0 executed and stalled")
	}
	if summary.MeanDt != 0 || summary.MaxDt != 0 {
		t.Error("expected 0 dt values")
	}
	if len(summary.EventDistribution) != 0 {
		t.Error("expected empty event distribution")
	}
}

func TestSummarize_MixedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with executed steps and stalls
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})
	st.RecordStep(StepRecord{Step: 1, Event: "attach", Outcome: OutcomeExecuted, Dt: 0.1, Time: 0.1, Coverage: 0.2})
	st.RecordStep(StepRecord{Step: 2, Event: "diffuse_z", Outcome: "no_available_move", Time: 0.1, Coverage: 0.2})
	st.RecordStep(StepRecord{Step: 3, Event: "attach", Outcome: OutcomeExecuted, Dt: 0.5, Time: 0.6, Coverage: 0.3})
	st.RecordStep(StepRecord{Step: 4, Event: "diffuse_x", Outcome: OutcomeExecuted, Dt: 0.2, Time: 0.8, Coverage: 0.3})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalSteps != 4 {
		t.Errorf("expected 4 total steps, got %d", summary.TotalSteps)
	}
	if summary.ExecutedCount != 3 {
		t.Errorf("expected 3 executed, got %d", summary.ExecutedCount)
	}
	if summary.StalledCount != 1 {
		t.Errorf("expected 1 stalled, got %d", summary.StalledCount)
	}
	if summary.EventDistribution["attach"] != 2 || summary.EventDistribution["diffuse_x"] != 1 {
		t.Errorf("unexpected event distribution %v", summary.EventDistribution)
	}
	if _, ok := summary.EventDistribution["diffuse_z"]; ok {
		t.Error("stalled class must not appear in event distribution")
	}
	if summary.OutcomeDistribution["no_available_move"] != 1 {
		t.Errorf("unexpected outcome distribution %v", summary.OutcomeDistribution)
	}

	// THEN mean dt = (0.1 + 0.5 + 0.2) / 3 over executed steps only
	expectedMean := (0.1 + 0.5 + 0.2) / 3.0
	if summary.MeanDt < expectedMean-0.001 || summary.MeanDt > expectedMean+0.001 {
		t.Errorf("expected mean dt ~%.4f, got %.4f", expectedMean, summary.MeanDt)
	}
	if summary.MaxDt != 0.5 {
		t.Errorf("expected max dt 0.5, got %.4f", summary.MaxDt)
	}
	if summary.FinalTime != 0.8 || summary.FinalCoverage != 0.3 {
		t.Errorf("expected final time 0.8 and coverage 0.3, got %v and %v", summary.FinalTime, summary.FinalCoverage)
	}
}
