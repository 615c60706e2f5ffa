package domain

import "testing"

func TestPhases_Order(t *testing.T) {
	phases := Phases()
	want := []Phase{PhaseResearch, PhaseHypothesis, PhaseValidation, PhaseOutput}
	if len(phases) != len(want) {
		t.Fatalf("Phase count = %d, want %d", len(phases), len(want))
	}
	for i, p := range want {
		if phases[i] != p {
			t.Errorf("Phases()[%d] = %s, want %s", i, phases[i], p)
		}
		if p.Index() != i {
			t.Errorf("%s.Index() = %d, want %d", p, p.Index(), i)
		}
	}
}

func TestPhase_Foundational(t *testing.T) {
	if !PhaseResearch.Foundational() || !PhaseHypothesis.Foundational() {
		t.Error("research and hypothesis should be foundational")
	}
	if PhaseValidation.Foundational() || PhaseOutput.Foundational() {
		t.Error("validation and output should not be foundational")
	}
}

func TestRunStatus_Terminal(t *testing.T) {
	terminal := []RunStatus{RunCompleted, RunCompletedPartial, RunFailed, RunCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []RunStatus{RunIdle, RunStarting, RunRunning, RunPaused} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestNewDiscoveryRun(t *testing.T) {
	run := NewDiscoveryRun("r1", "cheap green hydrogen", RunOptions{Domain: "chemistry"})

	if run.Status != RunIdle {
		t.Errorf("Status = %s, want %s", run.Status, RunIdle)
	}
	if len(run.Phases) != 4 {
		t.Fatalf("Phase executions = %d, want 4", len(run.Phases))
	}
	for i, pe := range run.Phases {
		if pe.Status != PhasePending {
			t.Errorf("Phase %d status = %s, want pending", i, pe.Status)
		}
	}
	if run.Execution(PhaseValidation) == nil {
		t.Error("Execution(validation) = nil")
	}
}

func TestPhaseExecution_BestIteration(t *testing.T) {
	pe := &PhaseExecution{
		Phase: PhaseValidation,
		Iterations: []*Iteration{
			{Seq: 1, Result: &JudgeResult{TotalScore: 5.5}},
			{Seq: 2, Result: &JudgeResult{TotalScore: 6.8}},
			{Seq: 3, Result: &JudgeResult{TotalScore: 6.8}},
			{Seq: 4, Result: &JudgeResult{TotalScore: 6.1}},
		},
	}

	best := pe.BestIteration()
	if best == nil {
		t.Fatal("BestIteration() = nil")
	}
	if best.Seq != 2 {
		t.Errorf("Best iteration seq = %d, want 2 (earliest of the tied best)", best.Seq)
	}
}

func TestPhaseExecution_BestIteration_NoResults(t *testing.T) {
	pe := &PhaseExecution{
		Phase:      PhaseResearch,
		Iterations: []*Iteration{{Seq: 1}},
	}
	if pe.BestIteration() != nil {
		t.Error("BestIteration() should be nil when no iteration was judged")
	}
}
