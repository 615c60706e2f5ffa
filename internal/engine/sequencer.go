package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/policy"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
)

// SequenceResult summarizes a full pass over the four phases
type SequenceResult struct {
	Partial         bool
	Aborted         bool
	AbortPhase      domain.Phase
	AbortErr        error // phase-fatal error behind an abort, nil on plain exhaustion
	DegradedPhases  []domain.Phase
	Recommendations []domain.RecoveryRecommendation
}

// Sequencer walks the phases in fixed order, invoking the iteration
// controller and applying the degradation policy to exhausted phases
type Sequencer struct {
	iter    *IterationController
	pol     policy.Policy
	emitter *Emitter
}

// NewSequencer creates a sequencer emitting to the run's emitter
func NewSequencer(iter *IterationController, pol policy.Policy, emitter *Emitter) *Sequencer {
	return &Sequencer{iter: iter, pol: pol, emitter: emitter}
}

// Run executes all phases of the run. It mutates run in place and
// returns the context error on cancellation; every other failure mode is
// folded into the SequenceResult.
func (s *Sequencer) Run(ctx context.Context, run *domain.DiscoveryRun, scoring rubric.Config, checkpoint Checkpoint) (SequenceResult, error) {
	var res SequenceResult
	priors := make(map[domain.Phase]json.RawMessage)

	for idx, pe := range run.Phases {
		run.CurrentPhase = idx
		pe.Weight = scoring.Weight(pe.Phase)

		s.emitter.Emit(&ProgressEvent{
			Phase:   pe.Phase,
			Percent: idx * 100 / len(run.Phases),
			Step:    fmt.Sprintf("Running %s phase", pe.Phase),
		})

		now := time.Now()
		pe.Status = domain.PhaseRunning
		pe.StartedAt = &now

		outcome := s.iter.RunPhase(ctx, run, pe, scoring, priors, checkpoint)
		done := time.Now()
		pe.FinishedAt = &done

		if ctx.Err() != nil {
			pe.Status = domain.PhaseFailed
			return res, ctx.Err()
		}

		if outcome.Passed {
			pe.Status = domain.PhaseCompleted
			pe.Passed = true
			pe.FinalScore = outcome.Best.Result.TotalScore
			priors[pe.Phase] = outcome.Best.Artifact
			continue
		}

		// Exhaustion and phase-fatal errors converge on one decision path
		var bestScore float64
		if outcome.Best != nil {
			bestScore = outcome.Best.Result.TotalScore
		}
		decision := s.pol.Decide(pe.Phase, bestScore)
		rec := policy.Recommend(pe.Phase, outcome.Best)

		failed := make([]string, 0, len(rec.Issues))
		for _, issue := range rec.Issues {
			failed = append(failed, issue.CriterionID)
		}
		s.emitter.Emit(&PhaseFailedEvent{
			Phase:              pe.Phase,
			Score:              bestScore,
			Threshold:          scoring.PassThreshold,
			FailedCriteria:     failed,
			ContinuingDegraded: decision == policy.ContinueDegraded,
		})

		pe.Status = domain.PhaseFailed
		if outcome.Best != nil {
			// Best-of, not last: a degraded phase keeps its strongest attempt
			pe.FinalScore = bestScore
			priors[pe.Phase] = outcome.Best.Artifact
		}

		if decision == policy.ContinueDegraded {
			res.Partial = true
			res.DegradedPhases = append(res.DegradedPhases, pe.Phase)
			res.Recommendations = append(res.Recommendations, rec)
			continue
		}

		res.Aborted = true
		res.AbortPhase = pe.Phase
		res.AbortErr = outcome.Err
		for _, rest := range run.Phases[idx+1:] {
			rest.Status = domain.PhaseSkipped
		}
		break
	}

	run.OverallScore = overallScore(run)
	run.QualityTier = scoring.Tier(run.OverallScore)
	return res, nil
}

// overallScore is the weighted average of final scores over phases that
// produced one; skipped and never-judged phases carry no weight
func overallScore(run *domain.DiscoveryRun) float64 {
	var sum, weights float64
	for _, pe := range run.Phases {
		scored := pe.Status == domain.PhaseCompleted ||
			(pe.Status == domain.PhaseFailed && pe.BestIteration() != nil)
		if !scored {
			continue
		}
		sum += pe.Weight * pe.FinalScore
		weights += pe.Weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}
