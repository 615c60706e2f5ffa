package domain

import (
	"encoding/json"
	"time"
)

// RunOptions holds caller-supplied parameters for a discovery run
type RunOptions struct {
	Domain        string            `json:"domain,omitempty"`
	Constraints   map[string]string `json:"constraints,omitempty"`
	MaxIterations int               `json:"max_iterations,omitempty"` // 0 means configured default
}

// DiscoveryRun is the full state of one discovery workflow. It is owned
// exclusively by the run's orchestrator goroutine and becomes immutable
// once Status is terminal.
type DiscoveryRun struct {
	ID           string            `json:"id"`
	Query        string            `json:"query"`
	Domain       string            `json:"domain,omitempty"`
	Options      RunOptions        `json:"options"`
	Status       RunStatus         `json:"status"`
	Phases       []*PhaseExecution `json:"phases"`
	CurrentPhase int               `json:"current_phase"`
	OverallScore float64           `json:"overall_score"`
	QualityTier  QualityTier       `json:"quality_tier,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// NewDiscoveryRun builds a run with all four phases pending
func NewDiscoveryRun(id, query string, opts RunOptions) *DiscoveryRun {
	run := &DiscoveryRun{
		ID:        id,
		Query:     query,
		Domain:    opts.Domain,
		Options:   opts,
		Status:    RunIdle,
		CreatedAt: time.Now(),
	}
	for _, p := range Phases() {
		run.Phases = append(run.Phases, &PhaseExecution{Phase: p, Status: PhasePending})
	}
	return run
}

// Execution returns the PhaseExecution for the given phase, or nil
func (r *DiscoveryRun) Execution(p Phase) *PhaseExecution {
	for _, pe := range r.Phases {
		if pe.Phase == p {
			return pe
		}
	}
	return nil
}

// PhaseExecution tracks one phase's attempt history within a run
type PhaseExecution struct {
	Phase      Phase        `json:"phase"`
	Status     PhaseStatus  `json:"status"`
	Iterations []*Iteration `json:"iterations,omitempty"`
	FinalScore float64      `json:"final_score"`
	Passed     bool         `json:"passed"`
	Weight     float64      `json:"weight"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// BestIteration returns the highest-scoring iteration. Ties keep the
// earliest iteration so selection is stable. Returns nil when no
// iteration has a judge result.
func (pe *PhaseExecution) BestIteration() *Iteration {
	var best *Iteration
	for _, it := range pe.Iterations {
		if it.Result == nil {
			continue
		}
		if best == nil || it.Result.TotalScore > best.Result.TotalScore {
			best = it
		}
	}
	return best
}

// Iteration is one generate-then-judge cycle within a phase
type Iteration struct {
	Seq      int             `json:"seq"`
	Artifact json.RawMessage `json:"artifact,omitempty"`
	Result   *JudgeResult    `json:"result,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
}

// CriterionScore is one rubric criterion's score as reported by the judge
type CriterionScore struct {
	CriterionID string  `json:"criterion_id"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// JudgeResult is the aggregated outcome of judging one artifact
type JudgeResult struct {
	Criteria        []CriterionScore `json:"criteria"`
	TotalScore      float64          `json:"total_score"`
	Passed          bool             `json:"passed"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// ChangeRequest is a user-submitted mid-run steering request
type ChangeRequest struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	SubmittedAt time.Time           `json:"submitted_at"`
	Status      ChangeRequestStatus `json:"status"`
	Hints       []string            `json:"hints,omitempty"`
}

// CriterionIssue names one failing criterion and how to address it
type CriterionIssue struct {
	CriterionID string `json:"criterion_id"`
	Issue       string `json:"issue"`
	Suggestion  string `json:"suggestion"`
}

// RecoveryRecommendation summarizes why a phase was degraded and what
// would lift it over the threshold
type RecoveryRecommendation struct {
	Phase  Phase            `json:"phase"`
	Issues []CriterionIssue `json:"issues"`
}
