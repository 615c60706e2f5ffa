package rubric

import (
	"fmt"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// ContractViolationError reports a judge score outside its allowed range.
// The caller discards the iteration and retries once before treating the
// phase as fatal.
type ContractViolationError struct {
	CriterionID string
	Score       float64
	MaxScore    float64
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("judge contract violation: criterion %q score %.2f outside [0, %.2f]",
		e.CriterionID, e.Score, e.MaxScore)
}

// Aggregate validates raw per-criterion scores against the rubric and
// folds them into a JudgeResult. Each score must lie within
// [0, criterion max]; totals above the rubric maximum are likewise a
// contract violation. Passed uses a strict >= threshold comparison.
func Aggregate(r Rubric, threshold float64, scores []domain.CriterionScore, recommendations []string) (*domain.JudgeResult, error) {
	var total float64
	out := make([]domain.CriterionScore, 0, len(scores))

	for _, cs := range scores {
		max := cs.MaxScore
		if c, ok := r.Criterion(cs.CriterionID); ok {
			max = c.MaxScore
		}
		if cs.Score < 0 || cs.Score > max {
			return nil, &ContractViolationError{CriterionID: cs.CriterionID, Score: cs.Score, MaxScore: max}
		}
		cs.MaxScore = max
		out = append(out, cs)
		total += cs.Score
	}

	if ceiling := r.MaxTotal(); ceiling > 0 && total > ceiling {
		return nil, &ContractViolationError{CriterionID: "total", Score: total, MaxScore: ceiling}
	}

	return &domain.JudgeResult{
		Criteria:        out,
		TotalScore:      total,
		Passed:          total >= threshold,
		Recommendations: recommendations,
	}, nil
}
