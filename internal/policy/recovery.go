package policy

import (
	"fmt"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// weakCriterionFraction is the share of a criterion's max score below
// which it is considered a recovery target
const weakCriterionFraction = 0.7

// Recommend synthesizes a recovery recommendation for a degraded phase
// from its best iteration. Criteria scoring below 70% of their maximum
// become issues; suggestions are taken from the judge's recommendations
// in order, with a generic fallback once those run out.
func Recommend(phase domain.Phase, best *domain.Iteration) domain.RecoveryRecommendation {
	rec := domain.RecoveryRecommendation{Phase: phase}
	if best == nil || best.Result == nil {
		return rec
	}

	suggestions := best.Result.Recommendations
	next := 0
	for _, cs := range best.Result.Criteria {
		if cs.MaxScore <= 0 || cs.Score >= weakCriterionFraction*cs.MaxScore {
			continue
		}
		suggestion := fmt.Sprintf("Strengthen %s, which scored %.1f of %.1f", cs.CriterionID, cs.Score, cs.MaxScore)
		if next < len(suggestions) {
			suggestion = suggestions[next]
			next++
		}
		rec.Issues = append(rec.Issues, domain.CriterionIssue{
			CriterionID: cs.CriterionID,
			Issue:       cs.Reasoning,
			Suggestion:  suggestion,
		})
	}
	return rec
}
