package rubric

import (
	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Criterion is one scored dimension of a phase rubric
type Criterion struct {
	ID          string  `toml:"id"`
	Description string  `toml:"description"`
	MaxScore    float64 `toml:"max_score"`
}

// Rubric is the fixed set of criteria a phase's artifact is judged
// against. Criterion max scores sum to 10.
type Rubric struct {
	Phase    domain.Phase `toml:"phase"`
	Criteria []Criterion  `toml:"criteria"`
}

// MaxTotal returns the sum of criterion max scores
func (r Rubric) MaxTotal() float64 {
	var total float64
	for _, c := range r.Criteria {
		total += c.MaxScore
	}
	return total
}

// Criterion returns the criterion with the given id
func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// TierBand maps an inclusive minimum overall score to a quality tier
type TierBand struct {
	Min  float64
	Tier domain.QualityTier
}

// Config is the immutable scoring configuration shared by the sequencer
// and iteration controller. Construct with DefaultConfig and treat as a
// value; runs never mutate it.
type Config struct {
	PassThreshold float64
	Weights       map[domain.Phase]float64
	Tiers         []TierBand // ordered by descending Min
	Rubrics       map[domain.Phase]Rubric
}

// DefaultConfig returns the standard discovery scoring configuration
func DefaultConfig() Config {
	return Config{
		PassThreshold: 7.0,
		Weights: map[domain.Phase]float64{
			domain.PhaseResearch:   1.0,
			domain.PhaseHypothesis: 1.5,
			domain.PhaseValidation: 1.3,
			domain.PhaseOutput:     0.8,
		},
		Tiers: []TierBand{
			{Min: 9.0, Tier: domain.TierBreakthrough},
			{Min: 8.0, Tier: domain.TierSignificant},
			{Min: 7.0, Tier: domain.TierValidated},
			{Min: 5.0, Tier: domain.TierPromising},
		},
		Rubrics: defaultRubrics(),
	}
}

func defaultRubrics() map[domain.Phase]Rubric {
	return map[domain.Phase]Rubric{
		domain.PhaseResearch: {
			Phase: domain.PhaseResearch,
			Criteria: []Criterion{
				{ID: "literature_coverage", Description: "Breadth of relevant prior work surveyed", MaxScore: 3.0},
				{ID: "source_quality", Description: "Credibility and recency of cited sources", MaxScore: 2.5},
				{ID: "gap_identification", Description: "Clarity of the identified research gap", MaxScore: 2.5},
				{ID: "synthesis", Description: "Coherence of the synthesized landscape", MaxScore: 2.0},
			},
		},
		domain.PhaseHypothesis: {
			Phase: domain.PhaseHypothesis,
			Criteria: []Criterion{
				{ID: "novelty", Description: "Originality relative to surveyed work", MaxScore: 3.0},
				{ID: "feasibility", Description: "Technical and economic plausibility", MaxScore: 2.5},
				{ID: "testability", Description: "Whether the hypothesis admits a concrete test", MaxScore: 2.5},
				{ID: "impact", Description: "Expected significance if confirmed", MaxScore: 2.0},
			},
		},
		domain.PhaseValidation: {
			Phase: domain.PhaseValidation,
			Criteria: []Criterion{
				{ID: "methodology", Description: "Soundness of the validation approach", MaxScore: 3.0},
				{ID: "evidence_strength", Description: "Strength of supporting evidence", MaxScore: 3.0},
				{ID: "reproducibility", Description: "Whether the result can be independently reproduced", MaxScore: 2.0},
				{ID: "limitations", Description: "Honest treatment of limitations and failure modes", MaxScore: 2.0},
			},
		},
		domain.PhaseOutput: {
			Phase: domain.PhaseOutput,
			Criteria: []Criterion{
				{ID: "clarity", Description: "Readability of the final report", MaxScore: 2.5},
				{ID: "completeness", Description: "Coverage of findings, evidence and open questions", MaxScore: 2.5},
				{ID: "actionability", Description: "Concreteness of recommended next steps", MaxScore: 2.5},
				{ID: "rigor", Description: "Traceability of claims back to evidence", MaxScore: 2.5},
			},
		},
	}
}

// Weight returns the phase's weight in the overall score
func (c Config) Weight(p domain.Phase) float64 {
	return c.Weights[p]
}

// Tier classifies an overall score using inclusive lower bounds
func (c Config) Tier(score float64) domain.QualityTier {
	for _, band := range c.Tiers {
		if score >= band.Min {
			return band.Tier
		}
	}
	return domain.TierPreliminary
}
