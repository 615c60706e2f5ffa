package engine

import (
	"context"
	"encoding/json"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// GenerateInput carries everything a Generator needs for one attempt:
// the run's base inputs, artifacts from prior phases, and the
// accumulated refinement hints for this iteration.
type GenerateInput struct {
	Query       string
	Domain      string
	Constraints map[string]string
	Priors      map[domain.Phase]json.RawMessage
	Hints       []string
}

// Generator produces a phase artifact. Implementations are expected to
// honor ctx; calls are bounded by the configured generation timeout.
type Generator interface {
	Generate(ctx context.Context, phase domain.Phase, input GenerateInput) (json.RawMessage, error)
}

// RawJudgment is a Judge's unvalidated output. Scores are validated and
// aggregated by the rubric package before they enter a run.
type RawJudgment struct {
	Scores          []domain.CriterionScore
	Recommendations []string
}

// Judge scores an artifact against the phase's rubric
type Judge interface {
	Evaluate(ctx context.Context, phase domain.Phase, artifact json.RawMessage) (RawJudgment, error)
}

// Translator turns free-text change requests into refinement hints
type Translator interface {
	Translate(ctx context.Context, text string, phase domain.Phase) ([]string, error)
}
