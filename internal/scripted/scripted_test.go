package scripted

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/engine"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
)

func TestProvider_Deterministic(t *testing.T) {
	p := New(rubric.DefaultConfig())
	ctx := context.Background()
	input := engine.GenerateInput{Query: "solid-state electrolytes"}

	a1, err := p.Generate(ctx, domain.PhaseResearch, input)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := p.Generate(ctx, domain.PhaseResearch, input)
	if err != nil {
		t.Fatal(err)
	}
	if string(a1) != string(a2) {
		t.Error("identical inputs produced different artifacts")
	}

	j1, err := p.Evaluate(ctx, domain.PhaseResearch, a1)
	if err != nil {
		t.Fatal(err)
	}
	j2, err := p.Evaluate(ctx, domain.PhaseResearch, a2)
	if err != nil {
		t.Fatal(err)
	}
	if len(j1.Scores) != len(j2.Scores) {
		t.Fatalf("score counts differ: %d vs %d", len(j1.Scores), len(j2.Scores))
	}
	for i := range j1.Scores {
		if j1.Scores[i].Score != j2.Scores[i].Score {
			t.Errorf("criterion %s scored %v then %v", j1.Scores[i].CriterionID, j1.Scores[i].Score, j2.Scores[i].Score)
		}
	}
}

func TestProvider_ScoresImproveWithHints(t *testing.T) {
	p := New(rubric.DefaultConfig())
	ctx := context.Background()

	totalFor := func(hints []string) float64 {
		raw, err := p.Generate(ctx, domain.PhaseHypothesis, engine.GenerateInput{Query: "q", Hints: hints})
		if err != nil {
			t.Fatal(err)
		}
		j, err := p.Evaluate(ctx, domain.PhaseHypothesis, raw)
		if err != nil {
			t.Fatal(err)
		}
		var total float64
		for _, s := range j.Scores {
			total += s.Score
		}
		return total
	}

	bare := totalFor(nil)
	hinted := totalFor([]string{"a", "b"})
	if hinted <= bare {
		t.Errorf("hinted total %.2f not above bare %.2f", hinted, bare)
	}
}

func TestProvider_ScoresRespectRubricBounds(t *testing.T) {
	scoring := rubric.DefaultConfig()
	p := New(scoring)
	ctx := context.Background()

	raw, err := p.Generate(ctx, domain.PhaseOutput, engine.GenerateInput{
		Query: "q",
		Hints: []string{"a", "b", "c", "d", "e", "f", "g", "h"},
	})
	if err != nil {
		t.Fatal(err)
	}
	j, err := p.Evaluate(ctx, domain.PhaseOutput, raw)
	if err != nil {
		t.Fatal(err)
	}

	r := scoring.Rubrics[domain.PhaseOutput]
	var total float64
	for _, s := range j.Scores {
		c, ok := r.Criterion(s.CriterionID)
		if !ok {
			t.Fatalf("unknown criterion %s", s.CriterionID)
		}
		if s.Score < 0 || s.Score > c.MaxScore {
			t.Errorf("criterion %s = %v, outside [0, %v]", s.CriterionID, s.Score, c.MaxScore)
		}
		total += s.Score
	}
	if total > r.MaxTotal() {
		t.Errorf("total %.2f exceeds rubric max %.2f", total, r.MaxTotal())
	}
}

func TestProvider_ConvergesUnderIteration(t *testing.T) {
	scoring := rubric.DefaultConfig()
	p := New(scoring)
	ctx := context.Background()

	hints := []string(nil)
	passed := false
	for i := 0; i < 5 && !passed; i++ {
		raw, err := p.Generate(ctx, domain.PhaseResearch, engine.GenerateInput{Query: "any query", Hints: hints})
		if err != nil {
			t.Fatal(err)
		}
		j, err := p.Evaluate(ctx, domain.PhaseResearch, raw)
		if err != nil {
			t.Fatal(err)
		}
		var total float64
		for _, s := range j.Scores {
			total += s.Score
		}
		if total >= scoring.PassThreshold {
			passed = true
			break
		}
		hints = j.Recommendations
	}
	if !passed {
		t.Error("provider did not converge within 5 iterations")
	}
}

func TestProvider_Translate(t *testing.T) {
	p := New(rubric.DefaultConfig())
	hints, err := p.Translate(context.Background(), "focus on cost", domain.PhaseValidation)
	if err != nil {
		t.Fatal(err)
	}
	if len(hints) != 1 {
		t.Fatalf("hints = %d, want 1", len(hints))
	}
}

func TestProvider_ArtifactShape(t *testing.T) {
	p := New(rubric.DefaultConfig())
	raw, err := p.Generate(context.Background(), domain.PhaseResearch, engine.GenerateInput{Query: "q", Domain: "bio"})
	if err != nil {
		t.Fatal(err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatal(err)
	}
	if a.Phase != domain.PhaseResearch || a.Domain != "bio" {
		t.Errorf("artifact = %+v, want research/bio", a)
	}
}
