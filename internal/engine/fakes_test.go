package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
)

// scriptGen returns canned artifacts and records every input it saw.
// failures[phase] makes that many calls fail before succeeding.
type scriptGen struct {
	mu       sync.Mutex
	inputs   map[domain.Phase][]GenerateInput
	failures map[domain.Phase]int
}

func newScriptGen() *scriptGen {
	return &scriptGen{
		inputs:   make(map[domain.Phase][]GenerateInput),
		failures: make(map[domain.Phase]int),
	}
}

func (g *scriptGen) Generate(ctx context.Context, phase domain.Phase, input GenerateInput) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inputs[phase] = append(g.inputs[phase], input)
	if g.failures[phase] > 0 {
		g.failures[phase]--
		return nil, fmt.Errorf("model unavailable")
	}
	artifact := fmt.Sprintf(`{"phase":%q,"attempt":%d}`, phase, len(g.inputs[phase]))
	return json.RawMessage(artifact), nil
}

func (g *scriptGen) inputsFor(phase domain.Phase) []GenerateInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateInput(nil), g.inputs[phase]...)
}

// gatedGen blocks each call until the test releases it, so tests can
// line control operations up against in-flight generation
type gatedGen struct {
	inner   *scriptGen
	started chan domain.Phase
	proceed chan struct{}
}

func newGatedGen() *gatedGen {
	return &gatedGen{
		inner:   newScriptGen(),
		started: make(chan domain.Phase, 16),
		proceed: make(chan struct{}, 16),
	}
}

func (g *gatedGen) Generate(ctx context.Context, phase domain.Phase, input GenerateInput) (json.RawMessage, error) {
	g.started <- phase
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.proceed:
	}
	return g.inner.Generate(ctx, phase, input)
}

// stalledGen never produces an artifact; every call blocks until the
// per-call deadline expires
type stalledGen struct {
	mu    sync.Mutex
	calls map[domain.Phase]int
}

func newStalledGen() *stalledGen {
	return &stalledGen{calls: make(map[domain.Phase]int)}
}

func (g *stalledGen) Generate(ctx context.Context, phase domain.Phase, input GenerateInput) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls[phase]++
	g.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (g *stalledGen) callsFor(phase domain.Phase) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[phase]
}

// scriptJudge returns scripted totals per phase, one per successive
// call; the last total repeats once the script runs out
type scriptJudge struct {
	mu     sync.Mutex
	totals map[domain.Phase][]float64
	calls  map[domain.Phase]int

	// violations[phase] makes that many calls report an out-of-range score
	violations map[domain.Phase]int
}

func newScriptJudge(totals map[domain.Phase][]float64) *scriptJudge {
	return &scriptJudge{
		totals:     totals,
		calls:      make(map[domain.Phase]int),
		violations: make(map[domain.Phase]int),
	}
}

func (j *scriptJudge) Evaluate(ctx context.Context, phase domain.Phase, artifact json.RawMessage) (RawJudgment, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.violations[phase] > 0 {
		j.violations[phase]--
		return RawJudgment{Scores: []domain.CriterionScore{
			{CriterionID: "novelty", Score: 99, MaxScore: 3},
		}}, nil
	}

	script := j.totals[phase]
	idx := j.calls[phase]
	j.calls[phase]++
	if idx >= len(script) {
		idx = len(script) - 1
	}
	total := script[idx]

	return RawJudgment{
		Scores:          spreadScores(phase, total),
		Recommendations: []string{fmt.Sprintf("sharpen the %s artifact", phase)},
	}, nil
}

// spreadScores spreads a target total across the phase's default rubric
func spreadScores(phase domain.Phase, total float64) []domain.CriterionScore {
	r := rubric.DefaultConfig().Rubrics[phase]
	var out []domain.CriterionScore
	remaining := total
	for _, c := range r.Criteria {
		s := remaining
		if s > c.MaxScore {
			s = c.MaxScore
		}
		if s < 0 {
			s = 0
		}
		out = append(out, domain.CriterionScore{CriterionID: c.ID, Score: s, Reasoning: "scripted"})
		remaining -= s
	}
	return out
}

// scriptTranslator turns text into a single hint, or fails
type scriptTranslator struct {
	fail bool
}

func (t *scriptTranslator) Translate(ctx context.Context, text string, phase domain.Phase) ([]string, error) {
	if t.fail {
		return nil, fmt.Errorf("translator offline")
	}
	return []string{"user request: " + text}, nil
}

// testConfig returns fast limits with heartbeats disabled
func testConfig() Config {
	return Config{
		MaxIterations:      5,
		GenerationTimeout:  5 * time.Second,
		JudgeTimeout:       5 * time.Second,
		TranslationTimeout: time.Second,
		RetryBackoff:       time.Millisecond,
		HeartbeatInterval:  0,
		ChangeQueueBound:   10,
		EventBuffer:        256,
	}
}

// drainEvents reads the subscription until the stream closes
func drainEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("event stream did not close; got %d events", len(events))
		}
	}
}

// passingTotals makes every phase pass on the first iteration
func passingTotals() map[domain.Phase][]float64 {
	return map[domain.Phase][]float64{
		domain.PhaseResearch:   {8.2},
		domain.PhaseHypothesis: {7.9},
		domain.PhaseValidation: {7.4},
		domain.PhaseOutput:     {8.0},
	}
}

func waitTerminal(t *testing.T, m *Manager, id string) *domain.DiscoveryRun {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, err := m.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if run.Status.Terminal() {
			return run
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return nil
}
