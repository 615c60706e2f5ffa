package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
)

// Checkpoint is called between iterations. It blocks while the run is
// paused, returns hints from change requests applied on resume, and
// returns the context error on cancellation. Pausing therefore never
// interrupts an in-flight call, only the next iteration.
type Checkpoint func(ctx context.Context) ([]string, error)

// PhaseOutcome is the result of driving one phase to pass, exhaustion,
// or a phase-fatal error
type PhaseOutcome struct {
	Passed bool
	Best   *domain.Iteration
	Err    error // phase-fatal error; nil on pass or ordinary exhaustion
}

// IterationController drives one phase's generate→judge→refine loop
type IterationController struct {
	gen     Generator
	judge   Judge
	cfg     Config
	emitter *Emitter
}

// NewIterationController creates a controller emitting to the run's emitter
func NewIterationController(gen Generator, judge Judge, cfg Config, emitter *Emitter) *IterationController {
	return &IterationController{gen: gen, judge: judge, cfg: cfg.withDefaults(), emitter: emitter}
}

// RunPhase runs up to MaxIterations generate→judge cycles for the phase.
// Each iteration's hints are the previous judge's recommendations plus
// any change-request hints delivered by the checkpoint.
func (c *IterationController) RunPhase(
	ctx context.Context,
	run *domain.DiscoveryRun,
	pe *domain.PhaseExecution,
	scoring rubric.Config,
	priors map[domain.Phase]json.RawMessage,
	checkpoint Checkpoint,
) PhaseOutcome {
	var hints []string

	for i := 1; i <= c.cfg.MaxIterations; i++ {
		crHints, err := checkpoint(ctx)
		if err != nil {
			return PhaseOutcome{Best: pe.BestIteration(), Err: err}
		}
		hints = append(hints, crHints...)

		it, err := c.runIteration(ctx, run, pe.Phase, i, scoring, priors, hints)
		if err != nil {
			if ctx.Err() != nil {
				return PhaseOutcome{Best: pe.BestIteration(), Err: ctx.Err()}
			}
			return PhaseOutcome{Best: pe.BestIteration(), Err: err}
		}

		pe.Iterations = append(pe.Iterations, it)
		c.emitter.Emit(&IterationEvent{
			Phase:     pe.Phase,
			Iteration: i,
			Result:    it.Result,
			Duration:  it.Duration,
		})

		if it.Result.Passed {
			return PhaseOutcome{Passed: true, Best: it}
		}
		// Next hints prefer the most recent recommendations
		hints = append([]string(nil), it.Result.Recommendations...)
	}

	return PhaseOutcome{Best: pe.BestIteration()}
}

// runIteration performs one generate+judge cycle. A judge contract
// violation discards the judgment and retries the evaluation once; a
// repeat violation is phase-fatal.
func (c *IterationController) runIteration(
	ctx context.Context,
	run *domain.DiscoveryRun,
	phase domain.Phase,
	seq int,
	scoring rubric.Config,
	priors map[domain.Phase]json.RawMessage,
	hints []string,
) (*domain.Iteration, error) {
	start := time.Now()

	input := GenerateInput{
		Query:       run.Query,
		Domain:      run.Domain,
		Constraints: run.Options.Constraints,
		Priors:      priors,
		Hints:       hints,
	}

	artifact, err := c.generate(ctx, phase, input)
	if err != nil {
		return nil, err
	}

	violated := false
	for {
		judgment, err := c.evaluate(ctx, phase, artifact)
		if err != nil {
			return nil, err
		}

		result, err := rubric.Aggregate(scoring.Rubrics[phase], scoring.PassThreshold, judgment.Scores, judgment.Recommendations)
		if err != nil {
			var cv *rubric.ContractViolationError
			if errors.As(err, &cv) && !violated {
				violated = true
				continue
			}
			return nil, &JudgeError{Phase: phase, Err: err}
		}

		return &domain.Iteration{
			Seq:      seq,
			Artifact: artifact,
			Result:   result,
			Duration: time.Since(start),
		}, nil
	}
}

// generate calls the Generator with a timeout and a single backoff retry
func (c *IterationController) generate(ctx context.Context, phase domain.Phase, input GenerateInput) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryBackoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerationTimeout)
		artifact, err := c.gen.Generate(callCtx, phase, input)
		cancel()
		if err == nil {
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, &GenerationError{Phase: phase, Err: lastErr}
}

// evaluate calls the Judge with a timeout and a single backoff retry
func (c *IterationController) evaluate(ctx context.Context, phase domain.Phase, artifact json.RawMessage) (RawJudgment, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return RawJudgment{}, ctx.Err()
			case <-time.After(c.cfg.RetryBackoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.JudgeTimeout)
		judgment, err := c.judge.Evaluate(callCtx, phase, artifact)
		cancel()
		if err == nil {
			return judgment, nil
		}
		if ctx.Err() != nil {
			return RawJudgment{}, ctx.Err()
		}
		lastErr = err
	}
	return RawJudgment{}, &JudgeError{Phase: phase, Err: lastErr}
}
