package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// execute is the run goroutine: the sole writer of run state. All
// outside mutation arrives through the command queue and is applied
// here, between the pipeline's suspension points.
func (m *Manager) execute(ctx context.Context, h *runHandle, run *domain.DiscoveryRun, cfg Config) {
	defer close(h.done)

	loop := &runLoop{m: m, h: h, run: run}

	now := time.Now()
	run.Status = domain.RunStarting
	run.StartedAt = &now
	loop.publish()

	scoring := m.rubrics.Current()

	run.Status = domain.RunRunning
	loop.publish()

	iter := NewIterationController(m.gen, m.judge, cfg, h.emitter)
	seq := NewSequencer(iter, m.pol, h.emitter)
	res, err := seq.Run(ctx, run, scoring, loop.checkpoint)

	finished := time.Now()
	run.FinishedAt = &finished

	switch {
	case err != nil:
		// Cancelled: one terminal status, no further events
		run.Status = domain.RunCancelled
		loop.publish()
		h.emitter.Close()
		log.Printf("[run %s] cancelled", run.ID)

	case res.Aborted:
		reason := fmt.Sprintf("phase %s did not reach the pass threshold after %d iterations", res.AbortPhase, cfg.MaxIterations)
		if res.AbortErr != nil {
			reason = res.AbortErr.Error()
		}
		run.Status = domain.RunFailed
		run.Error = (&RunError{RunID: run.ID, Phase: res.AbortPhase, Reason: reason}).Error()
		loop.publish()
		h.emitter.Emit(&ErrorEvent{Phase: res.AbortPhase, Reason: run.Error, Fatal: true})
		log.Printf("[run %s] failed: %s", run.ID, run.Error)

	case res.Partial:
		run.Status = domain.RunCompletedPartial
		loop.publish()
		h.emitter.Emit(&ProgressEvent{Phase: domain.PhaseOutput, Percent: 100, Step: "Finalizing results"})
		h.emitter.Emit(&PartialCompleteEvent{
			OverallScore:    run.OverallScore,
			QualityTier:     run.QualityTier,
			FailureMode:     failureMode(res.DegradedPhases),
			Recommendations: res.Recommendations,
		})
		log.Printf("[run %s] completed partial, score %.2f (%s)", run.ID, run.OverallScore, run.QualityTier)

	default:
		run.Status = domain.RunCompleted
		loop.publish()
		h.emitter.Emit(&ProgressEvent{Phase: domain.PhaseOutput, Percent: 100, Step: "Finalizing results"})
		h.emitter.Emit(&CompleteEvent{OverallScore: run.OverallScore, QualityTier: run.QualityTier})
		log.Printf("[run %s] completed, score %.2f (%s)", run.ID, run.OverallScore, run.QualityTier)
	}

	if m.notifier != nil {
		m.notifier.RunFinished(h.Snapshot())
	}
}

func failureMode(degraded []domain.Phase) string {
	names := make([]string, len(degraded))
	for i, p := range degraded {
		names[i] = string(p)
	}
	return "degraded phases: " + strings.Join(names, ", ")
}

// runLoop holds the run goroutine's mutable control state
type runLoop struct {
	m      *Manager
	h      *runHandle
	run    *domain.DiscoveryRun
	paused bool
}

// checkpoint is the Checkpoint passed to the iteration controller. It
// drains the command queue, blocks while paused, and surfaces change
// request hints applied on resume.
func (l *runLoop) checkpoint(ctx context.Context) ([]string, error) {
	l.publish()

	var hints []string
	for {
		if l.paused {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case cmd := <-l.h.commands:
				l.handleCommand(ctx, cmd, &hints)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		select {
		case cmd := <-l.h.commands:
			l.handleCommand(ctx, cmd, &hints)
		default:
			return hints, nil
		}
	}
}

func (l *runLoop) handleCommand(ctx context.Context, cmd command, hints *[]string) {
	switch cmd.kind {
	case cmdPause:
		if l.paused {
			cmd.reply <- cmdReply{err: &RunError{RunID: l.run.ID, Reason: "already paused"}}
			return
		}
		l.paused = true
		l.run.Status = domain.RunPaused
		l.publish()
		l.h.emitter.Emit(&ThinkingEvent{Text: "Run paused; change requests will be reviewed on resume"})
		cmd.reply <- cmdReply{}

	case cmdResume:
		if !l.paused {
			cmd.reply <- cmdReply{err: ErrNotPaused}
			return
		}
		l.paused = false
		l.run.Status = domain.RunRunning

		phase := l.currentPhase()
		crHints, rejected := l.h.mediator.ProcessQueued(ctx, phase)
		for _, rej := range rejected {
			l.h.emitter.Emit(&ErrorEvent{Phase: phase, Reason: rej.Err.Error(), Fatal: false})
		}
		*hints = append(*hints, crHints...)

		l.publish()
		l.h.emitter.Emit(&ThinkingEvent{Text: "Run resumed"})
		cmd.reply <- cmdReply{}

	case cmdChange:
		if !l.paused {
			cmd.reply <- cmdReply{err: ErrNotPaused}
			return
		}
		cr, err := l.h.mediator.Submit(cmd.text)
		cmd.reply <- cmdReply{cr: cr, err: err}
	}
}

func (l *runLoop) currentPhase() domain.Phase {
	if l.run.CurrentPhase >= 0 && l.run.CurrentPhase < len(l.run.Phases) {
		return l.run.Phases[l.run.CurrentPhase].Phase
	}
	return domain.PhaseResearch
}

// publish refreshes the external snapshot and persists the transition
func (l *runLoop) publish() {
	l.h.setSnapshot(l.run)
	if l.m.sink != nil {
		if err := l.m.sink.SaveRun(l.h.Snapshot()); err != nil {
			log.Printf("[run %s] snapshot save: %v", l.run.ID, err)
		}
	}
}
