package engine

import (
	"errors"
	"fmt"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

var (
	// ErrRunNotFound is returned for control operations on unknown run IDs
	ErrRunNotFound = errors.New("run not found")
	// ErrRunFinished is returned for control operations on terminal runs
	ErrRunFinished = errors.New("run already finished")
	// ErrNotPaused is returned when a change request is submitted outside
	// the paused state
	ErrNotPaused = errors.New("run is not paused")
	// ErrNotRunning is returned for pause on a run that is not running
	ErrNotRunning = errors.New("run is not running")
	// ErrQueueFull rejects change requests past the queue bound
	ErrQueueFull = errors.New("change request queue full")
)

// GenerationError wraps a Generator failure. Transient: the iteration
// controller retries once before treating the phase as fatal.
type GenerationError struct {
	Phase domain.Phase
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed in phase %s: %v", e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// JudgeError wraps a Judge failure, same retry rules as GenerationError
type JudgeError struct {
	Phase domain.Phase
	Err   error
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judging failed in phase %s: %v", e.Phase, e.Err)
}

func (e *JudgeError) Unwrap() error { return e.Err }

// TranslationError wraps a change-request translation failure. Non-fatal:
// it only rejects the one request.
type TranslationError struct {
	RequestID string
	Err       error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translating change request %s: %v", e.RequestID, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// RunError is the error shape surfaced to callers: always names the run,
// the phase it arose in, and a human-readable reason
type RunError struct {
	RunID  string
	Phase  domain.Phase
	Reason string
}

func (e *RunError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("run %s: phase %s: %s", e.RunID, e.Phase, e.Reason)
	}
	return fmt.Sprintf("run %s: %s", e.RunID, e.Reason)
}
