package engine

import (
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// EventKind discriminates event types on the wire
type EventKind string

const (
	KindProgress        EventKind = "progress"
	KindIteration       EventKind = "iteration"
	KindThinking        EventKind = "thinking"
	KindPhaseFailed     EventKind = "phase_failed"
	KindComplete        EventKind = "complete"
	KindPartialComplete EventKind = "partial_complete"
	KindError           EventKind = "error"
	KindHeartbeat       EventKind = "heartbeat"
)

// Event is the closed union of run stream events. The sequence number is
// assigned by the run's Emitter and is strictly increasing within a run.
// Only types in this package implement it.
type Event interface {
	Kind() EventKind
	Sequence() uint64
	RunID() string

	stamp(runID string, seq uint64, at time.Time)
}

// EventMeta is embedded by every concrete event
type EventMeta struct {
	Run  string    `json:"run_id"`
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
}

func (m *EventMeta) Sequence() uint64 { return m.Seq }
func (m *EventMeta) RunID() string    { return m.Run }

func (m *EventMeta) stamp(runID string, seq uint64, at time.Time) {
	m.Run = runID
	m.Seq = seq
	m.Time = at
}

// ProgressEvent reports coarse pipeline progress
type ProgressEvent struct {
	EventMeta
	Phase   domain.Phase `json:"phase"`
	Percent int          `json:"percent"`
	Step    string       `json:"step"`
}

func (*ProgressEvent) Kind() EventKind { return KindProgress }

// IterationEvent carries the full judge result of one iteration
type IterationEvent struct {
	EventMeta
	Phase     domain.Phase        `json:"phase"`
	Iteration int                 `json:"iteration"`
	Result    *domain.JudgeResult `json:"result"`
	Duration  time.Duration       `json:"duration_ns"`
}

func (*IterationEvent) Kind() EventKind { return KindIteration }

// ThinkingEvent is a free-text status line
type ThinkingEvent struct {
	EventMeta
	Text string `json:"text"`
}

func (*ThinkingEvent) Kind() EventKind { return KindThinking }

// PhaseFailedEvent reports a phase that exhausted its iterations
type PhaseFailedEvent struct {
	EventMeta
	Phase              domain.Phase `json:"phase"`
	Score              float64      `json:"score"`
	Threshold          float64      `json:"threshold"`
	FailedCriteria     []string     `json:"failed_criteria,omitempty"`
	ContinuingDegraded bool         `json:"continuing_degraded"`
}

func (*PhaseFailedEvent) Kind() EventKind { return KindPhaseFailed }

// CompleteEvent is the terminal event of a fully passing run
type CompleteEvent struct {
	EventMeta
	OverallScore float64            `json:"overall_score"`
	QualityTier  domain.QualityTier `json:"quality_tier"`
}

func (*CompleteEvent) Kind() EventKind { return KindComplete }

// PartialCompleteEvent is the terminal event of a degraded run
type PartialCompleteEvent struct {
	EventMeta
	OverallScore    float64                         `json:"overall_score"`
	QualityTier     domain.QualityTier              `json:"quality_tier"`
	FailureMode     string                          `json:"failure_mode"`
	Recommendations []domain.RecoveryRecommendation `json:"recommendations,omitempty"`
}

func (*PartialCompleteEvent) Kind() EventKind { return KindPartialComplete }

// ErrorEvent reports an error. Fatal error events terminate the stream;
// non-fatal ones (a rejected change request) do not.
type ErrorEvent struct {
	EventMeta
	Phase  domain.Phase `json:"phase,omitempty"`
	Reason string       `json:"reason"`
	Fatal  bool         `json:"fatal"`
}

func (*ErrorEvent) Kind() EventKind { return KindError }

// HeartbeatEvent is emitted after an idle interval with no other events
type HeartbeatEvent struct {
	EventMeta
	Elapsed time.Duration `json:"elapsed_ns"`
}

func (*HeartbeatEvent) Kind() EventKind { return KindHeartbeat }

// terminal reports whether the event closes the stream
func terminal(ev Event) bool {
	switch e := ev.(type) {
	case *CompleteEvent, *PartialCompleteEvent:
		return true
	case *ErrorEvent:
		return e.Fatal
	}
	return false
}
