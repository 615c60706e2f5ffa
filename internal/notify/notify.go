package notify

import (
	"fmt"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string // Optional run reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForRun builds the terminal-state notification for a run
func ForRun(run *domain.DiscoveryRun) Notification {
	n := Notification{RunID: run.ID}

	switch run.Status {
	case domain.RunCompleted:
		n.Type = NotifySuccess
		n.Title = "Discovery run completed"
		n.Message = fmt.Sprintf("%q scored %.1f (%s)", run.Query, run.OverallScore, run.QualityTier)
	case domain.RunCompletedPartial:
		n.Type = NotifyWarning
		n.Title = "Discovery run completed with degraded phases"
		n.Message = fmt.Sprintf("%q scored %.1f (%s); review the recovery recommendations", run.Query, run.OverallScore, run.QualityTier)
	case domain.RunFailed:
		n.Type = NotifyError
		n.Title = "Discovery run failed"
		n.Message = run.Error
	case domain.RunCancelled:
		n.Type = NotifyInfo
		n.Title = "Discovery run cancelled"
		n.Message = fmt.Sprintf("%q was cancelled", run.Query)
	default:
		n.Type = NotifyInfo
		n.Title = "Discovery run update"
		n.Message = fmt.Sprintf("%q is %s", run.Query, run.Status)
	}
	return n
}

// RunNotifier adapts a Notifier to the run manager's callback
type RunNotifier struct {
	sink Notifier
}

// NewRunNotifier creates the adapter
func NewRunNotifier(sink Notifier) *RunNotifier {
	return &RunNotifier{sink: sink}
}

// RunFinished sends the terminal notification for the run. Send errors
// are swallowed; notifications are best-effort.
func (r *RunNotifier) RunFinished(run *domain.DiscoveryRun) {
	_ = r.sink.Send(ForRun(run))
}
