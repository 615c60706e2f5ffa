package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Mediator owns a run's change requests: a bounded FIFO of pending
// requests accepted while paused, reviewed and translated into
// refinement hints on resume. Submission and review happen on the run
// goroutine; the mutex only guards snapshot reads from the API.
type Mediator struct {
	translator Translator
	timeout    time.Duration
	bound      int

	mu       sync.RWMutex
	queue    []*domain.ChangeRequest // pending, FIFO
	reviewed []*domain.ChangeRequest // applied or rejected, in review order
}

// NewMediator creates a mediator with the given translation timeout and
// queue bound
func NewMediator(translator Translator, timeout time.Duration, bound int) *Mediator {
	return &Mediator{translator: translator, timeout: timeout, bound: bound}
}

// Submit enqueues a change request. The queue is bounded; requests past
// the bound are rejected with ErrQueueFull.
func (m *Mediator) Submit(text string) (*domain.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) >= m.bound {
		return nil, ErrQueueFull
	}
	cr := &domain.ChangeRequest{
		ID:          uuid.NewString(),
		Text:        text,
		SubmittedAt: time.Now(),
		Status:      domain.ChangePending,
	}
	m.queue = append(m.queue, cr)
	return cr, nil
}

// Rejection pairs a rejected request with the translation failure
type Rejection struct {
	Request *domain.ChangeRequest
	Err     error
}

// ProcessQueued reviews all pending requests in FIFO order: each is
// marked reviewing, translated, then applied (hints returned for the
// next iteration) or rejected (returned for a non-fatal error event).
func (m *Mediator) ProcessQueued(ctx context.Context, phase domain.Phase) ([]string, []Rejection) {
	m.mu.Lock()
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	var hints []string
	var rejected []Rejection

	for _, cr := range pending {
		m.setStatus(cr, domain.ChangeReviewing, nil)

		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		translated, err := m.translator.Translate(callCtx, cr.Text, phase)
		cancel()

		if err != nil {
			m.setStatus(cr, domain.ChangeRejected, nil)
			rejected = append(rejected, Rejection{Request: cr, Err: &TranslationError{RequestID: cr.ID, Err: err}})
			continue
		}
		m.setStatus(cr, domain.ChangeApplied, translated)
		hints = append(hints, translated...)
	}
	return hints, rejected
}

func (m *Mediator) setStatus(cr *domain.ChangeRequest, status domain.ChangeRequestStatus, hints []string) {
	m.mu.Lock()
	cr.Status = status
	if hints != nil {
		cr.Hints = hints
	}
	if status == domain.ChangeApplied || status == domain.ChangeRejected {
		m.reviewed = append(m.reviewed, cr)
	}
	m.mu.Unlock()
}

// Requests returns all change requests, pending first, as copies
func (m *Mediator) Requests() []domain.ChangeRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ChangeRequest, 0, len(m.queue)+len(m.reviewed))
	for _, cr := range m.queue {
		out = append(out, *cr)
	}
	for _, cr := range m.reviewed {
		out = append(out, *cr)
	}
	return out
}
