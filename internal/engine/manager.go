package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/policy"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
)

// SnapshotSink persists run state transitions. Persistence failures are
// logged, never fail a run.
type SnapshotSink interface {
	SaveRun(run *domain.DiscoveryRun) error
}

// Notifier is told about runs reaching a terminal state
type Notifier interface {
	RunFinished(run *domain.DiscoveryRun)
}

// Manager owns all discovery runs: it starts one goroutine per run and
// exposes the four control operations, linearized through a per-run
// command queue consumed only between the run's suspension points.
type Manager struct {
	gen        Generator
	judge      Judge
	translator Translator
	rubrics    *rubric.Source
	pol        policy.Policy
	cfg        Config
	sink       SnapshotSink
	notifier   Notifier

	mu   sync.RWMutex
	runs map[string]*runHandle
}

// Option configures a Manager
type Option func(*Manager)

// WithSnapshotSink persists every run state transition to the sink
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithNotifier reports terminal runs to the notifier
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithPolicy replaces the default degradation policy
func WithPolicy(p policy.Policy) Option {
	return func(m *Manager) { m.pol = p }
}

// NewManager creates a run manager
func NewManager(gen Generator, judge Judge, translator Translator, rubrics *rubric.Source, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		gen:        gen,
		judge:      judge,
		translator: translator,
		rubrics:    rubrics,
		pol:        policy.Default(),
		cfg:        cfg.withDefaults(),
		runs:       make(map[string]*runHandle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type cmdKind int

const (
	cmdPause cmdKind = iota
	cmdResume
	cmdChange
)

type command struct {
	kind  cmdKind
	text  string
	reply chan cmdReply
}

type cmdReply struct {
	cr  *domain.ChangeRequest
	err error
}

// runHandle is the manager-side view of one run goroutine
type runHandle struct {
	id       string
	emitter  *Emitter
	mediator *Mediator
	commands chan command
	cancel   context.CancelFunc
	done     chan struct{}

	snapMu   sync.RWMutex
	snapshot *domain.DiscoveryRun

	subsMu     sync.Mutex
	subs       map[chan Event]struct{}
	history    []Event
	subsClosed bool
}

// Start begins a new discovery run and returns its id. The event stream
// starts immediately.
func (m *Manager) Start(query string, opts domain.RunOptions) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	maxIter := m.cfg.MaxIterations
	if opts.MaxIterations > 0 {
		maxIter = opts.MaxIterations
	}
	cfg := m.cfg
	cfg.MaxIterations = maxIter

	id := uuid.NewString()
	run := domain.NewDiscoveryRun(id, query, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h := &runHandle{
		id:       id,
		emitter:  NewEmitter(id, cfg.EventBuffer, cfg.HeartbeatInterval),
		mediator: NewMediator(m.translator, cfg.TranslationTimeout, cfg.ChangeQueueBound),
		commands: make(chan command, cfg.ChangeQueueBound+4),
		cancel:   cancel,
		done:     make(chan struct{}),
		subs:     make(map[chan Event]struct{}),
	}
	h.setSnapshot(run)

	m.mu.Lock()
	m.runs[id] = h
	m.mu.Unlock()

	go h.distribute()
	go m.execute(ctx, h, run, cfg)
	return id, nil
}

// Pause suspends the run before its next iteration. In-flight
// generation or judging calls are never interrupted by a pause.
func (m *Manager) Pause(runID string) error {
	return m.send(runID, command{kind: cmdPause})
}

// Resume continues a paused run, reviewing queued change requests first
func (m *Manager) Resume(runID string) error {
	return m.send(runID, command{kind: cmdResume})
}

// Cancel stops the run, interrupting any in-flight call. Always allowed;
// cancelling a finished run is a no-op.
func (m *Manager) Cancel(runID string) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	h.cancel()
	return nil
}

// SubmitChangeRequest queues a change request on a paused run
func (m *Manager) SubmitChangeRequest(runID, text string) (*domain.ChangeRequest, error) {
	if text == "" {
		return nil, fmt.Errorf("change request text must not be empty")
	}
	h, err := m.handle(runID)
	if err != nil {
		return nil, err
	}
	reply, err := h.sendWait(command{kind: cmdChange, text: text})
	if err != nil {
		return nil, err
	}
	return reply.cr, nil
}

// ChangeRequests returns the run's change requests, pending first
func (m *Manager) ChangeRequests(runID string) ([]domain.ChangeRequest, error) {
	h, err := m.handle(runID)
	if err != nil {
		return nil, err
	}
	return h.mediator.Requests(), nil
}

// Get returns a copy of the run's current state
func (m *Manager) Get(runID string) (*domain.DiscoveryRun, error) {
	h, err := m.handle(runID)
	if err != nil {
		return nil, err
	}
	return h.Snapshot(), nil
}

// List returns copies of all runs, newest first
func (m *Manager) List() []*domain.DiscoveryRun {
	m.mu.RLock()
	handles := make([]*runHandle, 0, len(m.runs))
	for _, h := range m.runs {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	runs := make([]*domain.DiscoveryRun, 0, len(handles))
	for _, h := range handles {
		runs = append(runs, h.Snapshot())
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs
}

// Subscribe attaches to the run's event stream. Events emitted before
// subscribing are replayed (heartbeats excluded). The returned cancel
// func detaches; the channel closes when the stream ends.
func (m *Manager) Subscribe(runID string) (<-chan Event, func(), error) {
	h, err := m.handle(runID)
	if err != nil {
		return nil, nil, err
	}

	h.subsMu.Lock()
	ch := make(chan Event, len(h.history)+64)
	for _, ev := range h.history {
		ch <- ev
	}
	if h.subsClosed {
		close(ch)
		h.subsMu.Unlock()
		return ch, func() {}, nil
	}
	h.subs[ch] = struct{}{}
	h.subsMu.Unlock()

	return ch, func() { h.removeSub(ch) }, nil
}

// Remove forgets a terminal run. Active runs cannot be removed.
func (m *Manager) Remove(runID string) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
	default:
		return fmt.Errorf("run %s is still active", runID)
	}

	m.mu.Lock()
	delete(m.runs, runID)
	m.mu.Unlock()
	return nil
}

func (m *Manager) handle(runID string) (*runHandle, error) {
	m.mu.RLock()
	h, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	return h, nil
}

func (m *Manager) send(runID string, cmd command) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	_, err = h.sendWait(cmd)
	return err
}

// sendWait delivers a command to the run goroutine and waits for its
// reply. Commands race the run's completion, not each other: the run
// goroutine is the single writer.
func (h *runHandle) sendWait(cmd command) (cmdReply, error) {
	cmd.reply = make(chan cmdReply, 1)

	select {
	case <-h.done:
		return cmdReply{}, ErrRunFinished
	case h.commands <- cmd:
	}

	select {
	case <-h.done:
		return cmdReply{}, ErrRunFinished
	case rep := <-cmd.reply:
		return rep, rep.err
	}
}

func (h *runHandle) Snapshot() *domain.DiscoveryRun {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return cloneRun(h.snapshot)
}

func (h *runHandle) setSnapshot(run *domain.DiscoveryRun) {
	clone := cloneRun(run)
	h.snapMu.Lock()
	h.snapshot = clone
	h.snapMu.Unlock()
}

// distribute fans the emitter's stream out to subscribers, keeping a
// replay history. Subscribers that stop draining are dropped so one
// slow client cannot stall the run.
func (h *runHandle) distribute() {
	for ev := range h.emitter.Events() {
		h.subsMu.Lock()
		if ev.Kind() != KindHeartbeat {
			h.history = append(h.history, ev)
		}
		for ch := range h.subs {
			select {
			case ch <- ev:
			default:
				delete(h.subs, ch)
				close(ch)
			}
		}
		h.subsMu.Unlock()
	}

	h.subsMu.Lock()
	h.subsClosed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
	h.subsMu.Unlock()
}

func (h *runHandle) removeSub(ch chan Event) {
	h.subsMu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.subsMu.Unlock()
}

// cloneRun deep-copies a run via its JSON form
func cloneRun(run *domain.DiscoveryRun) *domain.DiscoveryRun {
	data, err := json.Marshal(run)
	if err != nil {
		log.Printf("[run %s] snapshot marshal: %v", run.ID, err)
		return run
	}
	var out domain.DiscoveryRun
	if err := json.Unmarshal(data, &out); err != nil {
		log.Printf("[run %s] snapshot unmarshal: %v", run.ID, err)
		return run
	}
	return &out
}
