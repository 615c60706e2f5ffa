package engine

import (
	"sync"
	"time"
)

// Emitter serializes one run's events: it assigns the monotonic sequence
// numbers, injects heartbeats after idle intervals, enforces that at
// most one terminal event is emitted, and closes the stream after it.
type Emitter struct {
	runID     string
	out       chan Event
	heartbeat time.Duration
	started   time.Time

	mu       sync.Mutex
	seq      uint64
	lastEmit time.Time
	closed   bool

	stopBeat chan struct{}
	beatDone chan struct{}
}

// NewEmitter creates an emitter for the run. A zero heartbeat interval
// disables heartbeats (used by tests).
func NewEmitter(runID string, buffer int, heartbeat time.Duration) *Emitter {
	e := &Emitter{
		runID:     runID,
		out:       make(chan Event, buffer),
		heartbeat: heartbeat,
		started:   time.Now(),
		lastEmit:  time.Now(),
		stopBeat:  make(chan struct{}),
		beatDone:  make(chan struct{}),
	}
	go e.heartbeatLoop()
	return e
}

// Events returns the ordered event stream. The channel is closed after
// the terminal event, or by Close on cancellation.
func (e *Emitter) Events() <-chan Event {
	return e.out
}

// Emit stamps and delivers an event. Events after stream close are
// silently dropped; a terminal event closes the stream behind itself.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.seq++
	ev.stamp(e.runID, e.seq, time.Now())
	e.lastEmit = time.Now()

	isTerminal := terminal(ev)
	if isTerminal {
		e.closed = true
	}
	e.out <- ev
	if isTerminal {
		close(e.out)
	}
	e.mu.Unlock()

	if isTerminal {
		e.stopHeartbeat()
	}
}

// Close shuts the stream without a terminal event. Used on cancellation,
// where the contract is one cancelled status and no further events.
func (e *Emitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.out)
	}
	e.mu.Unlock()
	e.stopHeartbeat()
}

func (e *Emitter) stopHeartbeat() {
	select {
	case <-e.stopBeat:
	default:
		close(e.stopBeat)
	}
	<-e.beatDone
}

func (e *Emitter) heartbeatLoop() {
	defer close(e.beatDone)
	if e.heartbeat <= 0 {
		<-e.stopBeat
		return
	}

	ticker := time.NewTicker(e.heartbeat / 2)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopBeat:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.closed || time.Since(e.lastEmit) < e.heartbeat {
				e.mu.Unlock()
				continue
			}
			e.seq++
			ev := &HeartbeatEvent{Elapsed: time.Since(e.started)}
			ev.stamp(e.runID, e.seq, time.Now())
			e.lastEmit = time.Now()
			e.out <- ev
			e.mu.Unlock()
		}
	}
}
