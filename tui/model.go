package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Fetcher loads run state for display
type Fetcher interface {
	ListRuns() ([]*domain.DiscoveryRun, error)
}

// Controller issues control operations against runs
type Controller interface {
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
}

// ViewMode determines what the main panel shows
type ViewMode int

const (
	ViewRuns ViewMode = iota
	ViewDetail
)

// Model is the TUI application model
type Model struct {
	fetcher    Fetcher
	controller Controller

	// Data
	runs     []*domain.DiscoveryRun
	fetchErr error

	// UI state
	width       int
	height      int
	selectedRow int
	scroll      int
	viewMode    ViewMode
	statusMsg   string

	lastRefresh time.Time
}

// ModelConfig holds the TUI model's collaborators and initial data
type ModelConfig struct {
	Fetcher    Fetcher
	Controller Controller
	Runs       []*domain.DiscoveryRun
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		fetcher:    cfg.Fetcher,
		controller: cfg.Controller,
		runs:       cfg.Runs,
	}
}

// Selected returns the currently selected run, or nil
func (m Model) Selected() *domain.DiscoveryRun {
	if m.selectedRow < 0 || m.selectedRow >= len(m.runs) {
		return nil
	}
	return m.runs[m.selectedRow]
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.fetchCmd(),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

// RunsMsg delivers a refreshed run list
type RunsMsg struct {
	Runs []*domain.DiscoveryRun
	Err  error
}

// ControlDoneMsg reports the outcome of a pause/resume/cancel
type ControlDoneMsg struct {
	Action string
	RunID  string
	Err    error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) fetchCmd() tea.Cmd {
	if m.fetcher == nil {
		return nil
	}
	fetcher := m.fetcher
	return func() tea.Msg {
		runs, err := fetcher.ListRuns()
		return RunsMsg{Runs: runs, Err: err}
	}
}
