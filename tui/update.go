package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		case "j", "down":
			if m.selectedRow < len(m.runs)-1 {
				m.selectedRow++
				maxVisible := m.visibleRows()
				if m.selectedRow >= m.scroll+maxVisible {
					m.scroll = m.selectedRow - maxVisible + 1
				}
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
				if m.selectedRow < m.scroll {
					m.scroll = m.selectedRow
				}
			}
		case "enter":
			if m.Selected() != nil {
				m.viewMode = ViewDetail
			}
		case "esc":
			m.viewMode = ViewRuns
		case "p":
			return m.control("pause")
		case "s":
			return m.control("resume")
		case "x":
			return m.control("cancel")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.fetchCmd())

	case RunsMsg:
		if msg.Err != nil {
			m.fetchErr = msg.Err
			return m, nil
		}
		m.fetchErr = nil
		m.SetRuns(msg.Runs)

	case ControlDoneMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("%s %s: %v", msg.Action, shortID(msg.RunID), msg.Err)
		} else {
			m.statusMsg = fmt.Sprintf("%s requested for %s", msg.Action, shortID(msg.RunID))
		}
		return m, m.fetchCmd()
	}

	return m, nil
}

// SetRuns replaces the run list, clamping the selection
func (m *Model) SetRuns(runs []*domain.DiscoveryRun) {
	m.runs = runs
	if m.selectedRow >= len(runs) {
		m.selectedRow = len(runs) - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m Model) control(action string) (tea.Model, tea.Cmd) {
	run := m.Selected()
	if run == nil || m.controller == nil {
		return m, nil
	}

	ctl := m.controller
	id := run.ID
	return m, func() tea.Msg {
		var err error
		switch action {
		case "pause":
			err = ctl.Pause(id)
		case "resume":
			err = ctl.Resume(id)
		case "cancel":
			err = ctl.Cancel(id)
		}
		return ControlDoneMsg{Action: action, RunID: id, Err: err}
	}
}

func (m Model) visibleRows() int {
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	return rows
}
