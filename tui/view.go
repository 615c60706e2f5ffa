package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	pausedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	phaseHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255"))

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	active, paused := 0, 0
	for _, run := range m.runs {
		if run.Status.Terminal() {
			continue
		}
		active++
		if run.Status == domain.RunPaused {
			paused++
		}
	}
	header := fmt.Sprintf(" Discovery Orchestrator │ Runs: %d │ Active: %d │ Paused: %d ",
		len(m.runs), active, paused)
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	switch m.viewMode {
	case ViewDetail:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderDetail()))
	default:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderRuns()))
	}
	b.WriteString("\n")

	if m.fetchErr != nil {
		b.WriteString(warningStyle.Width(m.width).Render(" refresh failed: " + m.fetchErr.Error() + " "))
		b.WriteString("\n")
	} else if m.statusMsg != "" {
		b.WriteString(dimmedStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		b.WriteString("\n")
	}

	var statusBar string
	if m.viewMode == ViewDetail {
		statusBar = " [esc]back [p]ause [s]resume [x]cancel [r]efresh [q]uit "
	} else {
		statusBar = " [j/k]navigate [enter]detail [p]ause [s]resume [x]cancel [r]efresh [q]uit "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderRuns() string {
	if len(m.runs) == 0 {
		return dimmedStyle.Render("No discovery runs")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-9s %-32s %-18s %-11s %6s  %-12s %s\n",
		"ID", "QUERY", "STATUS", "PHASE", "SCORE", "TIER", "STARTED"))

	end := m.scroll + m.visibleRows()
	if end > len(m.runs) {
		end = len(m.runs)
	}
	for i := m.scroll; i < end; i++ {
		run := m.runs[i]
		line := fmt.Sprintf("%-9s %-32s %-18s %-11s %6.2f  %-12s %s",
			shortID(run.ID),
			truncate(run.Query, 32),
			string(run.Status),
			currentPhase(run),
			run.OverallScore,
			string(run.QualityTier),
			humanize.Time(run.CreatedAt),
		)

		style := statusStyle(run.Status)
		if i == m.selectedRow {
			style = selectedStyle
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail() string {
	run := m.Selected()
	if run == nil {
		return dimmedStyle.Render("No run selected")
	}

	var b strings.Builder
	b.WriteString(selectedStyle.Render(fmt.Sprintf("%s  %s", shortID(run.ID), run.Query)))
	b.WriteString("\n")
	b.WriteString(statusStyle(run.Status).Render(fmt.Sprintf("status: %s", run.Status)))
	if run.Status.Terminal() {
		b.WriteString(fmt.Sprintf("  score: %.2f (%s)", run.OverallScore, run.QualityTier))
	}
	if run.Error != "" {
		b.WriteString("\n")
		b.WriteString(failedStyle.Render("error: " + run.Error))
	}
	b.WriteString("\n\n")

	for _, pe := range run.Phases {
		b.WriteString(phaseHeaderStyle.Render(fmt.Sprintf("%s (weight %.1f)", pe.Phase, pe.Weight)))
		b.WriteString(fmt.Sprintf("  %s", pe.Status))
		if pe.Status == domain.PhaseCompleted || pe.Status == domain.PhaseFailed {
			b.WriteString(fmt.Sprintf("  score %.2f", pe.FinalScore))
		}
		b.WriteString("\n")

		for _, it := range pe.Iterations {
			if it.Result == nil {
				continue
			}
			mark := dimmedStyle.Render("✗")
			if it.Result.Passed {
				mark = runningStyle.Render("✓")
			}
			b.WriteString(fmt.Sprintf("  %s iteration %d: %.2f (%s)\n",
				mark, it.Seq, it.Result.TotalScore, it.Duration.Round(time.Millisecond)))
		}
	}
	return b.String()
}

func statusStyle(status domain.RunStatus) lipgloss.Style {
	switch status {
	case domain.RunRunning, domain.RunStarting:
		return runningStyle
	case domain.RunPaused:
		return pausedStyle
	case domain.RunFailed:
		return failedStyle
	case domain.RunCompletedPartial:
		return warningStyle
	default:
		return dimmedStyle
	}
}

func currentPhase(run *domain.DiscoveryRun) string {
	if run.Status.Terminal() {
		return "-"
	}
	if run.CurrentPhase >= 0 && run.CurrentPhase < len(run.Phases) {
		return string(run.Phases[run.CurrentPhase].Phase)
	}
	return "-"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
