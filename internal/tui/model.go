package tui

import (
	"fmt"
	"strings"
	"time"

	"surgesim/internal/loadgen"
	"surgesim/internal/tui/components"
	"surgesim/internal/tui/styles"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type snapshotMsg loadgen.StatsSnapshot

type Model struct {
	Updates  loadgen.StatsUpdateChan
	Snapshot loadgen.StatsSnapshot
	Progress progress.Model
	Spark    components.Sparkline
	Target   string
	Duration time.Duration
	Quitting bool
	Done     bool
	Width    int
	Height   int
}

func NewModel(target string, stages []loadgen.Stage, updates loadgen.StatsUpdateChan) Model {
	return Model{
		Updates:  updates,
		Progress: progress.New(progress.WithDefaultGradient()),
		Spark:    components.NewSparkline(40, "P99 latency", lipgloss.NewStyle().Foreground(styles.ColorPrimary)),
		Target:   target,
		Duration: loadgen.TotalDuration(stages),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.Updates)
}

func waitForSnapshot(ch loadgen.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg(s)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case snapshotMsg:
		m.Snapshot = loadgen.StatsSnapshot(msg)
		m.Spark.Add(m.Snapshot.P99Ms)

		pct := 1.0
		if m.Duration > 0 {
			pct = m.Snapshot.Elapsed.Seconds() / m.Duration.Seconds()
		}
		if pct > 1.0 {
			pct = 1.0
		}
		cmd := m.Progress.SetPercent(pct)

		if m.Snapshot.Done {
			m.Done = true
			return m, tea.Quit
		}
		return m, tea.Batch(cmd, waitForSnapshot(m.Updates))

	case progress.FrameMsg:
		progressModel, cmd := m.Progress.Update(msg)
		m.Progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.Quitting || m.Done {
		return "Safe Exit.\n"
	}

	s := strings.Builder{}
	snap := m.Snapshot

	s.WriteString(styles.Title.Render("⚡ SurgeSim Load Test"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Target: %s\n", m.Target))
	s.WriteString(styles.Subtle.Render(fmt.Sprintf("Duration: %s (Elapsed: %s)", m.Duration, snap.Elapsed.Round(time.Second))))
	s.WriteString("\n\n")

	stageLine := fmt.Sprintf("Stage %d | target %d users (spawn %d/s)",
		snap.StageIndex+1, snap.Stage.Users, snap.Stage.SpawnRate)
	s.WriteString(styles.Active.Render(stageLine))
	s.WriteString("\n\n")

	errRate := 0.0
	if snap.Requests > 0 {
		errRate = float64(snap.Fail) / float64(snap.Requests) * 100
	}
	errLine := fmt.Sprintf("%.2f%%", errRate)
	if errRate > 5.0 {
		errLine = styles.Error.Render(errLine)
	}

	leftCol := fmt.Sprintf(
		"Requests: %d\nUsers:    %d\nErrors:   %s\nTurns:    %d",
		snap.Requests, snap.Users, errLine, snap.Turns,
	)

	rightCol := fmt.Sprintf(
		"Latency\n  P50: %.0f ms\n  P90: %.0f ms\n  P99: %.0f ms\n  Max: %.0f ms",
		snap.P50Ms, snap.P90Ms, snap.P99Ms, snap.MaxMs,
	)

	turnCol := fmt.Sprintf(
		"Agent Turn\n  P50:  %.0f ms\n  P99:  %.0f ms\n  Fail: %d",
		snap.TurnP50Ms, snap.TurnP99Ms, snap.TurnFailures,
	)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(24).Render(leftCol),
		lipgloss.NewStyle().Width(24).Render(rightCol),
		lipgloss.NewStyle().Width(24).Render(turnCol),
	))

	s.WriteString("\n\n")
	s.WriteString(m.Spark.View())
	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}
