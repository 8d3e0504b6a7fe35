package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/taskdeck/pkg/mirror"
)

// Style definitions.
var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	watchHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	watchDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	watchConnected    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	watchDisconnected = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	priorityStyles = map[string]lipgloss.Style{
		"p0": lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		"p1": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"p2": lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		"p3": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// mirrorUpdateMsg signals that the mirror changed and the view should
// re-read it.
type mirrorUpdateMsg struct{}

type watchModel struct {
	mirror  *mirror.Mirror
	updates <-chan struct{}
	spinner spinner.Model
	width   int
	height  int
}

func newWatchModel(m *mirror.Mirror, updates <-chan struct{}) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	return watchModel{
		mirror:  m,
		updates: updates,
		spinner: sp,
	}
}

// waitForUpdate blocks on the client's coalesced update channel.
func (m watchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return mirrorUpdateMsg{}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case mirrorUpdateMsg:
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(watchTitleStyle.Render("taskdeck"))
	b.WriteString("  ")
	b.WriteString(m.renderConnState())
	b.WriteString("\n\n")

	m.renderTasks(&b)
	m.renderWorkspaces(&b)
	m.renderActivity(&b)

	b.WriteString(watchDimStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m watchModel) renderConnState() string {
	switch m.mirror.State() {
	case mirror.StateConnected:
		return watchConnected.Render("● connected")
	case mirror.StateConnecting:
		return m.spinner.View() + watchDimStyle.Render("connecting")
	default:
		return watchDisconnected.Render("● disconnected, retrying")
	}
}

func (m watchModel) renderTasks(b *strings.Builder) {
	tasks := m.mirror.Tasks()

	b.WriteString(watchHeaderStyle.Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(watchDimStyle.Render("  no active tasks"))
		b.WriteString("\n")
	}
	for _, t := range tasks {
		b.WriteString("  ")
		b.WriteString(renderPriority(t.Priority))
		b.WriteString(" ")
		b.WriteString(t.Title)
		if t.Due != "" {
			b.WriteString(watchDimStyle.Render("  due " + t.Due))
		}
		if len(t.Tags) > 0 {
			b.WriteString(watchDimStyle.Render("  [" + strings.Join(t.Tags, ", ") + "]"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m watchModel) renderWorkspaces(b *strings.Builder) {
	workspaces := m.mirror.Workspaces()
	if len(workspaces) == 0 {
		return
	}

	b.WriteString(watchHeaderStyle.Render(fmt.Sprintf("Workspaces (%d)", len(workspaces))))
	b.WriteString("\n")
	for _, ws := range workspaces {
		b.WriteString("  ")
		b.WriteString(renderPriority(ws.Priority))
		b.WriteString(" ")
		b.WriteString(ws.Title)
		b.WriteString(watchDimStyle.Render(fmt.Sprintf("  %s  %d/%d phases", ws.Status, ws.CompletedPhases, ws.TotalPhases)))
		b.WriteString("\n  ")
		b.WriteString(renderProgressBar(ws.Progress))
		if ws.CurrentFocus != "" {
			b.WriteString(watchDimStyle.Render("  " + ws.CurrentFocus))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m watchModel) renderActivity(b *strings.Builder) {
	activity := m.mirror.ActivityLog()
	if len(activity) == 0 {
		return
	}

	const maxRows = 5

	b.WriteString(watchHeaderStyle.Render("Activity"))
	b.WriteString("\n")
	for i, a := range activity {
		if i >= maxRows {
			break
		}
		line := fmt.Sprintf("  %s  %s %s", a.Timestamp.Format("15:04:05"), a.Type, a.File)
		b.WriteString(watchDimStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderPriority(p string) string {
	if p == "" {
		p = "p2"
	}
	style, ok := priorityStyles[p]
	if !ok {
		style = watchDimStyle
	}
	return style.Render(p)
}

func renderProgressBar(percent int) string {
	const width = 20

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", watchHeaderStyle.Render(bar), percent)
}
