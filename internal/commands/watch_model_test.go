package commands

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskdeck/pkg/mirror"
)

func newTestWatchModel() (watchModel, *mirror.Mirror, chan struct{}) {
	m := mirror.New()
	updates := make(chan struct{}, 1)
	return newWatchModel(m, updates), m, updates
}

func TestWatchModelQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			model, _, _ := newTestWatchModel()

			var msg tea.Msg
			switch key {
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
			}

			_, cmd := model.Update(msg)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestWatchModelUpdateReissuesWait(t *testing.T) {
	model, _, updates := newTestWatchModel()

	_, cmd := model.Update(mirrorUpdateMsg{})
	require.NotNil(t, cmd)

	// The returned command blocks on the updates channel and converts a
	// signal into the next update message.
	updates <- struct{}{}
	assert.IsType(t, mirrorUpdateMsg{}, cmd())
}

func TestWatchModelViewStates(t *testing.T) {
	model, mir, _ := newTestWatchModel()

	view := model.View()
	assert.Contains(t, view, "taskdeck")
	assert.Contains(t, view, "disconnected")
	assert.Contains(t, view, "no active tasks")

	mir.SetState(mirror.StateConnected)
	mir.Apply(mirror.Message{
		Type: mirror.TypeInitialData,
		Tasks: []mirror.Task{
			{ID: "t1", Title: "Fix bug", Priority: "p0", Due: "2024-01-09", Tags: []string{"auth"}},
		},
		Workspaces: []mirror.Workspace{
			{ID: "ws1", Title: "Auth Revamp", Status: "In Progress", Progress: 50, CompletedPhases: 1, TotalPhases: 2},
		},
	})

	view = model.View()
	assert.Contains(t, view, "connected")
	assert.Contains(t, view, "Fix bug")
	assert.Contains(t, view, "due 2024-01-09")
	assert.Contains(t, view, "Auth Revamp")
	assert.Contains(t, view, "50%")
}

func TestWatchModelWindowSize(t *testing.T) {
	model, _, _ := newTestWatchModel()

	updated, cmd := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Nil(t, cmd)

	m, ok := updated.(watchModel)
	require.True(t, ok)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
