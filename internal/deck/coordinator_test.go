package deck

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskdeck/internal/core/archive"
	"github.com/colonyops/taskdeck/internal/core/parse"
	"github.com/colonyops/taskdeck/internal/core/record"
	"github.com/colonyops/taskdeck/internal/core/state"
)

// captureBroadcaster records every envelope for assertions.
type captureBroadcaster struct {
	mu        sync.Mutex
	envelopes []Envelope
}

func (b *captureBroadcaster) Broadcast(env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, env)
}

func (b *captureBroadcaster) ClientCount() int { return 0 }

func (b *captureBroadcaster) all() []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Envelope(nil), b.envelopes...)
}

func newTestCoordinator(t *testing.T, dialect parse.Dialect) (*Coordinator, *state.Store, *captureBroadcaster, string) {
	t.Helper()

	dataDir := t.TempDir()
	store := state.New()
	scanner := archive.NewScanner(filepath.Join(dataDir, dialect.ArchiveDir), "task.md", zerolog.Nop())

	coord := NewCoordinator(dataDir, dialect, "PROGRESS.md", store, scanner, 3, 10, zerolog.Nop())
	cast := &captureBroadcaster{}
	coord.SetBroadcaster(cast)

	return coord, store, cast, dataDir
}

func writeFile(t *testing.T, dataDir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dataDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHandleEventTask(t *testing.T) {
	coord, store, cast, dataDir := newTestCoordinator(t, parse.Classic())

	path := writeFile(t, dataDir, "active/t1/task.md", "# Fix bug\n**priority**: p0\n**tags**: [auth, urgent]\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	task, ok := store.GetTask("t1")
	require.True(t, ok)
	assert.Equal(t, "Fix bug", task.Title)
	assert.Equal(t, record.PriorityP0, task.Priority)
	assert.Equal(t, []string{"auth", "urgent"}, task.Tags)
	// No sibling progress document: the task reads as not started.
	assert.Equal(t, record.StatusNotStarted, task.Status)

	envs := cast.all()
	require.Len(t, envs, 1)
	assert.Equal(t, MessageFileUpdate, envs[0].Type)
	assert.Equal(t, "active/t1/task.md", envs[0].File)
	assert.Equal(t, record.EventAdd, envs[0].Event)
	require.Len(t, envs[0].Data.Tasks, 1)
}

func TestHandleEventTaskFoldsSiblingStatus(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Classic())

	writeFile(t, dataDir, "active/t1/PROGRESS.md", "# Progress: Fix bug\n**State**: Blocked\n")
	path := writeFile(t, dataDir, "active/t1/task.md", "# Fix bug\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventChange})

	task, ok := store.GetTask("t1")
	require.True(t, ok)
	assert.Equal(t, "Blocked", task.Status)
}

func TestHandleEventProgress(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Classic())

	content := `# Progress: Fix bug
**State**: In Progress

## Current Focus
Bisecting

## Next Actions
- [x] repro
- [ ] fix
`
	path := writeFile(t, dataDir, "active/t1/PROGRESS.md", content)
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventChange})

	ws, ok := store.GetWorkspace("t1")
	require.True(t, ok)
	assert.Equal(t, "Fix bug", ws.Title)
	assert.Equal(t, "In Progress", ws.Status)
	assert.Equal(t, "Bisecting", ws.CurrentFocus)
	assert.Equal(t, 1, ws.CompletedPhases)
	assert.Equal(t, 2, ws.TotalPhases)
	assert.Equal(t, 50, ws.Progress)
}

func TestHandleEventProgressPreservesFocus(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Classic())

	path := writeFile(t, dataDir, "active/t1/PROGRESS.md", "# Progress: T\n## Current Focus\nfirst focus\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	// Rewrite without a focus section: the earlier focus survives.
	writeFile(t, dataDir, "active/t1/PROGRESS.md", "# Progress: T\n**State**: Blocked\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventChange})

	ws, ok := store.GetWorkspace("t1")
	require.True(t, ok)
	assert.Equal(t, "first focus", ws.CurrentFocus)
	assert.Equal(t, "Blocked", ws.Status)
}

func TestHandleEventWorkspaceInfo(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Workspace())

	path := writeFile(t, dataDir, "workspace/ws1/README.md", "# Workspace: Auth\n**Priority**: p1\n**Task**: task-9\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	// Info upserts under the cross-referenced task id.
	ws, ok := store.GetWorkspace("task-9")
	require.True(t, ok)
	assert.Equal(t, "Auth", ws.Title)
	assert.Equal(t, record.PriorityP1, ws.Priority)
}

func TestHandleEventWorkspaceInfoDelete(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Workspace())

	path := writeFile(t, dataDir, "workspace/ws1/README.md", "# Workspace: Auth\n**Task**: task-9\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	_, ok := store.GetWorkspace("task-9")
	require.True(t, ok)

	// The record lives under the cross-referenced task id, not the
	// directory id; deleting the document must still remove it.
	require.NoError(t, os.Remove(path))
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventDelete})

	_, ok = store.GetWorkspace("task-9")
	assert.False(t, ok)

	_, workspaces := store.Counts()
	assert.Zero(t, workspaces)
}

func TestHandleEventWorkspaceInfoCrossRefRewrite(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Workspace())

	path := writeFile(t, dataDir, "workspace/ws1/README.md", "# Workspace: Auth\n**Task**: task-9\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	// Rewriting the cross-reference moves the record instead of leaving
	// both ids behind.
	writeFile(t, dataDir, "workspace/ws1/README.md", "# Workspace: Auth\n**Task**: task-10\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventChange})

	_, ok := store.GetWorkspace("task-9")
	assert.False(t, ok)
	ws, ok := store.GetWorkspace("task-10")
	require.True(t, ok)
	assert.Equal(t, "Auth", ws.Title)
}

func TestHandleEventDelete(t *testing.T) {
	coord, store, cast, dataDir := newTestCoordinator(t, parse.Classic())

	path := writeFile(t, dataDir, "active/t1/task.md", "# T\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})
	require.NoError(t, os.Remove(path))

	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventDelete})

	_, ok := store.GetTask("t1")
	assert.False(t, ok)

	envs := cast.all()
	require.Len(t, envs, 2)
	assert.Empty(t, envs[1].Data.Tasks)
}

func TestHandleEventDeleteMissingIsNoOp(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Classic())

	coord.HandleEvent(FileEvent{
		Path: filepath.Join(dataDir, "active", "ghost", "task.md"),
		Kind: record.EventDelete,
	})

	tasks, workspaces := store.Counts()
	assert.Zero(t, tasks)
	assert.Zero(t, workspaces)
}

func TestHandleEventUnrecognizedPathIgnored(t *testing.T) {
	coord, store, cast, dataDir := newTestCoordinator(t, parse.Classic())

	path := writeFile(t, dataDir, "active/t1/notes.md", "# Not a task file\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	tasks, _ := store.Counts()
	assert.Zero(t, tasks)
	assert.Empty(t, cast.all())
}

func TestHandleEventOutsideRootIgnored(t *testing.T) {
	coord, store, cast, _ := newTestCoordinator(t, parse.Classic())

	outside := writeFile(t, t.TempDir(), "active/t1/task.md", "# Elsewhere\n")
	coord.HandleEvent(FileEvent{Path: outside, Kind: record.EventAdd})

	tasks, _ := store.Counts()
	assert.Zero(t, tasks)
	assert.Empty(t, cast.all())
}

func TestHandleEventVanishedFileIsNoOp(t *testing.T) {
	coord, store, cast, dataDir := newTestCoordinator(t, parse.Classic())

	// The change event arrives but the file is already gone.
	coord.HandleEvent(FileEvent{
		Path: filepath.Join(dataDir, "active", "t1", "task.md"),
		Kind: record.EventChange,
	})

	tasks, _ := store.Counts()
	assert.Zero(t, tasks)
	// The event still matched a known role, so it is observable.
	assert.Len(t, cast.all(), 1)
}

func TestHandleEventActivityRecorded(t *testing.T) {
	coord, store, _, dataDir := newTestCoordinator(t, parse.Classic())

	path := writeFile(t, dataDir, "active/t1/task.md", "# T\n")
	coord.HandleEvent(FileEvent{Path: path, Kind: record.EventAdd})

	snap := store.Snapshot()
	require.Len(t, snap.Activity, 1)
	assert.Equal(t, "task.md", snap.Activity[0].File)
	assert.Equal(t, record.EventAdd, snap.Activity[0].Type)
}

func TestWatcherShouldIgnore(t *testing.T) {
	w := &Watcher{}

	tests := []struct {
		path string
		want bool
	}{
		{"/data/active/t1/task.md", false},
		{"/data/active/t1/.task.md.swp", true},
		{"/data/active/t1/task.md.tmp", true},
		{"/data/active/t1/task.md~", true},
		{"/data/active/t1/task.lock", true},
		{"/data/active/t1/image.png", true},
		{"/data/active/t1", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, w.shouldIgnore(tt.path), tt.path)
	}
}
