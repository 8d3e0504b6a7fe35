// Package state owns the live task and workspace collections. The Store is
// the single source of truth; every reader gets a copied snapshot, never a
// reference into the store.
package state

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/taskdeck/internal/core/parse"
	"github.com/colonyops/taskdeck/internal/core/record"
)

// activityCap bounds the retained activity trail.
const activityCap = 20

// Snapshot is an immutable point-in-time copy of the live collections,
// ordered by id for deterministic transmission.
type Snapshot struct {
	Tasks      []record.Task
	Workspaces []record.Workspace
	Activity   []record.ActivityEntry
}

// WorkspacePatch is a partial workspace update. Nil fields are preserved
// from the prior record; non-nil fields overwrite.
type WorkspacePatch struct {
	Title           *string
	Status          *string
	Priority        *record.Priority
	CurrentFocus    *string
	CompletedPhases *int
	TotalPhases     *int
}

// Store holds the authoritative in-memory model.
type Store struct {
	mu         sync.RWMutex
	tasks      map[string]record.Task
	workspaces map[string]record.Workspace
	activity   []record.ActivityEntry // newest first

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tasks:      make(map[string]record.Task),
		workspaces: make(map[string]record.Workspace),
		now:        time.Now,
	}
}

// UpsertTask inserts or replaces the task under its id. Re-parsing the same
// source replaces the record wholesale; there is no merge across upserts.
func (s *Store) UpsertTask(t record.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// RemoveTask removes a task. Removing a missing id is a no-op.
func (s *Store) RemoveTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// UpsertWorkspace shallow-merges a patch over the workspace under id,
// creating it if absent. Progress is recomputed from the phase counters and
// LastUpdated is stamped with the time of this parse.
func (s *Store) UpsertWorkspace(id string, patch WorkspacePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[id]
	if !ok {
		ws = record.Workspace{ID: id}
	}

	if patch.Title != nil {
		ws.Title = *patch.Title
	}
	if patch.Status != nil {
		ws.Status = *patch.Status
	}
	if patch.Priority != nil {
		ws.Priority = *patch.Priority
	}
	if patch.CurrentFocus != nil {
		ws.CurrentFocus = *patch.CurrentFocus
	}
	if patch.CompletedPhases != nil {
		ws.CompletedPhases = *patch.CompletedPhases
	}
	if patch.TotalPhases != nil {
		ws.TotalPhases = *patch.TotalPhases
	}
	ws.Progress = parse.Percent(ws.CompletedPhases, ws.TotalPhases)
	ws.LastUpdated = s.now()

	s.workspaces[id] = ws
}

// RemoveWorkspace removes a workspace. Removing a missing id is a no-op.
func (s *Store) RemoveWorkspace(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workspaces, id)
}

// GetTask returns a copy of the task under id.
func (s *Store) GetTask(id string) (record.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// GetWorkspace returns a copy of the workspace under id.
func (s *Store) GetWorkspace(id string) (record.Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	return ws, ok
}

// AppendActivity records a file event at the head of the activity trail,
// evicting the oldest entry beyond the cap.
func (s *Store) AppendActivity(entry record.ActivityEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append([]record.ActivityEntry{entry}, s.activity...)
	if len(s.activity) > activityCap {
		s.activity = s.activity[:activityCap]
	}
}

// Counts returns the live collection sizes.
func (s *Store) Counts() (tasks, workspaces int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), len(s.workspaces)
}

// Snapshot returns id-ordered copies of both collections plus the activity
// trail. The returned slices are owned by the caller.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Tasks:      make([]record.Task, 0, len(s.tasks)),
		Workspaces: make([]record.Workspace, 0, len(s.workspaces)),
		Activity:   slices.Clone(s.activity),
	}
	for _, t := range s.tasks {
		t.Tags = slices.Clone(t.Tags)
		snap.Tasks = append(snap.Tasks, t)
	}
	for _, ws := range s.workspaces {
		snap.Workspaces = append(snap.Workspaces, ws)
	}

	slices.SortFunc(snap.Tasks, func(a, b record.Task) int {
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortFunc(snap.Workspaces, func(a, b record.Workspace) int {
		return strings.Compare(a.ID, b.ID)
	})

	return snap
}
