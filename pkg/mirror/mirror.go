// Package mirror maintains a viewer-side copy of taskdeck server state.
// The server always ships full state, so the mirror replaces its
// collections wholesale on every message; consistency after any missed
// message is restored by the next one.
package mirror

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// activityCap bounds the viewer's activity trail.
const activityCap = 20

// Message types pushed by the server.
const (
	TypeInitialData = "initial_data"
	TypeFileUpdate  = "file_update"
)

// Task is the viewer's copy of a server task record.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  string   `json:"priority"`
	Created   string   `json:"created,omitempty"`
	Due       string   `json:"due,omitempty"`
	Completed string   `json:"completed,omitempty"`
	Tags      []string `json:"tags"`
	Context   string   `json:"context,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// Workspace is the viewer's copy of a server workspace record.
type Workspace struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority,omitempty"`
	CurrentFocus    string    `json:"currentFocus,omitempty"`
	CompletedPhases int       `json:"completedPhases"`
	TotalPhases     int       `json:"totalPhases"`
	Progress        int       `json:"progress"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Activity is one observed file event, newest first.
type Activity struct {
	Type      string    `json:"type"`
	File      string    `json:"file"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload carries the full collections embedded in a file_update message.
type Payload struct {
	Tasks         []Task      `json:"tasks"`
	Workspaces    []Workspace `json:"workspaces"`
	ArchivedTasks []Task      `json:"archivedTasks"`
}

// Message decodes both server message types.
type Message struct {
	Type          string      `json:"type"`
	Tasks         []Task      `json:"tasks"`
	Workspaces    []Workspace `json:"workspaces"`
	ArchivedTasks []Task      `json:"archivedTasks"`
	File          string      `json:"file"`
	Event         string      `json:"event"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          *Payload    `json:"data"`
}

// ConnState is the viewer connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Mirror holds the local copy of tasks, workspaces, archived tasks, and the
// activity trail. All accessors return copies in render order.
type Mirror struct {
	mu         sync.RWMutex
	tasks      []Task
	workspaces []Workspace
	archived   []Task
	activity   []Activity
	state      ConnState
}

// New creates an empty, disconnected mirror.
func New() *Mirror {
	return &Mirror{}
}

// Apply folds one server message into the mirror. Both message types
// replace the collections wholesale; a file_update additionally records an
// activity entry.
func (m *Mirror) Apply(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case TypeInitialData:
		m.tasks = msg.Tasks
		m.workspaces = msg.Workspaces
		m.archived = msg.ArchivedTasks
	case TypeFileUpdate:
		m.activity = append([]Activity{{
			Type:      msg.Event,
			File:      baseName(msg.File),
			Timestamp: msg.Timestamp,
		}}, m.activity...)
		if len(m.activity) > activityCap {
			m.activity = m.activity[:activityCap]
		}
		if msg.Data != nil {
			m.tasks = msg.Data.Tasks
			m.workspaces = msg.Data.Workspaces
			m.archived = msg.Data.ArchivedTasks
		}
	}
}

// SetState records a connection state transition.
func (m *Mirror) SetState(s ConnState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *Mirror) State() ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Tasks returns tasks in render order: priority first, due date ascending
// with undated tasks last, then creation date descending.
func (m *Mirror) Tasks() []Task {
	m.mu.RLock()
	tasks := slices.Clone(m.tasks)
	m.mu.RUnlock()

	slices.SortStableFunc(tasks, func(a, b Task) int {
		if r := priorityRank(a.Priority) - priorityRank(b.Priority); r != 0 {
			return r
		}
		if a.Due != b.Due {
			switch {
			case a.Due == "":
				return 1
			case b.Due == "":
				return -1
			default:
				return strings.Compare(a.Due, b.Due)
			}
		}
		return strings.Compare(b.Created, a.Created)
	})
	return tasks
}

// Workspaces returns workspaces in render order: priority ascending with
// unset priority treated as p2, then progress descending.
func (m *Mirror) Workspaces() []Workspace {
	m.mu.RLock()
	workspaces := slices.Clone(m.workspaces)
	m.mu.RUnlock()

	slices.SortStableFunc(workspaces, func(a, b Workspace) int {
		if r := priorityRank(a.Priority) - priorityRank(b.Priority); r != 0 {
			return r
		}
		return b.Progress - a.Progress
	})
	return workspaces
}

// Archived returns the recent archived tasks as shipped by the server.
func (m *Mirror) Archived() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.archived)
}

// ActivityLog returns the activity trail, newest first.
func (m *Mirror) ActivityLog() []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.activity)
}

func priorityRank(p string) int {
	switch p {
	case "p0":
		return 0
	case "p1":
		return 1
	case "p3":
		return 3
	default:
		return 2
	}
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
