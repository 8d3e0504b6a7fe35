// Package record defines the task and workspace domain model for taskdeck.
package record

import (
	"slices"
	"strings"
	"time"
)

// Priority classifies task urgency, p0 being the most urgent.
type Priority string

const (
	PriorityP0 Priority = "p0"
	PriorityP1 Priority = "p1"
	PriorityP2 Priority = "p2"
	PriorityP3 Priority = "p3"

	// DefaultPriority is assumed when a document carries no priority field.
	DefaultPriority = PriorityP2
)

// ParsePriority normalizes a raw priority string. Unknown values fall back
// to the default rather than failing.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityP0:
		return PriorityP0
	case PriorityP1:
		return PriorityP1
	case PriorityP2:
		return PriorityP2
	case PriorityP3:
		return PriorityP3
	default:
		return DefaultPriority
	}
}

// Rank returns the sort rank of a priority. Unset or unknown priorities
// rank as the default.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	default:
		return 2
	}
}

// Display statuses folded into tasks from their progress documents.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusFinished   = "Finished"
)

// Task is a unit of planned work parsed from a task descriptor document.
// Dates are ISO (2006-01-02) strings; absent or malformed dates are empty.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	Created   string   `json:"created,omitempty"`
	Due       string   `json:"due,omitempty"`
	Completed string   `json:"completed,omitempty"`
	Tags      []string `json:"tags"`
	Context   string   `json:"context,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// CompletedAt parses the completed date. Returns false when the task is
// not finished or the date is unparseable.
func (t Task) CompletedAt() (time.Time, bool) {
	return parseDate(t.Completed)
}

// Workspace tracks the progress state of a task actively being worked.
type Workspace struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Priority        Priority  `json:"priority,omitempty"`
	CurrentFocus    string    `json:"currentFocus,omitempty"`
	CompletedPhases int       `json:"completedPhases"`
	TotalPhases     int       `json:"totalPhases"`
	Progress        int       `json:"progress"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// EventKind labels a filesystem event observed by the watcher.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventChange EventKind = "change"
	EventDelete EventKind = "delete"
)

// ActivityEntry records a single observed file event for display.
type ActivityEntry struct {
	Type      EventKind `json:"type"`
	File      string    `json:"file"`
	Timestamp time.Time `json:"timestamp"`
}

// SortTasks orders tasks for display: priority first, then due date
// ascending with undated tasks last, then creation date descending.
func SortTasks(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if r := a.Priority.Rank() - b.Priority.Rank(); r != 0 {
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
}

// SortWorkspaces orders workspaces for display: priority ascending, then
// progress descending.
func SortWorkspaces(workspaces []Workspace) {
	slices.SortStableFunc(workspaces, func(a, b Workspace) int {
		if r := a.Priority.Rank() - b.Priority.Rank(); r != 0 {
			return r
		}
		return b.Progress - a.Progress
	})
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
