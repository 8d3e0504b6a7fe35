package deck

import (
	"time"

	"github.com/colonyops/taskdeck/internal/core/record"
)

// Wire message types understood by viewers.
const (
	MessageInitialData = "initial_data"
	MessageFileUpdate  = "file_update"
)

// Payload carries full copies of both live collections plus the recent
// archived view. Every message ships full state, never a diff: viewers may
// join mid-stream or miss a message, and a full snapshot makes each message
// self-sufficient.
type Payload struct {
	Tasks         []record.Task      `json:"tasks"`
	Workspaces    []record.Workspace `json:"workspaces"`
	ArchivedTasks []record.Task      `json:"archivedTasks,omitempty"`
}

// InitialData is sent once per new viewer connection, before any envelope.
type InitialData struct {
	Type          string             `json:"type"`
	Tasks         []record.Task      `json:"tasks"`
	Workspaces    []record.Workspace `json:"workspaces"`
	ArchivedTasks []record.Task      `json:"archivedTasks,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Envelope is broadcast after every processed file event.
type Envelope struct {
	Type      string           `json:"type"`
	File      string           `json:"file"`
	Event     record.EventKind `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      Payload          `json:"data"`
}

// Broadcaster fans envelopes out to connected viewers. Implementations must
// never block the caller on a slow viewer.
type Broadcaster interface {
	Broadcast(env Envelope)
	ClientCount() int
}

// noopBroadcaster is used until a real hub is attached.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(Envelope) {}
func (noopBroadcaster) ClientCount() int   { return 0 }
