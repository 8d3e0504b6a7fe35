package deck

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/core/archive"
	"github.com/colonyops/taskdeck/internal/core/parse"
	"github.com/colonyops/taskdeck/internal/core/record"
	"github.com/colonyops/taskdeck/internal/core/state"
)

// Coordinator consumes file events, routes them to the right parser, applies
// the result to the store, and emits one broadcast envelope per processed
// event. Unrecognized paths are ignored; per-event failures degrade to
// no-ops so a single bad file can never stall the event stream.
type Coordinator struct {
	dataDir      string
	dialect      parse.Dialect
	progressFile string
	store        *state.Store
	scanner      *archive.Scanner
	windowDays   int
	maxResults   int
	broadcaster  Broadcaster
	log          zerolog.Logger
	now          func() time.Time

	// infoRefs maps a workspace-info directory id to the task id its
	// document cross-referenced, so a later delete removes the record the
	// upsert created. Touched only from the single event stream.
	infoRefs map[string]string
}

// NewCoordinator wires the event pipeline. The broadcaster may be swapped in
// later via SetBroadcaster; until then envelopes are dropped.
func NewCoordinator(
	dataDir string,
	dialect parse.Dialect,
	progressFile string,
	store *state.Store,
	scanner *archive.Scanner,
	windowDays, maxResults int,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		dataDir:      dataDir,
		dialect:      dialect,
		progressFile: progressFile,
		store:        store,
		scanner:      scanner,
		windowDays:   windowDays,
		maxResults:   maxResults,
		broadcaster:  noopBroadcaster{},
		log:          log.With().Str("component", "coordinator").Logger(),
		now:          time.Now,
		infoRefs:     make(map[string]string),
	}
}

// SetBroadcaster attaches the fan-out channel for processed events.
func (c *Coordinator) SetBroadcaster(b Broadcaster) {
	if b != nil {
		c.broadcaster = b
	}
}

// HandleEvent processes one filesystem event to completion: classify,
// parse, apply, record activity, broadcast. Events for unrecognized paths
// are dropped silently.
func (c *Coordinator) HandleEvent(ev FileEvent) {
	rel, err := filepath.Rel(c.dataDir, ev.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	if !c.Apply(ev.Path, rel, ev.Kind) {
		return
	}

	c.log.Info().
		Str("file", rel).
		Str("event", string(ev.Kind)).
		Msg("processed file event")

	c.store.AppendActivity(record.ActivityEntry{
		Type:      ev.Kind,
		File:      filepath.Base(ev.Path),
		Timestamp: c.now(),
	})

	c.broadcaster.Broadcast(Envelope{
		Type:      MessageFileUpdate,
		File:      filepath.ToSlash(rel),
		Event:     ev.Kind,
		Timestamp: c.now(),
		Data:      c.payload(),
	})
}

// Apply mutates the store for a single event without broadcasting. Returns
// false when the path matches no recognized file role.
func (c *Coordinator) Apply(path, rel string, kind record.EventKind) bool {
	role := c.dialect.Classify(rel)
	if role == parse.RoleNone {
		return false
	}

	id := parse.IDFromPath(rel)

	switch role {
	case parse.RoleTask:
		if kind == record.EventDelete {
			c.store.RemoveTask(id)
			return true
		}
		c.updateTask(path, id)
	case parse.RoleProgress:
		if kind == record.EventDelete {
			c.store.RemoveWorkspace(id)
			return true
		}
		c.updateProgress(path, id)
	case parse.RoleWorkspaceInfo:
		if kind == record.EventDelete {
			c.store.RemoveWorkspace(c.infoRef(id))
			return true
		}
		c.updateWorkspaceInfo(path, id)
	}

	return true
}

// updateTask parses a task descriptor and folds the sibling progress
// document's status into the task's display status. The progress file is
// read, not mutated.
func (c *Coordinator) updateTask(path, id string) {
	content, ok := c.readFile(path)
	if !ok {
		return
	}

	task := parse.ParseTask(content, id)

	task.Status = record.StatusNotStarted
	if sibling, ok := c.readFile(filepath.Join(filepath.Dir(path), c.progressFile)); ok {
		task.Status = parse.ParseProgress(sibling).Status
	}

	c.store.UpsertTask(task)
}

func (c *Coordinator) updateProgress(path, id string) {
	content, ok := c.readFile(path)
	if !ok {
		return
	}

	p := parse.ParseProgress(content)

	patch := state.WorkspacePatch{
		Title:           &p.Title,
		Status:          &p.Status,
		CompletedPhases: &p.CompletedPhases,
		TotalPhases:     &p.TotalPhases,
	}
	// An absent focus line preserves the previously known focus
	if p.CurrentFocus != "" {
		patch.CurrentFocus = &p.CurrentFocus
	}

	c.store.UpsertWorkspace(id, patch)
}

func (c *Coordinator) updateWorkspaceInfo(path, id string) {
	content, ok := c.readFile(path)
	if !ok {
		return
	}

	info := parse.ParseWorkspaceInfo(content, id)

	// A rewritten cross-reference must not strand the old record.
	if prev, ok := c.infoRefs[id]; ok && prev != info.TaskID {
		c.store.RemoveWorkspace(prev)
	}
	c.infoRefs[id] = info.TaskID

	c.store.UpsertWorkspace(info.TaskID, state.WorkspacePatch{
		Title:    &info.Title,
		Priority: &info.Priority,
	})
}

// infoRef resolves the store key for a deleted workspace-info document and
// forgets the mapping. Falls back to the directory id when the document was
// never successfully parsed.
func (c *Coordinator) infoRef(id string) string {
	if ref, ok := c.infoRefs[id]; ok {
		delete(c.infoRefs, id)
		return ref
	}
	return id
}

// readFile reads a watched file. A file that vanished between the event and
// the read (race with a fast delete) is a no-op, not a failure.
func (c *Coordinator) readFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", path).Msg("read watched file")
		}
		return "", false
	}
	return string(data), true
}

// payload assembles the full-state payload shipped with every message.
func (c *Coordinator) payload() Payload {
	snap := c.store.Snapshot()
	return Payload{
		Tasks:         snap.Tasks,
		Workspaces:    snap.Workspaces,
		ArchivedTasks: c.scanner.RecentArchived(c.now(), c.windowDays, c.maxResults),
	}
}
