// Package deck is the service layer of taskdeck: it owns the watcher, the
// change coordinator, and the query surface consumed by the HTTP API and
// the broadcast hub.
package deck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/core/archive"
	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/parse"
	"github.com/colonyops/taskdeck/internal/core/record"
	"github.com/colonyops/taskdeck/internal/core/state"
)

// Status is the daemon health summary served by the status endpoint.
type Status struct {
	Status     string     `json:"status"`
	Uptime     int64      `json:"uptime"` // milliseconds
	Tasks      int        `json:"tasks"`
	Workspaces int        `json:"workspaces"`
	Clients    int        `json:"clients"`
	Monitoring Monitoring `json:"monitoring"`
}

// Monitoring names the directories the daemon watches.
type Monitoring struct {
	ActivePath  string `json:"activePath"`
	ArchivePath string `json:"archivePath"`
}

// ProgressDetail is the raw plus parsed view of a single progress document.
type ProgressDetail struct {
	Raw             string `json:"raw"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	CurrentFocus    string `json:"currentFocus,omitempty"`
	CompletedPhases int    `json:"completedPhases"`
	TotalPhases     int    `json:"totalPhases"`
	Progress        int    `json:"progress"`
}

// Service wires the store, scanner, and coordinator together and runs the
// single event-processing stream.
type Service struct {
	cfg         *config.Config
	dialect     parse.Dialect
	store       *state.Store
	scanner     *archive.Scanner
	coord       *Coordinator
	broadcaster Broadcaster
	log         zerolog.Logger
	startTime   time.Time
}

// NewService builds the service from validated configuration.
func NewService(cfg *config.Config, log zerolog.Logger) (*Service, error) {
	dialect, err := cfg.ResolveDialect()
	if err != nil {
		return nil, err
	}

	store := state.New()
	scanner := archive.NewScanner(cfg.ArchivePath(), cfg.TaskFile, log)
	coord := NewCoordinator(
		cfg.DataDir,
		dialect,
		cfg.ProgressFile,
		store,
		scanner,
		cfg.Archive.WindowDays,
		cfg.Archive.MaxResults,
		log,
	)

	return &Service{
		cfg:         cfg,
		dialect:     dialect,
		store:       store,
		scanner:     scanner,
		coord:       coord,
		broadcaster: noopBroadcaster{},
		log:         log.With().Str("component", "deck").Logger(),
		startTime:   time.Now(),
	}, nil
}

// SetBroadcaster attaches the viewer fan-out channel.
func (s *Service) SetBroadcaster(b Broadcaster) {
	if b == nil {
		return
	}
	s.broadcaster = b
	s.coord.SetBroadcaster(b)
}

// LoadInitial rebuilds the store from disk. State is not persisted across
// restarts; this scan is the only source of startup state.
func (s *Service) LoadInitial() {
	archiveDir := s.cfg.ArchivePath()

	_ = filepath.WalkDir(s.cfg.DataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == archiveDir || (strings.HasPrefix(filepath.Base(path), ".") && path != s.cfg.DataDir) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.cfg.DataDir, path)
		if err != nil {
			return nil
		}
		s.coord.Apply(path, rel, record.EventAdd)
		return nil
	})

	tasks, workspaces := s.store.Counts()
	s.log.Info().
		Int("tasks", tasks).
		Int("workspaces", workspaces).
		Msg("initial data loaded")
}

// Run watches the data directory and processes file events strictly one at
// a time in arrival order until the context is canceled. No concurrent
// store mutation is possible by construction.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := NewWatcher(s.cfg.DataDir, time.Duration(s.cfg.Watch.DebounceMS)*time.Millisecond, s.log)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("active", s.cfg.ActivePath()).
		Str("archive", s.cfg.ArchivePath()).
		Msg("watching data directory")

	for {
		select {
		case <-ctx.Done():
			return watcher.Close()
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			s.coord.HandleEvent(ev)
		}
	}
}

// ListTasks returns an id-ordered copy of the live task collection.
func (s *Service) ListTasks() []record.Task {
	return s.store.Snapshot().Tasks
}

// ListWorkspaces returns an id-ordered copy of the live workspaces.
func (s *Service) ListWorkspaces() []record.Workspace {
	return s.store.Snapshot().Workspaces
}

// RecentArchived returns the configured time-windowed archive view.
func (s *Service) RecentArchived() []record.Task {
	return s.scanner.RecentArchived(time.Now(), s.cfg.Archive.WindowDays, s.cfg.Archive.MaxResults)
}

// GetStatus reports uptime, collection sizes, and connected viewer count.
func (s *Service) GetStatus() Status {
	tasks, workspaces := s.store.Counts()
	return Status{
		Status:     "running",
		Uptime:     time.Since(s.startTime).Milliseconds(),
		Tasks:      tasks,
		Workspaces: workspaces,
		Clients:    s.broadcaster.ClientCount(),
		Monitoring: Monitoring{
			ActivePath:  s.cfg.ActivePath(),
			ArchivePath: s.cfg.ArchivePath(),
		},
	}
}

// WorkspaceProgress returns the raw and parsed progress document for an id,
// checking the active area first and then the archive. Returns false when
// no progress document exists in either area, distinct from an
// empty-but-present record.
func (s *Service) WorkspaceProgress(id string) (ProgressDetail, bool) {
	for _, dir := range []string{s.cfg.ActivePath(), s.cfg.ArchivePath()} {
		data, err := os.ReadFile(filepath.Join(dir, id, s.cfg.ProgressFile))
		if err != nil {
			continue
		}
		p := parse.ParseProgress(string(data))
		return ProgressDetail{
			Raw:             string(data),
			Title:           p.Title,
			Status:          p.Status,
			CurrentFocus:    p.CurrentFocus,
			CompletedPhases: p.CompletedPhases,
			TotalPhases:     p.TotalPhases,
			Progress:        p.Progress,
		}, true
	}
	return ProgressDetail{}, false
}

// InitialData builds the baseline message sent to every new viewer before
// any incremental envelope.
func (s *Service) InitialData() InitialData {
	snap := s.store.Snapshot()
	return InitialData{
		Type:          MessageInitialData,
		Tasks:         snap.Tasks,
		Workspaces:    snap.Workspaces,
		ArchivedTasks: s.RecentArchived(),
		Timestamp:     time.Now(),
	}
}
