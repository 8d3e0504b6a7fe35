// Package archive provides a read-only, time-windowed query over completed
// tasks in the archival area. Every query is a full re-scan; archival
// directories are small and the query is off the hot path, so no index is
// maintained.
package archive

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/core/parse"
	"github.com/colonyops/taskdeck/internal/core/record"
)

// reservedDir is the aggregation subdirectory excluded from scans.
const reservedDir = "weeks"

// Scanner queries the archive area. It is stateless; results are ephemeral
// request-scoped views that are never inserted into the live store.
type Scanner struct {
	dir      string
	taskFile string
	log      zerolog.Logger
}

// NewScanner creates a scanner over the given archive directory. taskFile
// is the task descriptor filename within each per-id subdirectory.
func NewScanner(dir, taskFile string, log zerolog.Logger) *Scanner {
	return &Scanner{
		dir:      dir,
		taskFile: taskFile,
		log:      log.With().Str("component", "archive").Logger(),
	}
}

// RecentArchived returns tasks whose completed date falls within
// [now - windowDays, now] inclusive, marked Finished, sorted by completed
// date descending and truncated to maxResults. A missing archive directory
// yields an empty result.
func (s *Scanner) RecentArchived(now time.Time, windowDays, maxResults int) []record.Task {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	from := now.AddDate(0, 0, -windowDays)
	var tasks []record.Task

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == reservedDir || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(s.dir, entry.Name(), s.taskFile))
		if err != nil {
			continue
		}

		task := parse.ParseTask(string(content), entry.Name())
		completed, ok := task.CompletedAt()
		if !ok {
			continue
		}
		if completed.Before(from) || completed.After(now) {
			continue
		}

		task.Status = record.StatusFinished
		tasks = append(tasks, task)
	}

	slices.SortFunc(tasks, func(a, b record.Task) int {
		return strings.Compare(b.Completed, a.Completed)
	})
	if maxResults > 0 && len(tasks) > maxResults {
		tasks = tasks[:maxResults]
	}

	s.log.Debug().Int("count", len(tasks)).Msg("archive scan complete")
	return tasks
}
