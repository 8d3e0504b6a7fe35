package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/colonyops/taskdeck/internal/core/record"
)

var (
	reTitle     = regexp.MustCompile(`(?m)^# (.+)$`)
	reTaskID    = regexp.MustCompile(`\*\*id\*\*:\s*(\w+)`)
	rePriority  = regexp.MustCompile(`\*\*priority\*\*:\s*(\w+)`)
	reCreated   = regexp.MustCompile(`\*\*created\*\*:\s*([\d-]+)`)
	reDue       = regexp.MustCompile(`\*\*due\*\*:\s*([\d-]+)`)
	reCompleted = regexp.MustCompile(`\*\*completed\*\*:\s*([\d-]+)`)
	reTags      = regexp.MustCompile(`\*\*tags\*\*:\s*\[([^\]]*)\]`)
	reContext   = regexp.MustCompile(`(?s)## Context\s*\n(.*?)(?:\n## |$)`)
)

// ParseTask extracts a task record from a task descriptor document.
// fallbackID is used when the document carries no explicit id tag; it is
// normally derived from the containing directory.
func ParseTask(content, fallbackID string) record.Task {
	t := record.Task{
		ID:       fallbackID,
		Title:    "Untitled",
		Priority: record.DefaultPriority,
		Tags:     []string{},
	}

	if m := reTitle.FindStringSubmatch(content); m != nil {
		t.Title = strings.TrimSpace(m[1])
	}
	if m := reTaskID.FindStringSubmatch(content); m != nil {
		t.ID = m[1]
	}
	if m := rePriority.FindStringSubmatch(content); m != nil {
		t.Priority = record.ParsePriority(m[1])
	}
	t.Created = matchDate(reCreated, content)
	t.Due = matchDate(reDue, content)
	t.Completed = matchDate(reCompleted, content)

	if m := reTags.FindStringSubmatch(content); m != nil {
		for _, tag := range strings.Split(m[1], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				t.Tags = append(t.Tags, tag)
			}
		}
	}
	if m := reContext.FindStringSubmatch(content); m != nil {
		t.Context = strings.TrimSpace(m[1])
	}

	return t
}

// matchDate extracts and validates an ISO date field. Malformed dates are
// treated as absent, not as errors.
func matchDate(re *regexp.Regexp, content string) string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	if _, err := time.Parse("2006-01-02", m[1]); err != nil {
		return ""
	}
	return m[1]
}
