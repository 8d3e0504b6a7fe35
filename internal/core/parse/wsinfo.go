package parse

import (
	"regexp"
	"strings"

	"github.com/colonyops/taskdeck/internal/core/record"
)

var (
	reWSTitle    = regexp.MustCompile(`(?m)^# Workspace:\s*(.+)$`)
	reWSPriority = regexp.MustCompile(`\*\*Priority\*\*:\s*(\w+)`)
	reWSDue      = regexp.MustCompile(`\*\*Due\*\*:\s*([\d-]+)`)
	reWSTask     = regexp.MustCompile(`\*\*Task\*\*:\s*([\w-]+)`)
)

// WorkspaceInfo is the parsed form of a workspace-info document, the
// alternate dialect's bold-labelled README shape.
type WorkspaceInfo struct {
	ID       string
	Title    string
	Priority record.Priority
	Due      string
	TaskID   string
}

// ParseWorkspaceInfo extracts workspace metadata from an info document.
// fallbackID is derived from the containing directory and doubles as the
// cross-referenced task id when the document names none.
func ParseWorkspaceInfo(content, fallbackID string) WorkspaceInfo {
	info := WorkspaceInfo{
		ID:       fallbackID,
		Title:    "Untitled",
		Priority: record.DefaultPriority,
		TaskID:   fallbackID,
	}

	if m := reWSTitle.FindStringSubmatch(content); m != nil {
		info.Title = strings.TrimSpace(m[1])
	}
	if m := reWSPriority.FindStringSubmatch(content); m != nil {
		info.Priority = record.ParsePriority(m[1])
	}
	info.Due = matchDate(reWSDue, content)
	if m := reWSTask.FindStringSubmatch(content); m != nil {
		info.TaskID = m[1]
	}

	return info
}
