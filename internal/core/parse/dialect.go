// Package parse turns semi-structured markdown documents into typed records.
// All parsers are pure best-effort functions: malformed input degrades to
// documented defaults, never to an error.
package parse

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Role identifies what kind of record a watched file contributes.
type Role string

const (
	RoleNone          Role = ""
	RoleTask          Role = "task"
	RoleProgress      Role = "progress"
	RoleWorkspaceInfo Role = "workspace-info"
)

// Dialect describes one directory/document convention for encoding tasks
// and progress as text. Patterns are doublestar globs relative to the data
// root. Exactly one dialect is active per deployment.
type Dialect struct {
	Name             string
	TaskPatterns     []string
	ProgressPatterns []string
	InfoPatterns     []string
	ActiveDir        string
	ArchiveDir       string
}

// Classic is the active/{id}/task.md + PROGRESS.md convention.
func Classic() Dialect {
	return Dialect{
		Name:             "classic",
		TaskPatterns:     []string{"active/*/task.md"},
		ProgressPatterns: []string{"active/*/PROGRESS.md"},
		ActiveDir:        "active",
		ArchiveDir:       "archive",
	}
}

// Workspace is the todo/active.md + workspace/{id}/README.md convention.
func Workspace() Dialect {
	return Dialect{
		Name:             "workspace",
		TaskPatterns:     []string{"todo/active.md"},
		ProgressPatterns: []string{"workspace/*/PROGRESS.md"},
		InfoPatterns:     []string{"workspace/*/README.md"},
		ActiveDir:        "workspace",
		ArchiveDir:       "archive",
	}
}

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case "", "classic":
		return Classic(), nil
	case "workspace":
		return Workspace(), nil
	default:
		return Dialect{}, fmt.Errorf("unknown dialect %q", name)
	}
}

// Classify matches a data-root-relative path against the dialect's role
// patterns. Unrecognized paths return RoleNone.
func (d Dialect) Classify(rel string) Role {
	rel = filepath.ToSlash(rel)
	for _, p := range d.TaskPatterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return RoleTask
		}
	}
	for _, p := range d.ProgressPatterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return RoleProgress
		}
	}
	for _, p := range d.InfoPatterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return RoleWorkspaceInfo
		}
	}
	return RoleNone
}

// IDFromPath derives the stable record id from a file's containing
// directory. Re-parsing the same path always yields the same id.
func IDFromPath(rel string) string {
	return path.Base(path.Dir(filepath.ToSlash(rel)))
}
