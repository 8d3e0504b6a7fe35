package parse

import (
	"math"
	"regexp"
	"strings"
)

var (
	reState       = regexp.MustCompile(`\*\*State\*\*:\s*([^\n]+)`)
	reProgTitle   = regexp.MustCompile(`# Progress: (.+)`)
	reFocus       = regexp.MustCompile(`## Current Focus\s*\n([^\n#]+)`)
	reNextActions = regexp.MustCompile(`(?s)## Next Actions\s*\n(.*?)(?:\n## |$)`)
	reCheckbox    = regexp.MustCompile(`(?i)- \[[x ]\]`)
	reChecked     = regexp.MustCompile(`(?i)- \[x\]`)
)

// Progress is the parsed form of a progress descriptor document.
type Progress struct {
	Title           string
	Status          string
	CurrentFocus    string
	CompletedPhases int
	TotalPhases     int
	Progress        int
}

// ParseProgress extracts workspace progress from a progress document.
// Checkboxes are counted only inside the "Next Actions" section; a checkbox
// counts toward the total regardless of checked state. With no checkboxes
// present, progress is 0 and status defaults to "In Progress".
func ParseProgress(content string) Progress {
	p := Progress{
		Title:  "Unknown Task",
		Status: "In Progress",
	}

	if m := reProgTitle.FindStringSubmatch(content); m != nil {
		p.Title = strings.TrimSpace(m[1])
	}
	if m := reState.FindStringSubmatch(content); m != nil {
		p.Status = strings.TrimSpace(m[1])
	}
	if m := reFocus.FindStringSubmatch(content); m != nil {
		p.CurrentFocus = strings.TrimSpace(m[1])
	}

	var section string
	if m := reNextActions.FindStringSubmatch(content); m != nil {
		section = m[1]
	}
	p.TotalPhases = len(reCheckbox.FindAllString(section, -1))
	p.CompletedPhases = len(reChecked.FindAllString(section, -1))
	p.Progress = Percent(p.CompletedPhases, p.TotalPhases)

	return p
}

// Percent computes round(100*completed/total), or 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
