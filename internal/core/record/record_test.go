package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"p0", PriorityP0},
		{"P1", PriorityP1},
		{" p3 ", PriorityP3},
		{"", DefaultPriority},
		{"high", DefaultPriority},
		{"p9", DefaultPriority},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePriority(tt.in), "%q", tt.in)
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityP0.Rank())
	assert.Equal(t, 3, PriorityP3.Rank())
	// Unset priority ranks with the default.
	assert.Equal(t, 2, Priority("").Rank())
	assert.Equal(t, 2, Priority("banana").Rank())
}

func TestSortTasks(t *testing.T) {
	tasks := []Task{
		{ID: "undated-p0", Priority: PriorityP0},
		{ID: "late-p0", Priority: PriorityP0, Due: "2024-03-01"},
		{ID: "early-p0", Priority: PriorityP0, Due: "2024-01-15"},
		{ID: "older", Priority: PriorityP2, Created: "2024-01-01"},
		{ID: "newer", Priority: PriorityP2, Created: "2024-02-01"},
	}

	SortTasks(tasks)

	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{"early-p0", "late-p0", "undated-p0", "newer", "older"}, ids)
}

func TestSortWorkspaces(t *testing.T) {
	workspaces := []Workspace{
		{ID: "behind", Priority: PriorityP1, Progress: 10},
		{ID: "ahead", Priority: PriorityP1, Progress: 80},
		{ID: "later", Priority: PriorityP3, Progress: 100},
	}

	SortWorkspaces(workspaces)

	assert.Equal(t, "ahead", workspaces[0].ID)
	assert.Equal(t, "behind", workspaces[1].ID)
	assert.Equal(t, "later", workspaces[2].ID)
}
