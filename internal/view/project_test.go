package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/task"
)

func due(day int) time.Time {
	return time.Date(2025, 1, day, 9, 0, 0, 0, time.Local)
}

func fixture() []task.Task {
	return []task.Task{
		{ID: "1", Text: "Write report", Category: "Work", Priority: task.PriorityHigh, DueAt: due(3)},
		{ID: "2", Text: "Buy milk", Category: "Shopping", Priority: task.PriorityMedium, DueAt: due(1), Completed: true},
		{ID: "3", Text: "Call mom", Category: "Personal", Priority: task.PriorityLow},
		{ID: "4", Text: "Buy stamps", Category: "Shopping", Priority: task.PriorityHigh, DueAt: due(2)},
		{ID: "5", Text: "Review PR", Category: "Work", Priority: task.PriorityLow, DueAt: due(2), Completed: true},
	}
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestProject_StatusPartition(t *testing.T) {
	tasks := fixture()

	all := Project(tasks, Query{Status: StatusAll})
	pending := Project(tasks, Query{Status: StatusPending})
	completed := Project(tasks, Query{Status: StatusCompleted})

	for _, p := range pending {
		assert.NotContains(t, ids(completed), p.ID, "pending and completed must be disjoint")
	}
	assert.ElementsMatch(t, ids(all), append(ids(pending), ids(completed)...))
	assert.Len(t, all, len(tasks))
}

func TestProject_SortPriorityStable(t *testing.T) {
	got := Project(fixture(), Query{SortBy: SortPriority})

	// High: 1, 4 | Medium: 2 | Low: 3, 5 (input order kept within a rank)
	assert.Equal(t, []string{"1", "4", "2", "3", "5"}, ids(got))
}

func TestProject_SortPriorityAnyInputOrder(t *testing.T) {
	tasks := fixture()
	reversed := make([]task.Task, len(tasks))
	for i, tk := range tasks {
		reversed[len(tasks)-1-i] = tk
	}

	got := Project(reversed, Query{SortBy: SortPriority})
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Priority.Rank(), got[i].Priority.Rank())
	}
	assert.Equal(t, []string{"4", "1", "2", "5", "3"}, ids(got))
}

func TestProject_SortDueAt(t *testing.T) {
	got := Project(fixture(), Query{SortBy: SortDueAt})

	// 4 and 5 share a due instant; 3 has none and goes last.
	assert.Equal(t, []string{"2", "4", "5", "1", "3"}, ids(got))
}

func TestProject_SortCategory(t *testing.T) {
	got := Project(fixture(), Query{SortBy: SortCategory})
	assert.Equal(t, []string{"3", "2", "4", "1", "5"}, ids(got))
}

func TestProject_FilterUnion(t *testing.T) {
	tasks := []task.Task{
		{ID: "hw", Text: "Ship", Category: "Work", Priority: task.PriorityHigh},
		{ID: "lp", Text: "Nap", Category: "Personal", Priority: task.PriorityLow},
	}

	assert.Equal(t, []string{"hw"}, ids(Project(tasks, Query{Filter: "High"})))
	assert.Equal(t, []string{"hw"}, ids(Project(tasks, Query{Filter: "Work"})))
	assert.Equal(t, []string{"hw", "lp"}, ids(Project(tasks, Query{Filter: FilterAll})))
	assert.Empty(t, Project(tasks, Query{Filter: "Shopping"}))
}

func TestProject_Search(t *testing.T) {
	got := Project(fixture(), Query{Search: "BUY"})
	assert.Equal(t, []string{"2", "4"}, ids(got))

	got = Project(fixture(), Query{Search: ""})
	assert.Len(t, got, 5)

	// Case folding covers more than ASCII.
	tasks := []task.Task{{ID: "s", Text: "Straße fegen", Priority: task.PriorityLow}}
	assert.Len(t, Project(tasks, Query{Search: "STRASSE"}), 1)
}

func TestProject_SearchComposedAndDecomposed(t *testing.T) {
	tasks := []task.Task{
		{ID: "nfc", Text: "caf\u00e9 run", Priority: task.PriorityLow},
		{ID: "nfd", Text: "Cafe\u0301 booking", Priority: task.PriorityLow},
		{ID: "plain", Text: "cafeteria", Priority: task.PriorityLow},
	}

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"composed", "caf\u00e9", []string{"nfc", "nfd"}},
		{"decomposed", "cafe\u0301", []string{"nfc", "nfd"}},
		{"decomposed upper", "CAFE\u0301", []string{"nfc", "nfd"}},
		{"base letters only", "cafe", []string{"plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, ids(Project(tasks, Query{Search: tt.search})))
		})
	}
}

func TestProject_Combined(t *testing.T) {
	got := Project(fixture(), Query{
		Status: StatusPending,
		Filter: "Shopping",
		Search: "buy",
		SortBy: SortDueAt,
	})
	assert.Equal(t, []string{"4"}, ids(got))
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	tasks := fixture()
	before := ids(tasks)

	_ = Project(tasks, Query{SortBy: SortPriority})
	assert.Equal(t, before, ids(tasks))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	s, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, s)

	_, err = ParseStatus("done")
	assert.ErrorIs(t, err, task.ErrValidation)
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("Priority")
	require.NoError(t, err)
	assert.Equal(t, SortPriority, k)

	k, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortDueAt, k)

	_, err = ParseSortKey("text")
	assert.ErrorIs(t, err, task.ErrValidation)
}

func TestFilterValues(t *testing.T) {
	got := FilterValues([]string{"Work", "Personal"})
	assert.Equal(t, []string{"All", "High", "Medium", "Low", "Work", "Personal"}, got)
}
