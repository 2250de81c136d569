package board

import (
	"sort"
	"strings"

	"board-sync/domain"
)

// SortKey selects the attribute a projection is ordered by.
type SortKey string

const (
	SortNone     SortKey = ""
	SortDeadline SortKey = "deadline"
	SortPriority SortKey = "priority"
)

// Filters is the ephemeral view criteria applied by Project. Zero values
// disable the corresponding filter.
type Filters struct {
	List     string
	Assignee string
	Priority string
	SortBy   SortKey
	Desc     bool
}

// Columns maps every canonical status to the ordered tasks projected into
// that column. All four stages are always present as keys.
type Columns map[domain.Status][]domain.Task

// priorityRank orders known priority labels for sorting; unknown labels sort
// first.
var priorityRank = map[string]int{
	"low":    1,
	"medium": 2,
	"high":   3,
	"urgent": 4,
}

// Project derives the per-column grouping from the task collection and the
// given filters. It is a pure function: it never mutates its input and the
// returned columns hold copies of the task values, so later mutation of the
// input slice does not leak into a previously returned projection.
func Project(tasks []domain.Task, f Filters) Columns {
	filtered := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.List != "" && t.List.Identity() != f.List {
			continue
		}
		if f.Assignee != "" && !t.AssignedTo(f.Assignee) {
			continue
		}
		if f.Priority != "" && !strings.EqualFold(t.Priority, f.Priority) {
			continue
		}
		filtered = append(filtered, t)
	}

	switch f.SortBy {
	case SortDeadline:
		// Missing deadlines sort as the earliest possible value; ISO-8601
		// deadlines compare correctly as strings.
		sort.SliceStable(filtered, func(i, j int) bool {
			if f.Desc {
				return filtered[i].Deadline > filtered[j].Deadline
			}
			return filtered[i].Deadline < filtered[j].Deadline
		})
	case SortPriority:
		sort.SliceStable(filtered, func(i, j int) bool {
			a := priorityRank[strings.ToLower(filtered[i].Priority)]
			b := priorityRank[strings.ToLower(filtered[j].Priority)]
			if f.Desc {
				return a > b
			}
			return a < b
		})
	}

	cols := Columns{}
	for _, s := range domain.Statuses {
		cols[s] = []domain.Task{}
	}
	for _, t := range filtered {
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}

// clone returns a deep-enough copy of the columns for snapshot/rollback: the
// per-column slices are fresh, the task values copied.
func (c Columns) clone() Columns {
	out := make(Columns, len(c))
	for status, tasks := range c {
		dup := make([]domain.Task, len(tasks))
		copy(dup, tasks)
		out[status] = dup
	}
	return out
}

// Total returns the number of tasks across all columns.
func (c Columns) Total() int {
	n := 0
	for _, tasks := range c {
		n += len(tasks)
	}
	return n
}
