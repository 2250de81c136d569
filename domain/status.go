package domain

import "strings"

// Status is the canonical board stage key used everywhere inside the client.
// The backend's own representation only appears at the API boundary and is
// translated through ToCanonical/ToBackend.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists the canonical stages in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// backendStatus maps canonical stages to the backend's wire representation.
var backendStatus = map[Status]string{
	StatusTodo:       "to-do",
	StatusInProgress: "in-progress",
	StatusReview:     "review",
	StatusDone:       "done",
}

// ToCanonical maps a backend status string onto a canonical stage. Matching is
// case-insensitive and ignores spaces, hyphens and underscores. Unrecognized
// values map to StatusTodo so a task can never land outside the board.
func ToCanonical(raw string) Status {
	switch normalizeStatusKey(raw) {
	case "todo", "backlog", "open", "new":
		return StatusTodo
	case "inprogress", "doing", "active", "started":
		return StatusInProgress
	case "review", "inreview", "testing", "qa":
		return StatusReview
	case "done", "complete", "completed", "closed", "finished":
		return StatusDone
	default:
		return StatusTodo
	}
}

// ToBackend maps a canonical stage onto the backend representation. Unknown
// keys default to the backend's to-do form, mirroring ToCanonical.
func ToBackend(s Status) string {
	if v, ok := backendStatus[s]; ok {
		return v
	}
	return backendStatus[StatusTodo]
}

func normalizeStatusKey(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
