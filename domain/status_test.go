package domain

import "testing"

func TestToCanonicalSynonyms(t *testing.T) {
	cases := map[string]Status{
		"to-do":        StatusTodo,
		"To Do":        StatusTodo,
		"TODO":         StatusTodo,
		"backlog":      StatusTodo,
		"in progress":  StatusInProgress,
		"In-Progress":  StatusInProgress,
		"IN_PROGRESS":  StatusInProgress,
		"doing":        StatusInProgress,
		"review":       StatusReview,
		"in review":    StatusReview,
		"QA":           StatusReview,
		"done":         StatusDone,
		"Completed":    StatusDone,
		"closed":       StatusDone,
		"  done  ":     StatusDone,
		"":             StatusTodo,
		"garbage-9000": StatusTodo,
	}
	for raw, want := range cases {
		if got := ToCanonical(raw); got != want {
			t.Fatalf("ToCanonical(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range Statuses {
		if got := ToCanonical(ToBackend(s)); got != s {
			t.Fatalf("round trip for %q yielded %q", s, got)
		}
	}
}

func TestToBackendUnknownDefaultsToTodo(t *testing.T) {
	if got := ToBackend(Status("archived")); got != ToBackend(StatusTodo) {
		t.Fatalf("unexpected backend status for unknown key: %q", got)
	}
}
