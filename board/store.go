// Package board implements the client-side Kanban state machine: the task
// store holding the active project's tasks, the pure column projector, the
// optimistic drag-move coordinator and the realtime reconciler.
package board

import (
	"sync"

	"board-sync/domain"
)

// Store holds the full, unfiltered task collection for one active project.
// It is the single source of truth; every mutation goes through ReplaceAll,
// ApplyLocalStatusChange, UpsertFromRealtime or RemoveByIdentity so partial
// writes cannot interleave.
type Store struct {
	projectID string

	mu    sync.Mutex
	tasks []domain.Task
}

// NewStore creates an empty store bound to the given project identity.
func NewStore(projectID string) *Store {
	return &Store{projectID: projectID}
}

// ProjectID returns the identity of the project this store mirrors.
func (s *Store) ProjectID() string {
	return s.projectID
}

// ReplaceAll swaps in a full fetch result. Every task's status is normalized
// through the status codec on ingestion; this is the only bulk-ingest path.
func (s *Store) ReplaceAll(tasks []domain.Task) {
	next := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		t.Status = domain.ToCanonical(string(t.Status))
		next[i] = t
	}
	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
}

// ApplyLocalStatusChange overwrites the status of the task with the given
// identity. Missing identity or unknown task is a no-op.
func (s *Store) ApplyLocalStatusChange(id string, status domain.Status) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Identity() == id {
			s.tasks[i].Status = status
			return
		}
	}
}

// UpsertFromRealtime normalizes the task's status, then replaces the stored
// task with matching identity or prepends the task when absent. Applying the
// same payload twice leaves the store unchanged. A payload carrying a lower
// non-zero revision than the stored task is dropped so a late event cannot
// clobber fresher state.
func (s *Store) UpsertFromRealtime(task domain.Task) {
	id := task.Identity()
	if id == "" {
		return
	}
	task.Status = domain.ToCanonical(string(task.Status))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Identity() != id {
			continue
		}
		if task.Rev != 0 && s.tasks[i].Rev != 0 && task.Rev < s.tasks[i].Rev {
			return
		}
		s.tasks[i] = task
		return
	}
	s.tasks = append([]domain.Task{task}, s.tasks...)
}

// RemoveByIdentity deletes the task with the given identity. Absent identity
// is a no-op, which covers a delete event arriving after the task was already
// removed locally.
func (s *Store) RemoveByIdentity(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Identity() == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// GetByIdentity returns the task with the given identity.
func (s *Store) GetByIdentity(id string) (domain.Task, bool) {
	if id == "" {
		return domain.Task{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Identity() == id {
			return s.tasks[i], true
		}
	}
	return domain.Task{}, false
}

// Snapshot returns a copy of the current task collection in store order.
func (s *Store) Snapshot() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of tasks currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
