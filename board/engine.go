package board

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

// Remote is the backend contract the engine consumes. FetchColumns returns
// the full board snapshot grouped by the backend's status representation.
type Remote interface {
	FetchColumns(ctx context.Context, projectID string) (map[string][]domain.Task, error)
	CreateTask(ctx context.Context, listID string, payload domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, payload domain.Task) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	MoveTask(ctx context.Context, taskID, backendStatus string) (domain.Task, error)
}

// SnapshotCache persists the last successful board fetch so a restart can
// serve a warm board before the first fetch completes.
type SnapshotCache interface {
	LoadTasks(ctx context.Context, projectID string) ([]domain.Task, bool)
	StoreTasks(ctx context.Context, projectID string, tasks []domain.Task)
	Evict(ctx context.Context, projectID string)
}

// Engine owns the board state machine for one active project: the task
// store, the working column projection, the drag coordinator and the realtime
// reconciler. Switching projects atomically discards the previous collection.
type Engine struct {
	remote Remote
	cache  SnapshotCache
	notify Notifier
	logger *log.Logger

	mu      sync.Mutex
	store   *Store
	coord   *Coordinator
	recon   *Reconciler
	filters Filters
}

// NewEngine creates an engine for the given project. When a snapshot cache is
// configured its last snapshot is loaded as warm-start state; the caller is
// expected to Refresh afterwards.
func NewEngine(ctx context.Context, projectID string, remote Remote, cache SnapshotCache, notify Notifier, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := &Engine{
		remote: remote,
		cache:  cache,
		notify: notify,
		logger: logger,
	}
	e.activate(ctx, projectID)
	return e
}

func (e *Engine) activate(ctx context.Context, projectID string) {
	e.store = NewStore(projectID)
	e.coord = NewCoordinator(e.store, e.remote, e.notify, e.logger)
	e.recon = NewReconciler(e.store, e.logger)
	if e.cache != nil {
		if tasks, ok := e.cache.LoadTasks(ctx, projectID); ok {
			e.store.ReplaceAll(tasks)
			e.logger.WithFields(log.Fields{"project": projectID, "tasks": len(tasks)}).Debug("warm start from snapshot cache")
		}
	}
	e.reprojectLocked()
}

// ActivateProject switches the active project: the previous task collection
// is discarded atomically and a fresh fetch populates the new store.
func (e *Engine) ActivateProject(ctx context.Context, projectID string) error {
	e.mu.Lock()
	e.activate(ctx, projectID)
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// ProjectID returns the identity of the active project.
func (e *Engine) ProjectID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ProjectID()
}

// Refresh performs the full fetch for the active project. A fetch failure
// resets the store to empty and evicts the snapshot cache so no partial or
// stale state survives.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	projectID := store.ProjectID()

	cols, err := e.remote.FetchColumns(ctx, projectID)
	if err != nil {
		store.ReplaceAll(nil)
		if e.cache != nil {
			e.cache.Evict(ctx, projectID)
		}
		e.reproject()
		e.logger.WithFields(log.Fields{"project": projectID, "error": err.Error()}).Error("board fetch failed")
		if e.notify != nil {
			e.notify.Error("could not load the board")
		}
		return err
	}

	flat := make([]domain.Task, 0, 16)
	for backendStatus, tasks := range cols {
		for _, t := range tasks {
			if t.Status == "" {
				t.Status = domain.Status(backendStatus)
			}
			flat = append(flat, t)
		}
	}
	store.ReplaceAll(flat)
	if e.cache != nil {
		e.cache.StoreTasks(ctx, projectID, store.Snapshot())
	}
	e.reproject()
	e.logger.WithFields(log.Fields{"project": projectID, "tasks": len(flat)}).Info("board refreshed")
	return nil
}

// SetFilters replaces the view criteria and recomputes the projection.
func (e *Engine) SetFilters(f Filters) {
	e.mu.Lock()
	e.filters = f
	e.reprojectLocked()
	e.mu.Unlock()
}

// Columns returns the current working projection, including any optimistic
// drag ordering not yet confirmed by the backend.
func (e *Engine) Columns() Columns {
	e.mu.Lock()
	coord := e.coord
	e.mu.Unlock()
	return coord.Columns()
}

// View computes a pure projection of the current store content under the
// given filters, independent of the working projection.
func (e *Engine) View(f Filters) Columns {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	return Project(store.Snapshot(), f)
}

// Snapshot returns a copy of the active store's task collection.
func (e *Engine) Snapshot() []domain.Task {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	return store.Snapshot()
}

// GetByIdentity returns a task from the active store.
func (e *Engine) GetByIdentity(id string) (domain.Task, bool) {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	return store.GetByIdentity(id)
}

// Drop forwards a completed drag gesture to the coordinator.
func (e *Engine) Drop(ctx context.Context, d Drop) {
	e.mu.Lock()
	coord := e.coord
	e.mu.Unlock()
	coord.Drop(ctx, d)
}

// HandleEvent applies one realtime event and recomputes the projection.
func (e *Engine) HandleEvent(ev domain.Event) {
	e.mu.Lock()
	recon := e.recon
	e.mu.Unlock()
	recon.Apply(ev)
	e.reproject()
}

// Create issues a remote create. It is not optimistic: the store only changes
// when the call succeeds, from the returned payload.
func (e *Engine) Create(ctx context.Context, listID string, payload domain.Task) (domain.Task, error) {
	created, err := e.remote.CreateTask(ctx, listID, payload)
	if err != nil {
		e.fail("could not create task", err)
		return domain.Task{}, err
	}
	e.applyRemoteResult(created)
	return created, nil
}

// Update issues a remote update; not optimistic, same policy as Create.
func (e *Engine) Update(ctx context.Context, taskID string, payload domain.Task) (domain.Task, error) {
	updated, err := e.remote.UpdateTask(ctx, taskID, payload)
	if err != nil {
		e.fail("could not update task", err)
		return domain.Task{}, err
	}
	e.applyRemoteResult(updated)
	return updated, nil
}

// Delete issues a remote delete; the store entry is removed only on success.
func (e *Engine) Delete(ctx context.Context, taskID string) error {
	if err := e.remote.DeleteTask(ctx, taskID); err != nil {
		e.fail("could not delete task", err)
		return err
	}
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	store.RemoveByIdentity(taskID)
	e.reproject()
	return nil
}

func (e *Engine) applyRemoteResult(task domain.Task) {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	store.UpsertFromRealtime(task)
	e.reproject()
}

func (e *Engine) fail(msg string, err error) {
	e.logger.WithField("error", err.Error()).Warn(msg)
	if e.notify != nil {
		e.notify.Error(fmt.Sprintf("%s: %v", msg, err))
	}
}

func (e *Engine) reproject() {
	e.mu.Lock()
	e.reprojectLocked()
	e.mu.Unlock()
}

func (e *Engine) reprojectLocked() {
	e.coord.SetColumns(Project(e.store.Snapshot(), e.filters))
}
