package board

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

// Mover issues the remote move call for a task.
type Mover interface {
	MoveTask(ctx context.Context, taskID, backendStatus string) (domain.Task, error)
}

// Notifier surfaces user-visible outcomes of board operations.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Drop describes the terminal event of one drag gesture. From and To carry
// the raw container annotations of the drag source and drop target; Before is
// the identity of the task the drag landed on, "" when dropped onto empty
// space.
type Drop struct {
	TaskID string
	From   string
	To     string
	Before string
}

// moveEffect is the remote call a planned drop requires.
type moveEffect struct {
	taskID string
	from   domain.Status
	to     domain.Status
}

// planDrop is the pure transition of the drag state machine: given the
// current columns and a drop event it returns the post-drop columns and the
// remote move to issue. ok is false when the gesture must end with no state
// change: unresolvable containers, a stale gesture whose task is no longer in
// the source column, or a drop back onto the task's own position.
func planDrop(cols Columns, d Drop) (Columns, moveEffect, bool) {
	if d.TaskID == "" || d.From == "" || d.To == "" {
		return nil, moveEffect{}, false
	}
	from := domain.ToCanonical(d.From)
	to := domain.ToCanonical(d.To)
	if d.Before == d.TaskID && from == to {
		// Dropped onto itself.
		return nil, moveEffect{}, false
	}

	src := cols[from]
	srcIdx := -1
	for i := range src {
		if src[i].Identity() == d.TaskID {
			srcIdx = i
			break
		}
	}
	if srcIdx < 0 {
		// The projection diverged since the gesture started.
		return nil, moveEffect{}, false
	}

	next := cols.clone()
	task := next[from][srcIdx]
	next[from] = append(next[from][:srcIdx], next[from][srcIdx+1:]...)

	dst := next[to]
	insertAt := len(dst)
	if d.Before != "" {
		for i := range dst {
			if dst[i].Identity() == d.Before {
				insertAt = i
				break
			}
		}
	}
	if from == to && insertAt == srcIdx {
		return nil, moveEffect{}, false
	}

	task.Status = to
	dst = append(dst, domain.Task{})
	copy(dst[insertAt+1:], dst[insertAt:])
	dst[insertAt] = task
	next[to] = dst

	return next, moveEffect{taskID: d.TaskID, from: from, to: to}, true
}

// Coordinator orchestrates drag gestures: it applies the optimistic column
// and store mutation synchronously, issues the remote move, and rolls back to
// the exact pre-drop snapshot when the call fails. Every move carries a
// per-task sequence number so a response to a superseded move is ignored.
type Coordinator struct {
	store  *Store
	mover  Mover
	notify Notifier
	logger *log.Logger

	mu   sync.Mutex
	cols Columns
	seq  map[string]uint64
}

// NewCoordinator creates a coordinator bound to the given store and mover.
func NewCoordinator(store *Store, mover Mover, notify Notifier, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Coordinator{
		store:  store,
		mover:  mover,
		notify: notify,
		logger: logger,
		cols:   Project(nil, Filters{}),
		seq:    make(map[string]uint64),
	}
}

// SetColumns replaces the coordinator's working projection. The engine calls
// this whenever the projector recomputes.
func (c *Coordinator) SetColumns(cols Columns) {
	c.mu.Lock()
	c.cols = cols.clone()
	c.mu.Unlock()
}

// Columns returns a copy of the coordinator's current working projection.
func (c *Coordinator) Columns() Columns {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cols.clone()
}

// Drop completes one drag gesture. The optimistic mutation of both the
// columns and the store happens before the remote call is issued; the
// pre-drop snapshot is captured first so a failed call restores exact prior
// state, not merely the status field.
func (c *Coordinator) Drop(ctx context.Context, d Drop) {
	c.mu.Lock()
	next, effect, ok := planDrop(c.cols, d)
	if !ok {
		c.mu.Unlock()
		c.logger.WithFields(log.Fields{"task": d.TaskID, "from": d.From, "to": d.To}).Debug("drop ignored")
		return
	}

	snapshot := c.cols
	c.cols = next
	c.store.ApplyLocalStatusChange(effect.taskID, effect.to)

	c.seq[effect.taskID]++
	mySeq := c.seq[effect.taskID]
	c.mu.Unlock()

	_, err := c.mover.MoveTask(ctx, effect.taskID, domain.ToBackend(effect.to))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq[effect.taskID] != mySeq {
		// A newer gesture owns this task's state; a stale success needs no
		// action and a stale failure must not roll back the newer state.
		c.logger.WithField("task", effect.taskID).Debug("superseded move response ignored")
		return
	}
	if err != nil {
		c.cols = snapshot
		c.store.ApplyLocalStatusChange(effect.taskID, effect.from)
		c.logger.WithFields(log.Fields{"task": effect.taskID, "to": effect.to, "error": err.Error()}).Warn("move failed, rolled back")
		if c.notify != nil {
			c.notify.Error(fmt.Sprintf("could not move task to %s", effect.to))
		}
		return
	}
	if c.notify != nil {
		c.notify.Success(fmt.Sprintf("task moved to %s", effect.to))
	}
}
