package board

import (
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

// Reconciler applies out-of-band realtime events to the task store. Delivery
// is at-least-once and unordered, so every handler is idempotent and keyed on
// task identity. Events whose project reference does not match the store's
// active project are discarded; the transport is not scoped server-side.
type Reconciler struct {
	store  *Store
	logger *log.Logger
}

// NewReconciler creates a reconciler feeding the given store.
func NewReconciler(store *Store, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{store: store, logger: logger}
}

// Apply dispatches a single realtime event onto the store.
func (r *Reconciler) Apply(ev domain.Event) {
	if ev.EntityType != "" && ev.EntityType != "task" {
		r.logger.WithField("entityType", ev.EntityType).Debug("ignoring non-task event")
		return
	}
	switch ev.Type {
	case domain.TaskCreated, domain.TaskUpdated:
		var task domain.Task
		if err := sonic.Unmarshal(ev.Data, &task); err != nil {
			r.logger.WithFields(log.Fields{"type": ev.Type, "error": err.Error()}).Error("unable to parse task event")
			return
		}
		if task.ID == "" && task.LegacyID == "" {
			task.ID = ev.EntityID
		}
		if !r.inScope(task) {
			return
		}
		r.store.UpsertFromRealtime(task)
	case domain.TaskDeleted:
		var task domain.Task
		if len(ev.Data) > 0 {
			if err := sonic.Unmarshal(ev.Data, &task); err != nil {
				r.logger.WithFields(log.Fields{"type": ev.Type, "error": err.Error()}).Error("unable to parse task event")
				return
			}
		}
		if task.ID == "" && task.LegacyID == "" {
			task.ID = ev.EntityID
		}
		if !r.inScope(task) {
			return
		}
		r.store.RemoveByIdentity(task.Identity())
	default:
		r.logger.WithField("type", ev.Type).Warn("unknown task event type, ignoring")
	}
}

// inScope checks the event payload against the active project. Payloads
// without a project reference are accepted; deletes in particular may carry
// only the entity identifier.
func (r *Reconciler) inScope(task domain.Task) bool {
	project := task.Project.Identity()
	if project != "" && project != r.store.ProjectID() {
		r.logger.WithFields(log.Fields{"project": project, "active": r.store.ProjectID()}).Debug("discarding event for inactive project")
		return false
	}
	return true
}
