package domain

import "github.com/bytedance/sonic"

// Realtime event types delivered over the backend's stream channel.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// Event is the envelope delivered on the realtime channel. Data carries the
// task payload for created/updated events; deleted events may carry only the
// entity identifier and project reference.
type Event struct {
	EntityID   string                 `json:"entityId,omitempty"`
	EntityType string                 `json:"entityType"`
	Type       string                 `json:"type"`
	Data       sonic.NoCopyRawMessage `json:"data,omitempty"`
}
