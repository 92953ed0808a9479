package mq

import "taskmanagerx/internal/model"

// Routing keys on the events exchange.
const (
	RoutingKeyTaskChanged         = "task.changed"
	RoutingKeyNotificationRequest = "notification.request"
)

// Change event types, matching the row-level change feed wire format.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// TaskChangedPayload is published after every successful task mutation.
// New is set for INSERT/UPDATE, Old for UPDATE/DELETE.
type TaskChangedPayload struct {
	EventType string      `json:"event_type"`
	New       *model.Task `json:"new,omitempty"`
	Old       *model.Task `json:"old,omitempty"`
}

// OwnerID returns the user the change belongs to, regardless of event type.
func (p TaskChangedPayload) OwnerID() int {
	if p.New != nil {
		return p.New.UserID
	}
	if p.Old != nil {
		return p.Old.UserID
	}
	return 0
}
