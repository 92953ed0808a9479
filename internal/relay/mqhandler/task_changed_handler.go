package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/relay"
)

// TaskChangedHandler turns task change events into push notifications.
type TaskChangedHandler struct {
	broadcaster relay.NotificationBroadcaster
	logger      *zap.Logger
}

func NewTaskChangedHandler(broadcaster relay.NotificationBroadcaster, logger *zap.Logger) *TaskChangedHandler {
	return &TaskChangedHandler{broadcaster: broadcaster, logger: logger}
}

func (h *TaskChangedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload mqcontracts.TaskChangedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Failed to decode task.changed payload", zap.Error(err))
		// Malformed payloads are not retryable.
		return nil
	}

	title, message := NotificationText(payload)

	results, err := h.broadcaster.Broadcast(ctx, title, message)
	if err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}

	h.logger.Info("Task change notification dispatched",
		zap.String("event_type", payload.EventType),
		zap.Int("user_id", payload.OwnerID()),
		zap.Int("subscriptions", len(results)),
	)
	return nil
}

// NotificationText maps a change event to the notification title and message.
func NotificationText(payload mqcontracts.TaskChangedPayload) (string, string) {
	task := payload.New
	if task == nil {
		task = payload.Old
	}
	taskTitle := ""
	if task != nil {
		taskTitle = task.Title
	}

	switch payload.EventType {
	case mqcontracts.EventInsert:
		return "New Task Added", fmt.Sprintf("Task: %s has been added!", taskTitle)
	case mqcontracts.EventUpdate:
		return "Task Updated", fmt.Sprintf("Task: %s was updated!", taskTitle)
	case mqcontracts.EventDelete:
		return "Task Deleted", fmt.Sprintf("Task: %s was deleted!", taskTitle)
	}
	return "Task Event", fmt.Sprintf("Task: %s had an unknown event!", taskTitle)
}
