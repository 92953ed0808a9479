package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/relay"
)

// NotificationRequestHandler serves broadcast requests from other services,
// currently the due-task reminder worker.
type NotificationRequestHandler struct {
	broadcaster relay.NotificationBroadcaster
	logger      *zap.Logger
}

func NewNotificationRequestHandler(broadcaster relay.NotificationBroadcaster, logger *zap.Logger) *NotificationRequestHandler {
	return &NotificationRequestHandler{broadcaster: broadcaster, logger: logger}
}

func (h *NotificationRequestHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload mqcontracts.NotificationRequestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Failed to decode notification.request payload", zap.Error(err))
		return nil
	}
	if payload.Title == "" {
		h.logger.Warn("Dropping notification.request without a title")
		return nil
	}

	if _, err := h.broadcaster.Broadcast(ctx, payload.Title, payload.Message); err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}
	return nil
}
