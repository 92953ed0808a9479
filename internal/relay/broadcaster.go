package relay

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"taskmanagerx/internal/model"
	"taskmanagerx/pkg/metrics"
)

// SubscriptionLister is the slice of the subscription repository the
// broadcaster needs.
type SubscriptionLister interface {
	ListAll(ctx context.Context) ([]model.PushSubscription, error)
}

// DeliveryResult is the per-subscription settlement of one broadcast.
type DeliveryResult struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"` // fulfilled | rejected
	Gone     bool   `json:"gone,omitempty"`
	Error    string `json:"error,omitempty"`
}

// notificationPayload is what the service worker receives.
type notificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Broadcaster fans a notification out to every stored subscription.
// Per-subscription failures never abort the batch.
type Broadcaster struct {
	subs   SubscriptionLister
	sender Sender
	logger *zap.Logger
}

func NewBroadcaster(subs SubscriptionLister, sender Sender, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{subs: subs, sender: sender, logger: logger}
}

func (b *Broadcaster) Broadcast(ctx context.Context, title, message string) ([]DeliveryResult, error) {
	payload, err := json.Marshal(notificationPayload{Title: title, Body: message})
	if err != nil {
		return nil, err
	}

	subscriptions, err := b.subs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]DeliveryResult, 0, len(subscriptions))
	for _, sub := range subscriptions {
		result := DeliveryResult{Endpoint: sub.Endpoint, Status: "fulfilled"}

		if err := b.sender.Send(ctx, sub, payload); err != nil {
			result.Status = "rejected"
			result.Error = err.Error()
			if errors.Is(err, ErrSubscriptionGone) {
				// Expired or app uninstalled. Identified but not pruned.
				result.Gone = true
				metrics.IncrementPushSend("gone")
				b.logger.Warn("Push subscription no longer valid",
					zap.Int("subscription_id", sub.ID),
					zap.String("endpoint", sub.Endpoint),
				)
			} else {
				metrics.IncrementPushSend("rejected")
				b.logger.Error("Failed to send push notification",
					zap.Int("subscription_id", sub.ID),
					zap.Error(err),
				)
			}
		} else {
			metrics.IncrementPushSend("fulfilled")
			b.logger.Debug("Push notification sent",
				zap.Int("subscription_id", sub.ID),
			)
		}

		results = append(results, result)
	}

	b.logger.Info("Broadcast settled",
		zap.String("title", title),
		zap.Int("subscriptions", len(results)),
	)
	return results, nil
}
