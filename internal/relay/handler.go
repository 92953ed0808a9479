package relay

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
)

// SubscriptionStore is the slice of the subscription repository the handler
// needs.
type SubscriptionStore interface {
	ExistsByEndpoint(ctx context.Context, endpoint string) (bool, error)
	Insert(ctx context.Context, sub *model.PushSubscription) error
}

// NotificationBroadcaster fans one notification out and reports settlement.
type NotificationBroadcaster interface {
	Broadcast(ctx context.Context, title, message string) ([]DeliveryResult, error)
}

type Handler struct {
	store       SubscriptionStore
	broadcaster NotificationBroadcaster
	logger      *zap.Logger
}

func NewHandler(store SubscriptionStore, broadcaster NotificationBroadcaster, logger *zap.Logger) *Handler {
	return &Handler{store: store, broadcaster: broadcaster, logger: logger}
}

type saveSubscriptionRequest struct {
	Endpoint       string `json:"endpoint"`
	ExpirationTime *int64 `json:"expirationTime"`
	Keys           struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SaveSubscription registers a browser push subscription. Idempotent on
// endpoint: 200 on duplicate, 201 on insert.
func (h *Handler) SaveSubscription(c *gin.Context) {
	var req saveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Endpoint == "" || req.Keys.P256DH == "" || req.Keys.Auth == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint and keys are required"})
		return
	}

	exists, err := h.store.ExistsByEndpoint(c.Request.Context(), req.Endpoint)
	if err != nil {
		h.logger.Error("SaveSubscription: endpoint check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error while checking subscription"})
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription already exists"})
		return
	}

	sub := &model.PushSubscription{
		Endpoint:       req.Endpoint,
		ExpirationTime: req.ExpirationTime,
		KeysP256DH:     req.Keys.P256DH,
		KeysAuth:       req.Keys.Auth,
	}
	if err := h.store.Insert(c.Request.Context(), sub); err != nil {
		h.logger.Error("SaveSubscription: insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscription saved", "id": sub.ID})
}

type sendNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SendNotification fans the message out to all stored subscriptions and
// returns the per-subscription settlement.
func (h *Handler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	results, err := h.broadcaster.Broadcast(c.Request.Context(), req.Title, req.Message)
	if err != nil {
		h.logger.Error("SendNotification: broadcast failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent", "results": results})
}
