package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"taskmanagerx/internal/model"
	"taskmanagerx/pkg/config"
)

// ErrSubscriptionGone marks an endpoint the push service reports as expired
// or unregistered. The subscription stays stored; it is only unusable.
var ErrSubscriptionGone = errors.New("push subscription no longer valid")

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
}

// WebPushSender delivers via the Web Push protocol with VAPID auth.
type WebPushSender struct {
	options webpush.Options
}

func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	return &WebPushSender{
		options: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		},
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.KeysP256DH,
			Auth:   sub.KeysAuth,
		},
	}

	opts := s.options
	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("endpoint returned %d: %w", resp.StatusCode, ErrSubscriptionGone)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
