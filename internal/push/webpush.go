// Package push delivers out-of-band notifications to a user's registered
// web-push endpoint. The wire protocol lives behind the Sender interface;
// the rest of the system only distinguishes "delivered", "failed", and
// "endpoint permanently gone".
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"fromchat/internal/domain"
)

// ErrEndpointGone means the push endpoint no longer exists; the stored
// subscription should be deleted so it is never retried.
var ErrEndpointGone = errors.New("push endpoint gone")

// Notification is the short payload shown by the client.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sender attempts delivery to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *domain.PushSubscription, n Notification) error
}

// WebPushSender sends VAPID-signed web-push messages.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string // mailto: contact required by push services
}

func NewWebPushSender(publicKey, privateKey, subscriber string) *WebPushSender {
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub *domain.PushSubscription, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
