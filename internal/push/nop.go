package push

import (
	"context"

	"fromchat/internal/domain"
)

// NopSender drops notifications. Used when VAPID keys are not configured.
type NopSender struct{}

var _ Sender = NopSender{}

func (NopSender) Send(ctx context.Context, sub *domain.PushSubscription, n Notification) error {
	return nil
}
