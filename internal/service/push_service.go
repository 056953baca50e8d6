package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fromchat/internal/domain"
	"fromchat/internal/push"
)

// PushService stores per-user web-push subscriptions and delivers
// best-effort notifications. Delivery failures never propagate to the
// mutation that triggered them; a permanently gone endpoint self-heals by
// deleting the stored subscription.
type PushService struct {
	subs   domain.PushRepository
	sender push.Sender
}

func NewPushService(subs domain.PushRepository, sender push.Sender) *PushService {
	return &PushService{subs: subs, sender: sender}
}

func (s *PushService) Subscribe(ctx context.Context, userID int64, endpoint, p256dh, auth string) error {
	if endpoint == "" || p256dh == "" || auth == "" {
		return fmt.Errorf("%w: endpoint and keys are required", domain.ErrInvalidInput)
	}
	return s.subs.Upsert(ctx, &domain.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
}

func (s *PushService) Unsubscribe(ctx context.Context, userID int64) error {
	return s.subs.DeleteByUser(ctx, userID)
}

// NotifyUser attempts delivery to one user. Users without a subscription
// are skipped silently.
func (s *PushService) NotifyUser(ctx context.Context, userID int64, n push.Notification) {
	sub, err := s.subs.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("push: load subscription for user %d: %v", userID, err)
		return
	}
	if err := s.sender.Send(ctx, sub, n); err != nil {
		if errors.Is(err, push.ErrEndpointGone) {
			if err := s.subs.DeleteByUser(ctx, userID); err != nil {
				log.Printf("push: drop dead subscription for user %d: %v", userID, err)
			}
			return
		}
		log.Printf("push: notify user %d: %v", userID, err)
	}
}

// NotifyUsers fans a notification out to each listed user.
func (s *PushService) NotifyUsers(ctx context.Context, userIDs []int64, n push.Notification) {
	for _, id := range userIDs {
		s.NotifyUser(ctx, id, n)
	}
}
