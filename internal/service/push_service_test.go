package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fromchat/internal/domain"
	"fromchat/internal/push"
	"fromchat/internal/service"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []push.Notification
	err  error
}

func (f *fakeSender) Send(ctx context.Context, sub *domain.PushSubscription, n push.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestPushSubscribe(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	svc := service.NewPushService(&memPush{db: db}, &fakeSender{})

	t.Run("MissingKeys", func(t *testing.T) {
		err := svc.Subscribe(ctx, 1, "https://push.example/ep", "", "auth")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UpsertReplacesEarlierSubscription", func(t *testing.T) {
		require.NoError(t, svc.Subscribe(ctx, 1, "https://push.example/old", "p256dh", "auth"))
		require.NoError(t, svc.Subscribe(ctx, 1, "https://push.example/new", "p256dh", "auth"))

		sub, err := (&memPush{db: db}).GetByUser(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "https://push.example/new", sub.Endpoint)
	})
}

func TestNotifyUser(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSubscriptionIsSilent", func(t *testing.T) {
		sender := &fakeSender{}
		svc := service.NewPushService(&memPush{db: newMemDB()}, sender)

		svc.NotifyUser(ctx, 42, push.Notification{Title: "hi"})
		assert.Empty(t, sender.sent)
	})

	t.Run("Delivers", func(t *testing.T) {
		db := newMemDB()
		sender := &fakeSender{}
		svc := service.NewPushService(&memPush{db: db}, sender)
		require.NoError(t, svc.Subscribe(ctx, 1, "https://push.example/ep", "p256dh", "auth"))

		svc.NotifyUser(ctx, 1, push.Notification{Title: "hi"})
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "hi", sender.sent[0].Title)
	})

	t.Run("GoneEndpointDropsSubscription", func(t *testing.T) {
		db := newMemDB()
		sender := &fakeSender{err: push.ErrEndpointGone}
		svc := service.NewPushService(&memPush{db: db}, sender)
		require.NoError(t, svc.Subscribe(ctx, 1, "https://push.example/ep", "p256dh", "auth"))

		svc.NotifyUser(ctx, 1, push.Notification{Title: "hi"})

		_, err := (&memPush{db: db}).GetByUser(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("TransientFailureKeepsSubscription", func(t *testing.T) {
		db := newMemDB()
		sender := &fakeSender{err: errors.New("503 from the push service")}
		svc := service.NewPushService(&memPush{db: db}, sender)
		require.NoError(t, svc.Subscribe(ctx, 1, "https://push.example/ep", "p256dh", "auth"))

		svc.NotifyUser(ctx, 1, push.Notification{Title: "hi"})

		_, err := (&memPush{db: db}).GetByUser(ctx, 1)
		assert.NoError(t, err)
	})
}
