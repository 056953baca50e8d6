package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fromchat/internal/domain"
	"fromchat/internal/service"
)

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		alice := f.seedUser(t, "alice")
		bob := f.seedUser(t, "bob")
		group := f.seedGroup(t, owner, "Devs")
		f.addMember(t, group, alice)
		f.addMember(t, group, bob)

		view, err := f.msgSvc.Send(ctx, alice, group.ID, service.SendMessageInput{Content: "hello there"})
		require.NoError(t, err)
		assert.Equal(t, "hello there", view.Content)
		assert.Equal(t, "alice", view.Author.Username)
		assert.False(t, view.IsEdited)

		ev := f.router.find("groupNew")
		require.NotNil(t, ev)
		assert.Equal(t, "space", ev.scope)
		assert.Equal(t, group.ID, ev.spaceID)

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.ElementsMatch(t, []int64{owner.ID, bob.ID}, notes[0].userIDs, "the author is not notified")
		assert.Equal(t, "Devs", notes[0].notification.Title)
		assert.Equal(t, "alice: hello there", notes[0].notification.Body)
	})

	t.Run("BannedWordsAreMasked", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")

		view, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "well darn it"})
		require.NoError(t, err)
		assert.Equal(t, "well **** it", view.Content)
	})

	t.Run("EmptyMessage", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")

		_, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("EmptyContentWithFilesIsFine", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")

		view, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{
			Files: []service.FileInput{{Name: "pic.png", Path: "uploads/pic.png"}},
		})
		require.NoError(t, err)
		require.Len(t, view.Files, 1)
		assert.Equal(t, "pic.png", view.Files[0].Name)
	})

	t.Run("TooLong", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")

		_, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{
			Content: strings.Repeat("x", 4097),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{
			Content: strings.Repeat("x", 4096),
		})
		assert.NoError(t, err)
	})

	t.Run("NonMemberForbidden", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		outsider := f.seedUser(t, "outsider")
		group := f.seedGroup(t, owner, "Devs")

		_, err := f.msgSvc.Send(ctx, outsider, group.ID, service.SendMessageInput{Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ChannelSubscriberCannotPost", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		reader := f.seedUser(t, "reader")
		channel := f.seedChannel(t, owner, "News")
		f.addSubscriber(t, channel, reader)

		_, err := f.msgSvc.Send(ctx, reader, channel.ID, service.SendMessageInput{Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)

		// The owner posts fine and the fan-out is channel-flavored.
		_, err = f.msgSvc.Send(ctx, owner, channel.ID, service.SendMessageInput{Content: "breaking"})
		require.NoError(t, err)
		assert.NotNil(t, f.router.find("channelNew"))
	})

	t.Run("ReplyFromAnotherSpace", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		groupA := f.seedGroup(t, owner, "A")
		groupB := f.seedGroup(t, owner, "B")

		parent, err := f.msgSvc.Send(ctx, owner, groupA.ID, service.SendMessageInput{Content: "root"})
		require.NoError(t, err)

		_, err = f.msgSvc.Send(ctx, owner, groupB.ID, service.SendMessageInput{
			Content:   "cross reply",
			ReplyToID: &parent.ID,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ReplyPreviewIsOneHop", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")

		root, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "root"})
		require.NoError(t, err)
		mid, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "mid", ReplyToID: &root.ID})
		require.NoError(t, err)
		leaf, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "leaf", ReplyToID: &mid.ID})
		require.NoError(t, err)

		require.NotNil(t, leaf.ReplyTo)
		assert.Equal(t, mid.ID, leaf.ReplyTo.ID)
		assert.Equal(t, "mid", leaf.ReplyTo.Content)
	})

	t.Run("LongPushBodyIsTruncated", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		bob := f.seedUser(t, "bob")
		group := f.seedGroup(t, owner, "Devs")
		f.addMember(t, group, bob)

		_, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{
			Content: strings.Repeat("a", 300),
		})
		require.NoError(t, err)

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		body := []rune(notes[0].notification.Body)
		assert.Len(t, body, 121)
		assert.Equal(t, '…', body[120])
	})
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("NewestLastWithLimit", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")
		for _, content := range []string{"one", "two", "three"} {
			_, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: content})
			require.NoError(t, err)
		}

		views, err := f.msgSvc.List(ctx, owner, group.ID, 2)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "two", views[0].Content)
		assert.Equal(t, "three", views[1].Content)
	})

	t.Run("OutsiderForbidden", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		outsider := f.seedUser(t, "outsider")
		group := f.seedGroup(t, owner, "Devs")

		_, err := f.msgSvc.List(ctx, outsider, group.ID, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestEditMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.seedUser(t, "founder")
	alice := f.seedUser(t, "alice")
	group := f.seedGroup(t, owner, "Devs")
	f.addMember(t, group, alice)

	msg, err := f.msgSvc.Send(ctx, alice, group.ID, service.SendMessageInput{Content: "draft"})
	require.NoError(t, err)

	t.Run("OnlyTheAuthor", func(t *testing.T) {
		_, err := f.msgSvc.Edit(ctx, owner, msg.ID, "hijacked")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Success", func(t *testing.T) {
		view, err := f.msgSvc.Edit(ctx, alice, msg.ID, "final darn version")
		require.NoError(t, err)
		assert.True(t, view.IsEdited)
		assert.Equal(t, "final **** version", view.Content, "the filter applies to edits too")
		assert.NotNil(t, f.router.find("groupMessageEdited"))
	})
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.seedUser(t, "founder")
	alice := f.seedUser(t, "alice")
	mod := f.seedUser(t, "mod")
	group := f.seedGroup(t, owner, "Devs")
	f.addMember(t, group, alice)
	f.addMember(t, group, mod)

	msg, err := f.msgSvc.Send(ctx, alice, group.ID, service.SendMessageInput{Content: "oops"})
	require.NoError(t, err)

	t.Run("AdminWithoutDeleteRight", func(t *testing.T) {
		require.NoError(t, f.admins.Upsert(ctx, &domain.AdminGrant{
			SpaceID: group.ID, UserID: mod.ID, CanSendMessages: true,
		}))
		err := f.msgSvc.Delete(ctx, mod, group.ID, msg.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("AdminWithDeleteRight", func(t *testing.T) {
		require.NoError(t, f.admins.Upsert(ctx, &domain.AdminGrant{
			SpaceID: group.ID, UserID: mod.ID, CanSendMessages: true, CanDeleteMessages: true,
		}))
		require.NoError(t, f.msgSvc.Delete(ctx, mod, group.ID, msg.ID))

		_, err := f.messages.GetByID(ctx, msg.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		ev := f.router.find("groupMessageDeleted")
		require.NotNil(t, ev)
		data := ev.event.Data.(map[string]any)
		assert.Equal(t, msg.ID, data["message_id"])
		assert.Equal(t, group.ID, data["group_id"])
	})
}

func TestToggleReaction(t *testing.T) {
	ctx := context.Background()

	t.Run("OnThenOff", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		group := f.seedGroup(t, owner, "Devs")
		msg, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "hi"})
		require.NoError(t, err)

		views, err := f.msgSvc.ToggleReaction(ctx, owner, group.ID, msg.ID, "👍")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "👍", views[0].Emoji)
		assert.Equal(t, 1, views[0].Count)
		assert.Equal(t, []string{"founder"}, views[0].Users, "group reactions name the users")

		views, err = f.msgSvc.ToggleReaction(ctx, owner, group.ID, msg.ID, "👍")
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("ChannelReactionsAreAnonymous", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		reader := f.seedUser(t, "reader")
		channel := f.seedChannel(t, owner, "News")
		f.addSubscriber(t, channel, reader)

		msg, err := f.msgSvc.Send(ctx, owner, channel.ID, service.SendMessageInput{Content: "breaking"})
		require.NoError(t, err)

		views, err := f.msgSvc.ToggleReaction(ctx, reader, channel.ID, msg.ID, "🔥")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, 1, views[0].Count)
		assert.Empty(t, views[0].Users)
	})

	t.Run("RestrictedMemberCannotReact", func(t *testing.T) {
		f := newFixture(t)
		owner := f.seedUser(t, "founder")
		alice := f.seedUser(t, "alice")
		group := f.seedGroup(t, owner, "Devs")
		f.addMember(t, group, alice)
		require.NoError(t, f.restrs.Upsert(ctx, &domain.Restriction{
			SpaceID: group.ID, UserID: alice.ID, CanSendMessages: true, CanReact: false,
		}))

		msg, err := f.msgSvc.Send(ctx, owner, group.ID, service.SendMessageInput{Content: "hi"})
		require.NoError(t, err)

		_, err = f.msgSvc.ToggleReaction(ctx, alice, group.ID, msg.ID, "👍")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
