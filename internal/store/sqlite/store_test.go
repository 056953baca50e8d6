package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fromchat/internal/domain"
	"fromchat/internal/store/sqlite"
)

func strptr(s string) *string { return &s }

func openTestDB(t *testing.T) *sqlStore {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return &sqlStore{
		users:    sqlite.NewUserRepo(db),
		sessions: sqlite.NewSessionRepo(db),
		spaces:   sqlite.NewSpaceRepo(db),
		members:  sqlite.NewMembershipRepo(db),
		messages: sqlite.NewMessageRepo(db),
		reacts:   sqlite.NewReactionRepo(db),
	}
}

type sqlStore struct {
	users    *sqlite.UserRepo
	sessions *sqlite.SessionRepo
	spaces   *sqlite.SpaceRepo
	members  *sqlite.MembershipRepo
	messages *sqlite.MessageRepo
	reacts   *sqlite.ReactionRepo
}

func (s *sqlStore) mustUser(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, DisplayName: username, HashedPassword: "x"}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *sqlStore) mustGroup(t *testing.T, name string, ownerID int64) *domain.Space {
	t.Helper()
	sp := &domain.Space{Kind: domain.SpaceGroup, Name: name, OwnerID: ownerID, Access: domain.AccessPublic}
	require.NoError(t, s.spaces.Create(context.Background(), sp))
	return sp
}

func TestUserRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	t.Run("CreateAssignsID", func(t *testing.T) {
		u := s.mustUser(t, "alice")
		assert.NotZero(t, u.ID)

		got, err := s.users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Nil(t, got.LastSeen)
	})

	t.Run("DuplicateUsernameFails", func(t *testing.T) {
		err := s.users.Create(ctx, &domain.User{Username: "alice", DisplayName: "other", HashedPassword: "x"})
		assert.Error(t, err)
	})

	t.Run("UnknownUserIsNotFound", func(t *testing.T) {
		_, err := s.users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SearchMatchesDisplayName", func(t *testing.T) {
		u := s.mustUser(t, "bkim")
		u.DisplayName = "Bob Kimball"
		require.NoError(t, s.users.Update(ctx, u))

		found, err := s.users.Search(ctx, "kimb", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "bkim", found[0].Username)
	})

	t.Run("SearchHidesDeleted", func(t *testing.T) {
		u := s.mustUser(t, "ghost")
		u.Deleted = true
		require.NoError(t, s.users.Update(ctx, u))

		found, err := s.users.Search(ctx, "ghost", 10)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("OnlineStatusSetsLastSeen", func(t *testing.T) {
		u := s.mustUser(t, "carol")
		require.NoError(t, s.users.SetOnlineStatus(ctx, u.ID, true))

		online, err := s.users.ListOnline(ctx)
		require.NoError(t, err)
		require.Len(t, online, 1)
		assert.Equal(t, "carol", online[0].Username)
		assert.NotNil(t, online[0].LastSeen)

		require.NoError(t, s.users.SetOnlineStatus(ctx, u.ID, false))
		online, err = s.users.ListOnline(ctx)
		require.NoError(t, err)
		assert.Empty(t, online)
	})
}

func TestSessionRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	u := s.mustUser(t, "alice")

	mkSession := func(t *testing.T, sid string) *domain.DeviceSession {
		t.Helper()
		ds := &domain.DeviceSession{UserID: u.ID, SessionID: sid, DeviceName: strptr("laptop"), UserAgent: strptr("test")}
		require.NoError(t, s.sessions.Create(ctx, ds))
		return ds
	}

	t.Run("RevokeUnknownSession", func(t *testing.T) {
		assert.ErrorIs(t, s.sessions.Revoke(ctx, "no-such-session"), domain.ErrNotFound)
	})

	t.Run("RevokedAmongReportsRevokedAndMissing", func(t *testing.T) {
		mkSession(t, "s1")
		mkSession(t, "s2")
		require.NoError(t, s.sessions.Revoke(ctx, "s2"))

		revoked, err := s.sessions.RevokedAmong(ctx, []string{"s1", "s2", "never-stored"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"s2", "never-stored"}, revoked)

		revoked, err = s.sessions.RevokedAmong(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, revoked)
	})

	t.Run("RevokeAllKeepsException", func(t *testing.T) {
		mkSession(t, "s3")
		mkSession(t, "s4")
		require.NoError(t, s.sessions.RevokeAllForUser(ctx, u.ID, "s3"))

		live, err := s.sessions.ListForUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, live, 1)
		assert.Equal(t, "s3", live[0].SessionID)
	})
}

func TestSpaceRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := s.mustUser(t, "alice")

	t.Run("HandleLookup", func(t *testing.T) {
		handle := "devs"
		sp := &domain.Space{Kind: domain.SpaceGroup, Name: "Devs", Handle: &handle, OwnerID: owner.ID, Access: domain.AccessPublic}
		require.NoError(t, s.spaces.Create(ctx, sp))

		got, err := s.spaces.GetByHandle(ctx, "devs")
		require.NoError(t, err)
		assert.Equal(t, sp.ID, got.ID)
		assert.Equal(t, domain.SpaceGroup, got.Kind)
	})

	t.Run("InviteTokenLookup", func(t *testing.T) {
		token := "tok-123"
		sp := &domain.Space{Kind: domain.SpaceGroup, Name: "Secret", OwnerID: owner.ID, Access: domain.AccessPrivate, InviteToken: &token}
		require.NoError(t, s.spaces.Create(ctx, sp))

		got, err := s.spaces.GetByInviteToken(ctx, "tok-123")
		require.NoError(t, err)
		assert.Equal(t, sp.ID, got.ID)

		_, err = s.spaces.GetByInviteToken(ctx, "tok-stale")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListPublicFiltersKindAndAccess", func(t *testing.T) {
		require.NoError(t, s.spaces.Create(ctx, &domain.Space{Kind: domain.SpaceChannel, Name: "News", OwnerID: owner.ID, Access: domain.AccessPublic}))

		groups, err := s.spaces.ListPublic(ctx, domain.SpaceGroup)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "Devs", groups[0].Name)

		channels, err := s.spaces.ListPublic(ctx, domain.SpaceChannel)
		require.NoError(t, err)
		require.Len(t, channels, 1)
		assert.Equal(t, "News", channels[0].Name)
	})
}

func TestMembershipRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := s.mustUser(t, "alice")
	bob := s.mustUser(t, "bob")
	group := s.mustGroup(t, "Devs", owner.ID)

	require.NoError(t, s.members.Create(ctx, &domain.Membership{SpaceID: group.ID, UserID: owner.ID, Role: domain.RoleOwner}))
	require.NoError(t, s.members.Create(ctx, &domain.Membership{SpaceID: group.ID, UserID: bob.ID, Role: domain.RoleMember}))

	t.Run("BannedMembersAreInvisibleToFanOut", func(t *testing.T) {
		require.NoError(t, s.members.SetBan(ctx, group.ID, bob.ID, true, nil))

		ids, err := s.members.MemberIDs(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{owner.ID}, ids)

		spaceIDs, err := s.members.ListSpaceIDsForUser(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, spaceIDs)

		// The row itself survives so the ban can be inspected and lifted.
		m, err := s.members.Get(ctx, group.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, m.IsBanned)
		assert.Nil(t, m.BannedUntil)
	})

	t.Run("LiftingBanRestoresVisibility", func(t *testing.T) {
		require.NoError(t, s.members.SetBan(ctx, group.ID, bob.ID, false, nil))

		ids, err := s.members.MemberIDs(ctx, group.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{owner.ID, bob.ID}, ids)
	})

	t.Run("SetRole", func(t *testing.T) {
		require.NoError(t, s.members.SetRole(ctx, group.ID, bob.ID, domain.RoleAdmin))
		m, err := s.members.Get(ctx, group.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, m.Role)
	})

	t.Run("DeleteRemovesRow", func(t *testing.T) {
		require.NoError(t, s.members.Delete(ctx, group.ID, bob.ID))
		_, err := s.members.Get(ctx, group.ID, bob.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMessageRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := s.mustUser(t, "alice")
	group := s.mustGroup(t, "Devs", owner.ID)

	send := func(t *testing.T, content string) *domain.Message {
		t.Helper()
		m := &domain.Message{SpaceID: group.ID, AuthorID: owner.ID, Content: content}
		require.NoError(t, s.messages.Create(ctx, m))
		return m
	}

	t.Run("ListReturnsNewestWindowInChronologicalOrder", func(t *testing.T) {
		send(t, "one")
		send(t, "two")
		send(t, "three")

		out, err := s.messages.ListForSpace(ctx, group.ID, 2)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "two", out[0].Content)
		assert.Equal(t, "three", out[1].Content)
	})

	t.Run("ReplyRoundTrip", func(t *testing.T) {
		parent := send(t, "parent")
		reply := &domain.Message{SpaceID: group.ID, AuthorID: owner.ID, Content: "reply", ReplyToID: &parent.ID}
		require.NoError(t, s.messages.Create(ctx, reply))

		got, err := s.messages.GetByID(ctx, reply.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReplyToID)
		assert.Equal(t, parent.ID, *got.ReplyToID)
	})

	t.Run("DeleteCascadesFiles", func(t *testing.T) {
		m := send(t, "with attachment")
		require.NoError(t, s.messages.AddFile(ctx, &domain.MessageFile{MessageID: m.ID, Name: "a.png", Path: "/f/a.png"}))
		require.NoError(t, s.messages.Delete(ctx, m.ID))

		files, err := s.messages.ListFiles(ctx, m.ID)
		require.NoError(t, err)
		assert.Empty(t, files)
		_, err = s.messages.GetByID(ctx, m.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestReactionRepo(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := s.mustUser(t, "alice")
	group := s.mustGroup(t, "Devs", owner.ID)
	msg := &domain.Message{SpaceID: group.ID, AuthorID: owner.ID, Content: "hi"}
	require.NoError(t, s.messages.Create(ctx, msg))

	t.Run("ToggleViaGetAndDelete", func(t *testing.T) {
		re := &domain.Reaction{MessageID: msg.ID, UserID: owner.ID, Emoji: "👍"}
		require.NoError(t, s.reacts.Create(ctx, re))

		existing, err := s.reacts.Get(ctx, msg.ID, owner.ID, "👍")
		require.NoError(t, err)
		require.NoError(t, s.reacts.Delete(ctx, existing.ID))

		_, err = s.reacts.Get(ctx, msg.ID, owner.ID, "👍")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DuplicateReactionFails", func(t *testing.T) {
		re := &domain.Reaction{MessageID: msg.ID, UserID: owner.ID, Emoji: "🎉"}
		require.NoError(t, s.reacts.Create(ctx, re))
		assert.Error(t, s.reacts.Create(ctx, &domain.Reaction{MessageID: msg.ID, UserID: owner.ID, Emoji: "🎉"}))
	})
}
