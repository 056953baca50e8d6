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

func TestUserSearch(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	users := &memUsers{db: db}
	svc := service.NewUserService(users)

	require.NoError(t, users.Create(ctx, &domain.User{Username: "alice", DisplayName: "Alice Kim"}))
	require.NoError(t, users.Create(ctx, &domain.User{Username: "bob", DisplayName: "Bob"}))
	deleted := &domain.User{Username: "deleted_3", DisplayName: "Deleted User #3", Deleted: true}
	require.NoError(t, users.Create(ctx, deleted))

	t.Run("MatchesUsernameAndDisplayName", func(t *testing.T) {
		found, err := svc.Search(ctx, "kim")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "alice", found[0].Username)
	})

	t.Run("EmptyQueryReturnsNothing", func(t *testing.T) {
		found, err := svc.Search(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("DeletedUsersAreHidden", func(t *testing.T) {
		found, err := svc.Search(ctx, "deleted")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*service.UserService, *memUsers, *domain.User) {
		db := newMemDB()
		users := &memUsers{db: db}
		u := &domain.User{Username: "alice", DisplayName: "Alice"}
		require.NoError(t, users.Create(ctx, u))
		return service.NewUserService(users), users, u
	}

	t.Run("PartialUpdate", func(t *testing.T) {
		svc, users, u := setup(t)
		bio := "  gopher  "
		require.NoError(t, svc.UpdateProfile(ctx, u, service.UpdateProfileInput{Bio: &bio}))

		stored, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Bio)
		assert.Equal(t, "gopher", *stored.Bio)
		assert.Equal(t, "Alice", stored.DisplayName, "untouched fields stay put")
	})

	t.Run("EmptyStringClearsBio", func(t *testing.T) {
		svc, users, u := setup(t)
		bio := "gopher"
		require.NoError(t, svc.UpdateProfile(ctx, u, service.UpdateProfileInput{Bio: &bio}))

		empty := ""
		require.NoError(t, svc.UpdateProfile(ctx, u, service.UpdateProfileInput{Bio: &empty}))

		stored, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Bio)
	})

	t.Run("BioTooLong", func(t *testing.T) {
		svc, _, u := setup(t)
		bio := strings.Repeat("x", 501)
		err := svc.UpdateProfile(ctx, u, service.UpdateProfileInput{Bio: &bio})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("BlankDisplayName", func(t *testing.T) {
		svc, _, u := setup(t)
		name := "   "
		err := svc.UpdateProfile(ctx, u, service.UpdateProfileInput{DisplayName: &name})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
