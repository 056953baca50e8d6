package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fromchat/internal/contentfilter"
	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/security"
	"fromchat/internal/service"
)

// fixture wires every service over the in-memory repositories with recording
// fakes on the fan-out, push, and registry edges.
type fixture struct {
	db *memDB

	users    *memUsers
	spaces   *memSpaces
	members  *memMembers
	subs     *memSubs
	admins   *memAdmins
	restrs   *memRestrs
	messages *memMessages

	router   *fanoutRecorder
	notifier *notifyRecorder
	registry *registryRecorder
	hasher   *security.PasswordHasher

	auth     *service.AuthService
	spaceSvc *service.SpaceService
	msgSvc   *service.MessageService
	dmSvc    *service.DMService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	f := &fixture{
		db:       db,
		users:    &memUsers{db: db},
		spaces:   &memSpaces{db: db},
		members:  &memMembers{db: db},
		subs:     &memSubs{db: db},
		admins:   &memAdmins{db: db},
		restrs:   &memRestrs{db: db},
		messages: &memMessages{db: db},
		router:   &fanoutRecorder{},
		notifier: &notifyRecorder{},
		registry: &registryRecorder{},
		hasher:   security.NewPasswordHasher(4), // low cost for tests
	}

	reactions := &memReactions{db: db}
	sessions := &memSessions{db: db}
	pushSubs := &memPush{db: db}
	dms := &memDMs{db: db}

	checker := permissions.NewChecker(f.users, f.spaces, f.members, f.subs, f.admins, f.restrs, f.messages)
	tokens := security.NewTokenService("test-secret", time.Hour)

	f.auth = service.NewAuthService(
		f.users, sessions, f.members, f.subs, f.admins, f.restrs, pushSubs, f.spaces,
		checker, tokens, f.hasher, f.registry, "admin", 30*24*time.Hour,
	)
	f.spaceSvc = service.NewSpaceService(f.spaces, f.members, f.subs, f.admins, f.restrs, f.users, checker, f.router)
	f.msgSvc = service.NewMessageService(
		f.spaces, f.messages, reactions, f.users, f.members, f.subs,
		checker, contentfilter.NewWordList([]string{"darn"}), f.router, f.notifier,
	)
	f.dmSvc = service.NewDMService(dms, f.users, f.router, f.notifier)
	return f
}

func (f *fixture) seedUser(t *testing.T, username string) *domain.User {
	t.Helper()
	hashed, err := f.hasher.Hash("secret-pw")
	require.NoError(t, err)
	u := &domain.User{
		Username:       username,
		DisplayName:    username,
		HashedPassword: hashed,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedGroup(t *testing.T, owner *domain.User, name string) *domain.Space {
	t.Helper()
	sp := &domain.Space{
		Kind:    domain.SpaceGroup,
		Name:    name,
		OwnerID: owner.ID,
		Access:  domain.AccessPublic,
	}
	require.NoError(t, f.spaces.Create(context.Background(), sp))
	require.NoError(t, f.members.Create(context.Background(), &domain.Membership{
		SpaceID: sp.ID, UserID: owner.ID, Role: domain.RoleOwner,
	}))
	return sp
}

func (f *fixture) seedChannel(t *testing.T, owner *domain.User, name string) *domain.Space {
	t.Helper()
	sp := &domain.Space{
		Kind:    domain.SpaceChannel,
		Name:    name,
		OwnerID: owner.ID,
		Access:  domain.AccessPublic,
	}
	require.NoError(t, f.spaces.Create(context.Background(), sp))
	require.NoError(t, f.subs.Create(context.Background(), &domain.Subscription{
		SpaceID: sp.ID, UserID: owner.ID,
	}))
	return sp
}

func (f *fixture) addMember(t *testing.T, sp *domain.Space, u *domain.User) {
	t.Helper()
	require.NoError(t, f.members.Create(context.Background(), &domain.Membership{
		SpaceID: sp.ID, UserID: u.ID, Role: domain.RoleMember,
	}))
}

func (f *fixture) addSubscriber(t *testing.T, sp *domain.Space, u *domain.User) {
	t.Helper()
	require.NoError(t, f.subs.Create(context.Background(), &domain.Subscription{
		SpaceID: sp.ID, UserID: u.ID,
	}))
}
