// Package permissions resolves, for every mutating action, whether an actor
// may perform it against the membership/role/admin-grant/restriction model.
// Checks are owner-first, then grant, then restriction, and never return an
// error for a denied action: callers branch on the Decision.
package permissions

import (
	"context"
	"errors"
	"log"
	"time"

	"fromchat/internal/domain"
)

// Decision is the outcome of a capability check. Reason is human-readable
// and only set when the action is denied.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Checker evaluates capability queries over persisted rows. It is
// side-effect-free except for two lazy evictions: an expired ban and an
// expired restriction are cleared by the first check that observes them.
type Checker struct {
	users        domain.UserRepository
	spaces       domain.SpaceRepository
	members      domain.MembershipRepository
	subs         domain.SubscriptionRepository
	admins       domain.AdminRepository
	restrictions domain.RestrictionRepository
	messages     domain.MessageRepository

	now func() time.Time
}

func NewChecker(
	users domain.UserRepository,
	spaces domain.SpaceRepository,
	members domain.MembershipRepository,
	subs domain.SubscriptionRepository,
	admins domain.AdminRepository,
	restrictions domain.RestrictionRepository,
	messages domain.MessageRepository,
) *Checker {
	return &Checker{
		users:        users,
		spaces:       spaces,
		members:      members,
		subs:         subs,
		admins:       admins,
		restrictions: restrictions,
		messages:     messages,
		now:          time.Now,
	}
}

// isOwner is the single place the owner-always-wins rule lives; every check
// consults it first.
func (c *Checker) isOwner(space *domain.Space, userID int64) bool {
	return space.OwnerID == userID
}

// IsAdmin reports whether the user holds admin rights in the space: an
// AdminGrant row exists or the user owns the space.
func (c *Checker) IsAdmin(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	if c.isOwner(space, userID) {
		return true, nil
	}
	_, err := c.admins.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsMember reports whether the user is a non-banned member of the group.
func (c *Checker) IsMember(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	m, err := c.members.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !m.IsBanned, nil
}

// IsSubscribed reports whether the user is subscribed to the channel.
func (c *Checker) IsSubscribed(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	_, err := c.subs.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CanSend decides whether the user may post in the space.
//
// Groups: membership required; an unexpired ban denies (an expired temporary
// ban is cleared and evaluation continues); an active restriction with
// send-messages disabled denies; an admin whose grant disables send-messages
// is denied even though plain members would pass.
//
// Channels: only admins may ever send, and an explicit grant with
// send-messages disabled denies.
func (c *Checker) CanSend(ctx context.Context, space *domain.Space, userID int64) (Decision, error) {
	if c.isOwner(space, userID) {
		return allow(), nil
	}
	if space.Kind == domain.SpaceChannel {
		return c.canSendChannel(ctx, space, userID)
	}
	return c.canSendGroup(ctx, space, userID)
}

func (c *Checker) canSendGroup(ctx context.Context, space *domain.Space, userID int64) (Decision, error) {
	member, err := c.members.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return deny("not a member"), nil
	}
	if err != nil {
		return Decision{}, err
	}

	if member.IsBanned {
		switch {
		case member.BannedUntil == nil:
			return deny("permanently banned"), nil
		case member.BannedUntil.After(c.now()):
			return deny("banned until " + member.BannedUntil.Format(time.RFC3339)), nil
		default:
			// Ban expired; clear it and keep evaluating. Best-effort: a
			// failed write must not turn an allowed action into a denial.
			if err := c.members.SetBan(ctx, space.ID, userID, false, nil); err != nil {
				log.Printf("permissions: clear expired ban space=%d user=%d: %v", space.ID, userID, err)
			}
		}
	}

	restricted, err := c.restrictionDenies(ctx, space.ID, userID, func(r *domain.Restriction) bool {
		return !r.CanSendMessages
	})
	if err != nil {
		return Decision{}, err
	}
	if restricted {
		return deny("sending messages restricted"), nil
	}

	// An admin's own grant can revoke the send right plain members enjoy.
	grant, err := c.admins.Get(ctx, space.ID, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return Decision{}, err
	}
	if grant != nil && !grant.CanSendMessages {
		return deny("admin rights: cannot send messages"), nil
	}

	return allow(), nil
}

func (c *Checker) canSendChannel(ctx context.Context, space *domain.Space, userID int64) (Decision, error) {
	grant, err := c.admins.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return deny("only admins can send messages in channels"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !grant.CanSendMessages {
		return deny("admin rights: cannot send messages"), nil
	}
	return allow(), nil
}

// restrictionDenies loads the user's restriction, evicting it first if it
// has expired, and reports whether the active restriction denies per check.
func (c *Checker) restrictionDenies(ctx context.Context, spaceID, userID int64, denies func(*domain.Restriction) bool) (bool, error) {
	r, err := c.restrictions.Get(ctx, spaceID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(c.now()) {
		// Expired: evict and treat the member as unrestricted. Deletion is
		// idempotent, so two concurrent checks racing here are both fine.
		if err := c.restrictions.Delete(ctx, spaceID, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Printf("permissions: evict expired restriction space=%d user=%d: %v", spaceID, userID, err)
		}
		return false, nil
	}
	return denies(r), nil
}

// CanDelete decides whether the user may delete the given message. The
// author always may; otherwise admin rights are required and a non-owner
// admin needs the delete-messages flag on their grant.
func (c *Checker) CanDelete(ctx context.Context, space *domain.Space, messageID, userID int64) (Decision, error) {
	msg, err := c.messages.GetByID(ctx, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return deny("message not found"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if msg.SpaceID != space.ID {
		return deny("message does not belong to this space"), nil
	}
	if msg.AuthorID == userID {
		return allow(), nil
	}
	if c.isOwner(space, userID) {
		return allow(), nil
	}

	grant, err := c.admins.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return deny("not authorized to delete this message"), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !grant.CanDeleteMessages {
		return deny("admin rights: cannot delete messages"), nil
	}
	return allow(), nil
}

// CanModifyProfile reports whether the user may edit the space's profile.
func (c *Checker) CanModifyProfile(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	return c.adminFlag(ctx, space, userID, func(g *domain.AdminGrant) bool { return g.CanModifyProfile })
}

// CanAssignAdmins reports whether the user may grant or update admin rights.
// A grantor is not required to hold the capabilities they hand out; that
// matches the original behavior and is deliberate.
func (c *Checker) CanAssignAdmins(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	return c.adminFlag(ctx, space, userID, func(g *domain.AdminGrant) bool { return g.CanAssignAdmins })
}

func (c *Checker) adminFlag(ctx context.Context, space *domain.Space, userID int64, flag func(*domain.AdminGrant) bool) (bool, error) {
	if c.isOwner(space, userID) {
		return true, nil
	}
	grant, err := c.admins.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return flag(grant), nil
}

// CanReact decides whether the user may toggle reactions in the space.
// Groups: any member in good standing unless an active restriction disables
// reacting. Channels: any subscriber.
func (c *Checker) CanReact(ctx context.Context, space *domain.Space, userID int64) (bool, error) {
	if c.isOwner(space, userID) {
		return true, nil
	}
	if space.Kind == domain.SpaceChannel {
		return c.IsSubscribed(ctx, space, userID)
	}

	member, err := c.members.Get(ctx, space.ID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if member.IsBanned {
		return false, nil
	}

	denied, err := c.restrictionDenies(ctx, space.ID, userID, func(r *domain.Restriction) bool {
		return !r.CanReact
	})
	if err != nil {
		return false, err
	}
	return !denied, nil
}

// HandleExclusion names the one entity allowed to already own the handle
// (used when an entity keeps or changes its own handle).
type HandleExclusion struct {
	UserID  int64
	SpaceID int64
}

// HandleOwner reports which entity class already owns the handle: "user",
// "group", "channel", or "" when the handle is free. Handles live in a
// single namespace shared by users, groups, and channels.
func (c *Checker) HandleOwner(ctx context.Context, handle string, excl HandleExclusion) (string, error) {
	u, err := c.users.GetByUsername(ctx, handle)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if u != nil && u.ID != excl.UserID {
		return "user", nil
	}

	s, err := c.spaces.GetByHandle(ctx, handle)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if s != nil && s.ID != excl.SpaceID {
		return string(s.Kind), nil
	}
	return "", nil
}
