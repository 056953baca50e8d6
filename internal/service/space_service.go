package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/ws"
)

// Broadcaster is the slice of the fan-out router the services use.
type Broadcaster interface {
	Everyone(event ws.Event)
	User(userID int64, event ws.Event)
	Users(userIDs []int64, event ws.Event)
	Space(ctx context.Context, space *domain.Space, event ws.Event) error
	SpaceExcept(ctx context.Context, space *domain.Space, exceptUserID int64, event ws.Event) error
}

const inviteAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newInviteToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("invite token: %w", err)
	}
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b), nil
}

// SpaceService manages groups and channels: lifecycle, membership,
// moderation, and delegated admin grants.
type SpaceService struct {
	spaces  domain.SpaceRepository
	members domain.MembershipRepository
	subs    domain.SubscriptionRepository
	admins  domain.AdminRepository
	restrs  domain.RestrictionRepository
	users   domain.UserRepository
	checker *permissions.Checker
	router  Broadcaster
}

func NewSpaceService(
	spaces domain.SpaceRepository,
	members domain.MembershipRepository,
	subs domain.SubscriptionRepository,
	admins domain.AdminRepository,
	restrs domain.RestrictionRepository,
	users domain.UserRepository,
	checker *permissions.Checker,
	router Broadcaster,
) *SpaceService {
	return &SpaceService{
		spaces:  spaces,
		members: members,
		subs:    subs,
		admins:  admins,
		restrs:  restrs,
		users:   users,
		checker: checker,
		router:  router,
	}
}

type CreateSpaceInput struct {
	Kind        domain.SpaceKind
	Name        string
	Handle      *string
	Access      domain.AccessType
	Description *string
}

func (s *SpaceService) Create(ctx context.Context, owner *domain.User, in CreateSpaceInput) (*domain.Space, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > 64 {
		return nil, fmt.Errorf("%w: name must be 1-64 characters", domain.ErrInvalidInput)
	}
	if in.Kind != domain.SpaceGroup && in.Kind != domain.SpaceChannel {
		return nil, fmt.Errorf("%w: unknown space kind %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.Access != domain.AccessPublic && in.Access != domain.AccessPrivate {
		return nil, fmt.Errorf("%w: unknown access type %q", domain.ErrInvalidInput, in.Access)
	}

	space := &domain.Space{
		Kind:        in.Kind,
		Name:        name,
		OwnerID:     owner.ID,
		Access:      in.Access,
		Description: in.Description,
	}

	if in.Access == domain.AccessPublic {
		if in.Handle == nil {
			return nil, fmt.Errorf("%w: public %ss need a handle", domain.ErrInvalidInput, in.Kind)
		}
		handle := strings.TrimSpace(*in.Handle)
		if !usernameRe.MatchString(handle) {
			return nil, fmt.Errorf("%w: handle must be 3-20 characters of letters, digits, hyphens, underscores", domain.ErrInvalidInput)
		}
		holder, err := s.checker.HandleOwner(ctx, handle, permissions.HandleExclusion{})
		if err != nil {
			return nil, fmt.Errorf("check handle: %w", err)
		}
		if holder != "" {
			return nil, fmt.Errorf("%w: handle already taken by a %s", domain.ErrConflict, holder)
		}
		space.Handle = &handle
	} else {
		token, err := newInviteToken()
		if err != nil {
			return nil, err
		}
		space.InviteToken = &token
	}

	if err := s.spaces.Create(ctx, space); err != nil {
		return nil, err
	}

	switch space.Kind {
	case domain.SpaceGroup:
		err := s.members.Create(ctx, &domain.Membership{
			SpaceID: space.ID,
			UserID:  owner.ID,
			Role:    domain.RoleOwner,
		})
		if err != nil {
			return nil, fmt.Errorf("create owner membership: %w", err)
		}
	case domain.SpaceChannel:
		err := s.subs.Create(ctx, &domain.Subscription{
			SpaceID: space.ID,
			UserID:  owner.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("create owner subscription: %w", err)
		}
	}
	return space, nil
}

func (s *SpaceService) Get(ctx context.Context, id int64) (*domain.Space, error) {
	return s.spaces.GetByID(ctx, id)
}

func (s *SpaceService) GetByHandle(ctx context.Context, handle string) (*domain.Space, error) {
	return s.spaces.GetByHandle(ctx, handle)
}

func (s *SpaceService) ListPublic(ctx context.Context, kind domain.SpaceKind) ([]*domain.Space, error) {
	return s.spaces.ListPublic(ctx, kind)
}

// ListMine returns the spaces of the given kind the user belongs to.
func (s *SpaceService) ListMine(ctx context.Context, userID int64, kind domain.SpaceKind) ([]*domain.Space, error) {
	var (
		ids []int64
		err error
	)
	switch kind {
	case domain.SpaceGroup:
		ids, err = s.members.ListSpaceIDsForUser(ctx, userID)
	case domain.SpaceChannel:
		ids, err = s.subs.ListSpaceIDsForUser(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: unknown space kind %q", domain.ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Space, 0, len(ids))
	for _, id := range ids {
		space, err := s.spaces.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, space)
	}
	return out, nil
}

// Join adds the user to a group or subscribes them to a channel. Private
// spaces require the invite token. A banned member whose ban expired is
// let back in; an active ban is rejected.
func (s *SpaceService) Join(ctx context.Context, user *domain.User, spaceID int64, inviteToken string) (*domain.Space, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if space.Access == domain.AccessPrivate {
		if space.InviteToken == nil || inviteToken != *space.InviteToken {
			return nil, fmt.Errorf("%w: invalid invite token", domain.ErrForbidden)
		}
	}

	switch space.Kind {
	case domain.SpaceGroup:
		if err := s.joinGroup(ctx, space, user); err != nil {
			return nil, err
		}
	case domain.SpaceChannel:
		if err := s.subscribe(ctx, space, user); err != nil {
			return nil, err
		}
	}
	return space, nil
}

// JoinByInvite resolves a private space from its invite token and joins it.
func (s *SpaceService) JoinByInvite(ctx context.Context, user *domain.User, inviteToken string) (*domain.Space, error) {
	space, err := s.spaces.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		return nil, err
	}
	return s.Join(ctx, user, space.ID, inviteToken)
}

func (s *SpaceService) joinGroup(ctx context.Context, space *domain.Space, user *domain.User) error {
	existing, err := s.members.Get(ctx, space.ID, user.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if existing != nil {
		if !existing.IsBanned {
			return fmt.Errorf("%w: already a member", domain.ErrConflict)
		}
		if existing.BannedUntil == nil || existing.BannedUntil.After(time.Now()) {
			return fmt.Errorf("%w: banned from this group", domain.ErrForbidden)
		}
		// Expired ban: clear it and let the membership stand.
		if err := s.members.SetBan(ctx, space.ID, user.ID, false, nil); err != nil {
			return err
		}
	} else {
		err := s.members.Create(ctx, &domain.Membership{
			SpaceID: space.ID,
			UserID:  user.ID,
			Role:    domain.RoleMember,
		})
		if err != nil {
			return err
		}
	}

	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberAdded", Data: map[string]any{
		"group_id": space.ID,
		"user_id":  user.ID,
		"username": user.Username,
	}})
	return nil
}

func (s *SpaceService) subscribe(ctx context.Context, space *domain.Space, user *domain.User) error {
	if _, err := s.subs.Get(ctx, space.ID, user.ID); err == nil {
		return fmt.Errorf("%w: already subscribed", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	err := s.subs.Create(ctx, &domain.Subscription{
		SpaceID: space.ID,
		UserID:  user.ID,
	})
	if err != nil {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "channelSubscriberAdded", Data: map[string]any{
		"channel_id": space.ID,
		"user_id":    user.ID,
	}})
	return nil
}

// Leave removes the user from a group or channel. The owner cannot leave.
// Any admin grant and restriction the user held in the space go with them.
func (s *SpaceService) Leave(ctx context.Context, user *domain.User, spaceID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.OwnerID == user.ID {
		return fmt.Errorf("%w: the owner cannot leave", domain.ErrForbidden)
	}

	switch space.Kind {
	case domain.SpaceGroup:
		if err := s.members.Delete(ctx, space.ID, user.ID); err != nil {
			return err
		}
		_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRemoved", Data: map[string]any{
			"group_id": space.ID,
			"user_id":  user.ID,
		}})
	case domain.SpaceChannel:
		if err := s.subs.Delete(ctx, space.ID, user.ID); err != nil {
			return err
		}
		_ = s.router.Space(ctx, space, ws.Event{Type: "channelSubscriberRemoved", Data: map[string]any{
			"channel_id": space.ID,
			"user_id":    user.ID,
		}})
	}

	if err := s.admins.Delete(ctx, space.ID, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := s.restrs.Delete(ctx, space.ID, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// RemoveMember kicks a group member. Requires profile-level admin rights;
// the owner cannot be removed.
func (s *SpaceService) RemoveMember(ctx context.Context, actor *domain.User, spaceID, targetID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.Kind != domain.SpaceGroup {
		return fmt.Errorf("%w: not a group", domain.ErrInvalidInput)
	}
	ok, err := s.checker.CanModifyProfile(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to remove members", domain.ErrForbidden)
	}
	if space.OwnerID == targetID {
		return fmt.Errorf("%w: the owner cannot be removed", domain.ErrForbidden)
	}
	if err := s.members.Delete(ctx, spaceID, targetID); err != nil {
		return err
	}
	if err := s.admins.Delete(ctx, spaceID, targetID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := s.restrs.Delete(ctx, spaceID, targetID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRemoved", Data: map[string]any{
		"group_id": space.ID,
		"user_id":  targetID,
	}})
	s.router.User(targetID, ws.Event{Type: "groupMemberRemoved", Data: map[string]any{
		"group_id": space.ID,
		"user_id":  targetID,
	}})
	return nil
}

// Ban marks a group membership banned, permanently when until is nil.
// The owner is unbannable.
func (s *SpaceService) Ban(ctx context.Context, actor *domain.User, spaceID, targetID int64, until *time.Time) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.Kind != domain.SpaceGroup {
		return fmt.Errorf("%w: not a group", domain.ErrInvalidInput)
	}
	ok, err := s.checker.IsAdmin(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to ban members", domain.ErrForbidden)
	}
	if space.OwnerID == targetID {
		return fmt.Errorf("%w: the owner cannot be banned", domain.ErrForbidden)
	}
	if _, err := s.members.Get(ctx, spaceID, targetID); err != nil {
		return err
	}
	if err := s.members.SetBan(ctx, spaceID, targetID, true, until); err != nil {
		return err
	}
	data := map[string]any{
		"group_id": space.ID,
		"user_id":  targetID,
		"banned":   true,
	}
	if until != nil {
		data["banned_until"] = until.UTC().Format(time.RFC3339)
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRestricted", Data: data})
	return nil
}

// Unban clears a ban without touching the membership itself.
func (s *SpaceService) Unban(ctx context.Context, actor *domain.User, spaceID, targetID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	ok, err := s.checker.IsAdmin(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to unban members", domain.ErrForbidden)
	}
	if err := s.members.SetBan(ctx, spaceID, targetID, false, nil); err != nil {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRestricted", Data: map[string]any{
		"group_id": space.ID,
		"user_id":  targetID,
		"banned":   false,
	}})
	return nil
}

type RestrictInput struct {
	CanSendMessages bool
	CanSendImages   bool
	CanSendFiles    bool
	CanReact        bool
	ExpiresAt       *time.Time
}

// Restrict narrows a group member's capabilities. Upserts, so restricting
// twice replaces the earlier row.
func (s *SpaceService) Restrict(ctx context.Context, actor *domain.User, spaceID, targetID int64, in RestrictInput) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.Kind != domain.SpaceGroup {
		return fmt.Errorf("%w: restrictions apply to groups only", domain.ErrInvalidInput)
	}
	ok, err := s.checker.IsAdmin(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to restrict members", domain.ErrForbidden)
	}
	if space.OwnerID == targetID {
		return fmt.Errorf("%w: the owner cannot be restricted", domain.ErrForbidden)
	}
	if _, err := s.members.Get(ctx, spaceID, targetID); err != nil {
		return err
	}
	err = s.restrs.Upsert(ctx, &domain.Restriction{
		SpaceID:         spaceID,
		UserID:          targetID,
		CanSendMessages: in.CanSendMessages,
		CanSendImages:   in.CanSendImages,
		CanSendFiles:    in.CanSendFiles,
		CanReact:        in.CanReact,
		ExpiresAt:       in.ExpiresAt,
		RestrictedBy:    actor.ID,
	})
	if err != nil {
		return err
	}
	data := map[string]any{
		"group_id":          space.ID,
		"user_id":           targetID,
		"can_send_messages": in.CanSendMessages,
		"can_send_images":   in.CanSendImages,
		"can_send_files":    in.CanSendFiles,
		"can_react":         in.CanReact,
	}
	if in.ExpiresAt != nil {
		data["expires_at"] = in.ExpiresAt.UTC().Format(time.RFC3339)
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRestricted", Data: data})
	return nil
}

// Unrestrict removes a member's restriction row.
func (s *SpaceService) Unrestrict(ctx context.Context, actor *domain.User, spaceID, targetID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	ok, err := s.checker.IsAdmin(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to restrict members", domain.ErrForbidden)
	}
	if err := s.restrs.Delete(ctx, spaceID, targetID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "groupMemberRestricted", Data: map[string]any{
		"group_id": space.ID,
		"user_id":  targetID,
		"cleared":  true,
	}})
	return nil
}

type AdminGrantInput struct {
	Label             *string
	CanSendMessages   bool
	CanSendImages     bool
	CanSendFiles      bool
	CanDeleteMessages bool
	CanAssignAdmins   bool
	CanModifyProfile  bool
}

// AssignAdmin creates or replaces a delegated admin grant. The grantor needs
// assign rights but not the capabilities being granted. The target must
// belong to the space; the owner needs no grant.
func (s *SpaceService) AssignAdmin(ctx context.Context, actor *domain.User, spaceID, targetID int64, in AdminGrantInput) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	ok, err := s.checker.CanAssignAdmins(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to assign admins", domain.ErrForbidden)
	}
	if space.OwnerID == targetID {
		return fmt.Errorf("%w: the owner already holds every right", domain.ErrConflict)
	}
	switch space.Kind {
	case domain.SpaceGroup:
		if _, err := s.members.Get(ctx, spaceID, targetID); err != nil {
			return err
		}
	case domain.SpaceChannel:
		if _, err := s.subs.Get(ctx, spaceID, targetID); err != nil {
			return err
		}
	}
	err = s.admins.Upsert(ctx, &domain.AdminGrant{
		SpaceID:           spaceID,
		UserID:            targetID,
		Label:             in.Label,
		CanSendMessages:   in.CanSendMessages,
		CanSendImages:     in.CanSendImages,
		CanSendFiles:      in.CanSendFiles,
		CanDeleteMessages: in.CanDeleteMessages,
		CanAssignAdmins:   in.CanAssignAdmins,
		CanModifyProfile:  in.CanModifyProfile,
	})
	if err != nil {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "adminChanged", Data: map[string]any{
		"space_id":            space.ID,
		"user_id":             targetID,
		"removed":             false,
		"can_send_messages":   in.CanSendMessages,
		"can_send_images":     in.CanSendImages,
		"can_send_files":      in.CanSendFiles,
		"can_delete_messages": in.CanDeleteMessages,
		"can_assign_admins":   in.CanAssignAdmins,
		"can_modify_profile":  in.CanModifyProfile,
	}})
	return nil
}

// RemoveAdmin drops a delegated admin grant.
func (s *SpaceService) RemoveAdmin(ctx context.Context, actor *domain.User, spaceID, targetID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	ok, err := s.checker.CanAssignAdmins(ctx, space, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to assign admins", domain.ErrForbidden)
	}
	if err := s.admins.Delete(ctx, spaceID, targetID); err != nil {
		return err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: "adminChanged", Data: map[string]any{
		"space_id": space.ID,
		"user_id":  targetID,
		"removed":  true,
	}})
	return nil
}

type UpdateSpaceInput struct {
	Name        *string
	Handle      *string
	Description *string
}

// Update edits a space's profile. Handle changes re-check the shared
// namespace, excluding the space itself.
func (s *SpaceService) Update(ctx context.Context, actor *domain.User, spaceID int64, in UpdateSpaceInput) (*domain.Space, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	ok, err := s.checker.CanModifyProfile(ctx, space, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: not authorized to modify this %s", domain.ErrForbidden, space.Kind)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len([]rune(name)) > 64 {
			return nil, fmt.Errorf("%w: name must be 1-64 characters", domain.ErrInvalidInput)
		}
		space.Name = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			space.Description = nil
		} else {
			space.Description = &desc
		}
	}
	if in.Handle != nil {
		handle := strings.TrimSpace(*in.Handle)
		if !usernameRe.MatchString(handle) {
			return nil, fmt.Errorf("%w: handle must be 3-20 characters of letters, digits, hyphens, underscores", domain.ErrInvalidInput)
		}
		holder, err := s.checker.HandleOwner(ctx, handle, permissions.HandleExclusion{SpaceID: space.ID})
		if err != nil {
			return nil, fmt.Errorf("check handle: %w", err)
		}
		if holder != "" {
			return nil, fmt.Errorf("%w: handle already taken by a %s", domain.ErrConflict, holder)
		}
		space.Handle = &handle
	}

	if err := s.spaces.Update(ctx, space); err != nil {
		return nil, err
	}

	event := "groupUpdated"
	idKey := "group_id"
	if space.Kind == domain.SpaceChannel {
		event = "channelUpdated"
		idKey = "channel_id"
	}
	data := map[string]any{
		idKey:  space.ID,
		"name": space.Name,
	}
	if space.Handle != nil {
		data["handle"] = *space.Handle
	}
	if space.Description != nil {
		data["description"] = *space.Description
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: event, Data: data})
	return space, nil
}

// RegenerateInviteToken replaces a private space's invite token, cutting off
// anyone holding the old one.
func (s *SpaceService) RegenerateInviteToken(ctx context.Context, actor *domain.User, spaceID int64) (string, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return "", err
	}
	ok, err := s.checker.CanModifyProfile(ctx, space, actor.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: not authorized to modify this %s", domain.ErrForbidden, space.Kind)
	}
	if space.Access != domain.AccessPrivate {
		return "", fmt.Errorf("%w: only private spaces have invite tokens", domain.ErrInvalidInput)
	}
	token, err := newInviteToken()
	if err != nil {
		return "", err
	}
	space.InviteToken = &token
	if err := s.spaces.Update(ctx, space); err != nil {
		return "", err
	}
	return token, nil
}

// Delete removes a space entirely. Owner only.
func (s *SpaceService) Delete(ctx context.Context, actor *domain.User, spaceID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.OwnerID != actor.ID {
		return fmt.Errorf("%w: only the owner can delete this %s", domain.ErrForbidden, space.Kind)
	}
	event := "groupUpdated"
	idKey := "group_id"
	if space.Kind == domain.SpaceChannel {
		event = "channelUpdated"
		idKey = "channel_id"
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: event, Data: map[string]any{
		idKey:     space.ID,
		"deleted": true,
	}})
	return s.spaces.Delete(ctx, spaceID)
}

// MemberDetail pairs a membership row with the user it belongs to and any
// admin grant or restriction attached to them.
type MemberDetail struct {
	User        *domain.User
	Role        domain.Role
	IsBanned    bool
	BannedUntil *time.Time
	Admin       *domain.AdminGrant
	Restriction *domain.Restriction
	JoinedAt    time.Time
}

// ListMembers returns a group's members with role, grant, and restriction
// detail. Caller must already belong to the space.
func (s *SpaceService) ListMembers(ctx context.Context, spaceID int64) ([]*MemberDetail, error) {
	memberships, err := s.members.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	grants, err := s.admins.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	grantByUser := make(map[int64]*domain.AdminGrant, len(grants))
	for _, g := range grants {
		grantByUser[g.UserID] = g
	}

	out := make([]*MemberDetail, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.users.GetByID(ctx, m.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		detail := &MemberDetail{
			User:        user,
			Role:        m.Role,
			IsBanned:    m.IsBanned,
			BannedUntil: m.BannedUntil,
			Admin:       grantByUser[m.UserID],
			JoinedAt:    m.JoinedAt,
		}
		if r, err := s.restrs.Get(ctx, spaceID, m.UserID); err == nil {
			detail.Restriction = r
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		out = append(out, detail)
	}
	return out, nil
}

// ListSubscribers returns a channel's subscribers with admin-grant detail.
func (s *SpaceService) ListSubscribers(ctx context.Context, spaceID int64) ([]*MemberDetail, error) {
	subscriptions, err := s.subs.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	grants, err := s.admins.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	grantByUser := make(map[int64]*domain.AdminGrant, len(grants))
	for _, g := range grants {
		grantByUser[g.UserID] = g
	}

	out := make([]*MemberDetail, 0, len(subscriptions))
	for _, sub := range subscriptions {
		user, err := s.users.GetByID(ctx, sub.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &MemberDetail{
			User:     user,
			Role:     domain.RoleMember,
			Admin:    grantByUser[sub.UserID],
			JoinedAt: sub.SubscribedAt,
		})
	}
	return out, nil
}

// SubscriberCount returns how many users follow a channel.
func (s *SpaceService) SubscriberCount(ctx context.Context, spaceID int64) (int, error) {
	return s.subs.Count(ctx, spaceID)
}
