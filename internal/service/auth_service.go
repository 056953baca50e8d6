package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/security"
)

// DefaultGroupHandle is the public group every new account joins.
const DefaultGroupHandle = "general"

// Registry is the slice of the connection registry the services need:
// closing live connections when a session or a whole account is revoked.
type Registry interface {
	RevokeSession(sessionID string) int
	RevokeUser(userID int64) int
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
)

func validDisplayName(name string) bool {
	return name != "" && len([]rune(name)) <= 64
}

func validPassword(password string) bool {
	n := len([]rune(password))
	return n >= 5 && n <= 50 && !strings.ContainsAny(password, " \t\n")
}

// AuthService handles registration, login, sessions, and account lifecycle.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	members  domain.MembershipRepository
	subs     domain.SubscriptionRepository
	admins   domain.AdminRepository
	restrs   domain.RestrictionRepository
	pushSubs domain.PushRepository
	spaces   domain.SpaceRepository
	checker  *permissions.Checker
	tokens   *security.TokenService
	hash     *security.PasswordHasher
	registry Registry

	ownerUsername string
	rememberTTL   time.Duration
}

func NewAuthService(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	members domain.MembershipRepository,
	subs domain.SubscriptionRepository,
	admins domain.AdminRepository,
	restrs domain.RestrictionRepository,
	pushSubs domain.PushRepository,
	spaces domain.SpaceRepository,
	checker *permissions.Checker,
	tokens *security.TokenService,
	hash *security.PasswordHasher,
	registry Registry,
	ownerUsername string,
	rememberTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:         users,
		sessions:      sessions,
		members:       members,
		subs:          subs,
		admins:        admins,
		restrs:        restrs,
		pushSubs:      pushSubs,
		spaces:        spaces,
		checker:       checker,
		tokens:        tokens,
		hash:          hash,
		registry:      registry,
		ownerUsername: ownerUsername,
		rememberTTL:   rememberTTL,
	}
}

type RegisterInput struct {
	Username        string
	DisplayName     string
	Password        string
	ConfirmPassword string
	DeviceName      *string
	UserAgent       *string
}

type LoginInput struct {
	Username   string
	Password   string
	RememberMe bool
	DeviceName *string
	UserAgent  *string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	SessionID   string
	User        *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenResponse, error) {
	username := strings.TrimSpace(in.Username)
	displayName := strings.TrimSpace(in.DisplayName)
	password := strings.TrimSpace(in.Password)

	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-20 characters of letters, digits, hyphens, underscores", domain.ErrInvalidInput)
	}
	if !validDisplayName(displayName) {
		return nil, fmt.Errorf("%w: display name must be 1-64 characters", domain.ErrInvalidInput)
	}
	if !validPassword(password) {
		return nil, fmt.Errorf("%w: password must be 5-50 characters without spaces", domain.ErrInvalidInput)
	}
	if password != strings.TrimSpace(in.ConfirmPassword) {
		return nil, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
	}

	// Handles share one namespace with groups and channels.
	owner, err := s.checker.HandleOwner(ctx, username, permissions.HandleExclusion{})
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if owner != "" {
		return nil, fmt.Errorf("%w: username already taken by %s", domain.ErrConflict, owner)
	}

	hashed, err := s.hash.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       username,
		DisplayName:    displayName,
		HashedPassword: hashed,
		IsOnline:       true,
		Verified:       username == s.ownerUsername,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Every new account lands in the default public group when it exists.
	if general, err := s.spaces.GetByHandle(ctx, DefaultGroupHandle); err == nil && general.Kind == domain.SpaceGroup {
		_ = s.members.Create(ctx, &domain.Membership{
			SpaceID: general.ID,
			UserID:  user.ID,
			Role:    domain.RoleMember,
		})
	}

	return s.issueToken(ctx, user, false, in.DeviceName, in.UserAgent)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Deleted {
		return nil, fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
	}
	if err := s.hash.Verify(strings.TrimSpace(in.Password), user.HashedPassword); err != nil {
		return nil, fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
	}

	if err := s.users.SetOnlineStatus(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}
	user.IsOnline = true

	return s.issueToken(ctx, user, in.RememberMe, in.DeviceName, in.UserAgent)
}

func (s *AuthService) issueToken(ctx context.Context, user *domain.User, remember bool, deviceName, userAgent *string) (*TokenResponse, error) {
	sessionID := uuid.NewString()
	if err := s.sessions.Create(ctx, &domain.DeviceSession{
		UserID:     user.ID,
		SessionID:  sessionID,
		DeviceName: deviceName,
		UserAgent:  userAgent,
	}); err != nil {
		return nil, fmt.Errorf("create device session: %w", err)
	}

	var token string
	var err error
	if remember {
		token, err = s.tokens.CreateWithTTL(user.Username, sessionID, s.rememberTTL)
	} else {
		token, err = s.tokens.Create(user.Username, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		SessionID:   sessionID,
		User:        user,
	}, nil
}

// Logout revokes the current device session, closes its live connections,
// and marks the user offline.
func (s *AuthService) Logout(ctx context.Context, userID int64, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.registry.RevokeSession(sessionID)
	return s.users.SetOnlineStatus(ctx, userID, false)
}

// ChangePassword verifies the current password, stores the new hash, and
// optionally revokes every other device session, closing their connections.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, current, next string, logoutOthers bool, currentSessionID string) error {
	if err := s.hash.Verify(strings.TrimSpace(current), user.HashedPassword); err != nil {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)
	}
	hashed, err := s.hash.Hash(strings.TrimSpace(next))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if logoutOthers {
		others, err := s.sessions.ListForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if err := s.sessions.RevokeAllForUser(ctx, user.ID, currentSessionID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		for _, sess := range others {
			if sess.SessionID != currentSessionID {
				s.registry.RevokeSession(sess.SessionID)
			}
		}
	}
	return nil
}

// ListSessions returns the user's device sessions.
func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]*domain.DeviceSession, error) {
	return s.sessions.ListForUser(ctx, userID)
}

// RevokeSession revokes one of the user's own device sessions and closes
// its live connections.
func (s *AuthService) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.registry.RevokeSession(sessionID)
	return nil
}

// DeleteAccount anonymizes the user in place (messages and reactions keep a
// stable author id), purges their memberships, subscriptions, grants,
// restrictions, sessions, and push subscription, then pushes a terminal
// deletion notice to every live connection and closes them.
func (s *AuthService) DeleteAccount(ctx context.Context, user *domain.User) error {
	if user.Username == s.ownerUsername {
		return fmt.Errorf("%w: cannot delete the owner account", domain.ErrForbidden)
	}

	user.Deleted = true
	user.Username = fmt.Sprintf("deleted_%d", user.ID)
	user.DisplayName = fmt.Sprintf("Deleted User #%d", user.ID)
	user.HashedPassword = ""
	user.Bio = nil
	user.ProfilePicture = nil
	user.IsOnline = false
	user.LastSeen = nil
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("anonymize user: %w", err)
	}

	if err := s.members.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("purge memberships: %w", err)
	}
	if err := s.subs.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("purge subscriptions: %w", err)
	}
	if err := s.admins.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("purge admin grants: %w", err)
	}
	if err := s.restrs.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("purge restrictions: %w", err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := s.pushSubs.DeleteByUser(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("purge push subscription: %w", err)
	}

	s.registry.RevokeUser(user.ID)
	return nil
}
