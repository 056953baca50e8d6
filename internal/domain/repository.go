package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Search(ctx context.Context, query string, limit int) ([]*User, error)
	ListOnline(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error
}

// SpaceRepository defines persistence operations for groups and channels.
type SpaceRepository interface {
	Create(ctx context.Context, s *Space) error
	GetByID(ctx context.Context, id int64) (*Space, error)
	GetByHandle(ctx context.Context, handle string) (*Space, error)
	GetByInviteToken(ctx context.Context, token string) (*Space, error)
	ListPublic(ctx context.Context, kind SpaceKind) ([]*Space, error)
	Update(ctx context.Context, s *Space) error
	Delete(ctx context.Context, id int64) error
}

// MembershipRepository covers group memberships including ban state.
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, spaceID, userID int64) (*Membership, error)
	Delete(ctx context.Context, spaceID, userID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
	ListBySpace(ctx context.Context, spaceID int64) ([]*Membership, error)
	ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	MemberIDs(ctx context.Context, spaceID int64) ([]int64, error)
	SetRole(ctx context.Context, spaceID, userID int64, role Role) error
	SetBan(ctx context.Context, spaceID, userID int64, banned bool, until *time.Time) error
}

// SubscriptionRepository covers channel subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, spaceID, userID int64) (*Subscription, error)
	Delete(ctx context.Context, spaceID, userID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
	ListBySpace(ctx context.Context, spaceID int64) ([]*Subscription, error)
	ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	SubscriberIDs(ctx context.Context, spaceID int64) ([]int64, error)
	Count(ctx context.Context, spaceID int64) (int, error)
}

// AdminRepository covers delegated capability grants.
type AdminRepository interface {
	Upsert(ctx context.Context, g *AdminGrant) error
	Get(ctx context.Context, spaceID, userID int64) (*AdminGrant, error)
	Delete(ctx context.Context, spaceID, userID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
	ListBySpace(ctx context.Context, spaceID int64) ([]*AdminGrant, error)
}

// RestrictionRepository covers temporal member restrictions (groups only).
type RestrictionRepository interface {
	Upsert(ctx context.Context, r *Restriction) error
	Get(ctx context.Context, spaceID, userID int64) (*Restriction, error)
	Delete(ctx context.Context, spaceID, userID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
}

// MessageRepository covers group/channel messages and their attachments.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListForSpace(ctx context.Context, spaceID int64, limit int) ([]*Message, error)
	Update(ctx context.Context, m *Message) error
	Delete(ctx context.Context, id int64) error
	AddFile(ctx context.Context, f *MessageFile) error
	ListFiles(ctx context.Context, messageID int64) ([]*MessageFile, error)
}

// ReactionRepository covers message reactions. Toggling is implemented by
// the service: Get then Create or Delete.
type ReactionRepository interface {
	Create(ctx context.Context, r *Reaction) error
	Get(ctx context.Context, messageID, userID int64, emoji string) (*Reaction, error)
	Delete(ctx context.Context, id int64) error
	ListForMessage(ctx context.Context, messageID int64) ([]*Reaction, error)
}

// DMRepository covers direct-message envelopes and their reactions.
type DMRepository interface {
	Create(ctx context.Context, e *DMEnvelope) error
	GetByID(ctx context.Context, id int64) (*DMEnvelope, error)
	ListBetween(ctx context.Context, userA, userB int64, limit int) ([]*DMEnvelope, error)
	AddReaction(ctx context.Context, r *DMReaction) error
	GetReaction(ctx context.Context, envelopeID, userID int64, emoji string) (*DMReaction, error)
	DeleteReaction(ctx context.Context, id int64) error
	ListReactions(ctx context.Context, envelopeID int64) ([]*DMReaction, error)
}

// SessionRepository covers revocable device sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *DeviceSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*DeviceSession, error)
	ListForUser(ctx context.Context, userID int64) ([]*DeviceSession, error)
	Touch(ctx context.Context, sessionID string) error
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID int64, exceptSessionID string) error
	RevokedAmong(ctx context.Context, sessionIDs []string) ([]string, error)
}

// PushRepository covers web-push subscriptions.
type PushRepository interface {
	Upsert(ctx context.Context, s *PushSubscription) error
	GetByUser(ctx context.Context, userID int64) (*PushSubscription, error)
	DeleteByUser(ctx context.Context, userID int64) error
}
