package domain

import "time"

// User represents an application user. Deleted accounts are anonymized in
// place and never removed, so message history keeps a stable author id.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	DisplayName    string     `db:"display_name" json:"display_name"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	Bio            *string    `db:"bio" json:"bio,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profile_picture,omitempty"`
	IsOnline       bool       `db:"is_online" json:"is_online"`
	Verified       bool       `db:"verified" json:"verified"`
	Deleted        bool       `db:"deleted" json:"deleted"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastSeen       *time.Time `db:"last_seen" json:"last_seen,omitempty"`
}

// SpaceKind discriminates groups (bidirectional membership) from channels
// (admins post, subscribers receive).
type SpaceKind string

const (
	SpaceGroup   SpaceKind = "group"
	SpaceChannel SpaceKind = "channel"
)

// AccessType is the visibility of a space.
type AccessType string

const (
	AccessPublic  AccessType = "public"
	AccessPrivate AccessType = "private"
)

// Space is a group or a channel. Public spaces carry a handle unique across
// the whole handle namespace (users included); private spaces carry an
// invite token instead.
type Space struct {
	ID          int64      `db:"id" json:"id"`
	Kind        SpaceKind  `db:"kind" json:"kind"`
	Name        string     `db:"name" json:"name"`
	Handle      *string    `db:"handle" json:"handle,omitempty"`
	OwnerID     int64      `db:"owner_id" json:"owner_id"`
	Access      AccessType `db:"access_type" json:"access"`
	InviteToken *string    `db:"invite_token" json:"-"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Role of a group member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Membership links a user to a group. BannedUntil nil while IsBanned means a
// permanent ban; a past BannedUntil is cleared lazily by the capability
// engine on the next check.
type Membership struct {
	SpaceID     int64      `db:"space_id"`
	UserID      int64      `db:"user_id"`
	Role        Role       `db:"role"`
	IsBanned    bool       `db:"is_banned"`
	BannedUntil *time.Time `db:"banned_until"`
	JoinedAt    time.Time  `db:"joined_at"`
}

// Subscription links a user to a channel. Channels have no member roles;
// rights live in AdminGrant rows.
type Subscription struct {
	SpaceID      int64     `db:"space_id"`
	UserID       int64     `db:"user_id"`
	SubscribedAt time.Time `db:"subscribed_at"`
}

// AdminGrant is a delegated capability set for one user in one space. The
// space owner holds every capability whether or not a grant row exists.
type AdminGrant struct {
	SpaceID           int64     `db:"space_id" json:"space_id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	Label             *string   `db:"label" json:"label,omitempty"`
	CanSendMessages   bool      `db:"can_send_messages" json:"can_send_messages"`
	CanSendImages     bool      `db:"can_send_images" json:"can_send_images"`
	CanSendFiles      bool      `db:"can_send_files" json:"can_send_files"`
	CanDeleteMessages bool      `db:"can_delete_messages" json:"can_delete_messages"`
	CanAssignAdmins   bool      `db:"can_assign_admins" json:"can_assign_admins"`
	CanModifyProfile  bool      `db:"can_modify_profile" json:"can_modify_profile"`
	AssignedAt        time.Time `db:"assigned_at" json:"assigned_at"`
}

// Restriction narrows a group member's capabilities below default. A nil
// ExpiresAt is permanent until cleared; an expired row is deleted lazily by
// the first check that observes it.
type Restriction struct {
	SpaceID         int64      `db:"space_id" json:"space_id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	CanSendMessages bool       `db:"can_send_messages" json:"can_send_messages"`
	CanSendImages   bool       `db:"can_send_images" json:"can_send_images"`
	CanSendFiles    bool       `db:"can_send_files" json:"can_send_files"`
	CanReact        bool       `db:"can_react" json:"can_react"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	RestrictedBy    int64      `db:"restricted_by" json:"restricted_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Message is a group or channel message. ReplyToID references another
// message of the same space; rendering follows it one hop only.
type Message struct {
	ID        int64     `db:"id"`
	SpaceID   int64     `db:"space_id"`
	AuthorID  int64     `db:"author_id"`
	Content   string    `db:"content"` // post-filter
	CreatedAt time.Time `db:"created_at"`
	IsEdited  bool      `db:"is_edited"`
	ReplyToID *int64    `db:"reply_to_id"`
}

// MessageFile is attachment metadata; the bytes live with the storage
// collaborator and are referenced by path only.
type MessageFile struct {
	ID        int64  `db:"id" json:"id"`
	MessageID int64  `db:"message_id" json:"message_id"`
	Name      string `db:"name" json:"name"`
	Path      string `db:"path" json:"path"`
}

// Reaction is unique per (message, user, emoji); re-reacting with the same
// emoji toggles it off.
type Reaction struct {
	ID        int64     `db:"id"`
	MessageID int64     `db:"message_id"`
	UserID    int64     `db:"user_id"`
	Emoji     string    `db:"emoji"`
	CreatedAt time.Time `db:"created_at"`
}

// DMEnvelope is a direct message: ciphertext sealed on the client, opaque to
// the server.
type DMEnvelope struct {
	ID          int64     `db:"id"`
	SenderID    int64     `db:"sender_id"`
	RecipientID int64     `db:"recipient_id"`
	IV          string    `db:"iv_b64"`
	Ciphertext  string    `db:"ciphertext_b64"`
	Salt        string    `db:"salt_b64"`
	IV2         string    `db:"iv2_b64"`
	WrappedKey  string    `db:"wrapped_mk_b64"`
	ReplyToID   *int64    `db:"reply_to_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// DMReaction mirrors Reaction for direct-message envelopes.
type DMReaction struct {
	ID         int64     `db:"id"`
	EnvelopeID int64     `db:"envelope_id"`
	UserID     int64     `db:"user_id"`
	Emoji      string    `db:"emoji"`
	CreatedAt  time.Time `db:"created_at"`
}

// DeviceSession is one authenticated device. Its SessionID is embedded in
// issued tokens and is the revocation handle for logout and forced expiry.
type DeviceSession struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	SessionID  string    `db:"session_id"`
	DeviceName *string   `db:"device_name"`
	UserAgent  *string   `db:"user_agent"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeen   time.Time `db:"last_seen"`
	Revoked    bool      `db:"revoked"`
}

// PushSubscription is a user's external web-push endpoint; one per user.
type PushSubscription struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Endpoint  string    `db:"endpoint"`
	P256dh    string    `db:"p256dh_key"`
	Auth      string    `db:"auth_key"`
	UpdatedAt time.Time `db:"updated_at"`
}
