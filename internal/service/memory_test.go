package service_test

// In-memory repositories backing the service tests. They mirror the SQL
// stores' observable behavior: ErrNotFound for missing rows, banned members
// excluded from member listings, and RevokedAmong reporting ids absent from
// the alive set.

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fromchat/internal/domain"
	"fromchat/internal/push"
	"fromchat/internal/ws"
)

type memKey struct{ space, user int64 }

type memDB struct {
	mu     sync.Mutex
	nextID int64

	users       map[int64]*domain.User
	spaces      map[int64]*domain.Space
	members     map[memKey]*domain.Membership
	subs        map[memKey]*domain.Subscription
	admins      map[memKey]*domain.AdminGrant
	restrs      map[memKey]*domain.Restriction
	messages    map[int64]*domain.Message
	files       map[int64][]*domain.MessageFile
	reactions   map[int64]*domain.Reaction
	dms         map[int64]*domain.DMEnvelope
	dmReactions map[int64]*domain.DMReaction
	sessions    map[string]*domain.DeviceSession
	pushSubs    map[int64]*domain.PushSubscription
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[int64]*domain.User{},
		spaces:      map[int64]*domain.Space{},
		members:     map[memKey]*domain.Membership{},
		subs:        map[memKey]*domain.Subscription{},
		admins:      map[memKey]*domain.AdminGrant{},
		restrs:      map[memKey]*domain.Restriction{},
		messages:    map[int64]*domain.Message{},
		files:       map[int64][]*domain.MessageFile{},
		reactions:   map[int64]*domain.Reaction{},
		dms:         map[int64]*domain.DMEnvelope{},
		dmReactions: map[int64]*domain.DMReaction{},
		sessions:    map[string]*domain.DeviceSession{},
		pushSubs:    map[int64]*domain.PushSubscription{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

type memUsers struct{ db *memDB }

func (r *memUsers) Create(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u.ID = r.db.id()
	u.CreatedAt = time.Now()
	r.db.users[u.ID] = u
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUsers) List(ctx context.Context) ([]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.User
	for _, u := range r.db.users {
		if !u.Deleted {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUsers) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q := strings.ToLower(query)
	var out []*domain.User
	for _, u := range r.db.users {
		if u.Deleted {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUsers) ListOnline(ctx context.Context) ([]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.User
	for _, u := range r.db.users {
		if u.IsOnline && !u.Deleted {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsers) Update(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	r.db.users[u.ID] = u
	return nil
}

func (r *memUsers) SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsOnline = isOnline
	return nil
}

type memSpaces struct{ db *memDB }

func (r *memSpaces) Create(ctx context.Context, s *domain.Space) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = r.db.id()
	s.CreatedAt = time.Now()
	r.db.spaces[s.ID] = s
	return nil
}

func (r *memSpaces) GetByID(ctx context.Context, id int64) (*domain.Space, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.spaces[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSpaces) GetByHandle(ctx context.Context, handle string) (*domain.Space, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.spaces {
		if s.Handle != nil && *s.Handle == handle {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSpaces) GetByInviteToken(ctx context.Context, token string) (*domain.Space, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.spaces {
		if s.InviteToken != nil && *s.InviteToken == token {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSpaces) ListPublic(ctx context.Context, kind domain.SpaceKind) ([]*domain.Space, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Space
	for _, s := range r.db.spaces {
		if s.Kind == kind && s.Access == domain.AccessPublic {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSpaces) Update(ctx context.Context, s *domain.Space) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.spaces[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.db.spaces[s.ID] = s
	return nil
}

func (r *memSpaces) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.spaces[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.spaces, id)
	return nil
}

type memMembers struct{ db *memDB }

func (r *memMembers) Create(ctx context.Context, m *domain.Membership) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.JoinedAt = time.Now()
	r.db.members[memKey{m.SpaceID, m.UserID}] = m
	return nil
}

func (r *memMembers) Get(ctx context.Context, spaceID, userID int64) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m, ok := r.db.members[memKey{spaceID, userID}]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memMembers) Delete(ctx context.Context, spaceID, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := memKey{spaceID, userID}
	if _, ok := r.db.members[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.members, k)
	return nil
}

func (r *memMembers) DeleteForUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k := range r.db.members {
		if k.user == userID {
			delete(r.db.members, k)
		}
	}
	return nil
}

func (r *memMembers) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Membership
	for k, m := range r.db.members {
		if k.space == spaceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memMembers) ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []int64
	for k, m := range r.db.members {
		if k.user == userID && !m.IsBanned {
			out = append(out, k.space)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memMembers) MemberIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []int64
	for k, m := range r.db.members {
		if k.space == spaceID && !m.IsBanned {
			out = append(out, k.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memMembers) SetRole(ctx context.Context, spaceID, userID int64, role domain.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[memKey{spaceID, userID}]
	if !ok {
		return domain.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *memMembers) SetBan(ctx context.Context, spaceID, userID int64, banned bool, until *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[memKey{spaceID, userID}]
	if !ok {
		return domain.ErrNotFound
	}
	m.IsBanned = banned
	m.BannedUntil = until
	return nil
}

type memSubs struct{ db *memDB }

func (r *memSubs) Create(ctx context.Context, s *domain.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.SubscribedAt = time.Now()
	r.db.subs[memKey{s.SpaceID, s.UserID}] = s
	return nil
}

func (r *memSubs) Get(ctx context.Context, spaceID, userID int64) (*domain.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.subs[memKey{spaceID, userID}]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSubs) Delete(ctx context.Context, spaceID, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := memKey{spaceID, userID}
	if _, ok := r.db.subs[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.subs, k)
	return nil
}

func (r *memSubs) DeleteForUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k := range r.db.subs {
		if k.user == userID {
			delete(r.db.subs, k)
		}
	}
	return nil
}

func (r *memSubs) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Subscription
	for k, s := range r.db.subs {
		if k.space == spaceID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memSubs) ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []int64
	for k := range r.db.subs {
		if k.user == userID {
			out = append(out, k.space)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memSubs) SubscriberIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []int64
	for k := range r.db.subs {
		if k.space == spaceID {
			out = append(out, k.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memSubs) Count(ctx context.Context, spaceID int64) (int, error) {
	ids, _ := r.SubscriberIDs(ctx, spaceID)
	return len(ids), nil
}

type memAdmins struct{ db *memDB }

func (r *memAdmins) Upsert(ctx context.Context, g *domain.AdminGrant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g.AssignedAt = time.Now()
	r.db.admins[memKey{g.SpaceID, g.UserID}] = g
	return nil
}

func (r *memAdmins) Get(ctx context.Context, spaceID, userID int64) (*domain.AdminGrant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if g, ok := r.db.admins[memKey{spaceID, userID}]; ok {
		return g, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memAdmins) Delete(ctx context.Context, spaceID, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := memKey{spaceID, userID}
	if _, ok := r.db.admins[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.admins, k)
	return nil
}

func (r *memAdmins) DeleteForUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k := range r.db.admins {
		if k.user == userID {
			delete(r.db.admins, k)
		}
	}
	return nil
}

func (r *memAdmins) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.AdminGrant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.AdminGrant
	for k, g := range r.db.admins {
		if k.space == spaceID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memRestrs struct{ db *memDB }

func (r *memRestrs) Upsert(ctx context.Context, restr *domain.Restriction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	restr.CreatedAt = time.Now()
	r.db.restrs[memKey{restr.SpaceID, restr.UserID}] = restr
	return nil
}

func (r *memRestrs) Get(ctx context.Context, spaceID, userID int64) (*domain.Restriction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if restr, ok := r.db.restrs[memKey{spaceID, userID}]; ok {
		return restr, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memRestrs) Delete(ctx context.Context, spaceID, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := memKey{spaceID, userID}
	if _, ok := r.db.restrs[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.restrs, k)
	return nil
}

func (r *memRestrs) DeleteForUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k := range r.db.restrs {
		if k.user == userID {
			delete(r.db.restrs, k)
		}
	}
	return nil
}

type memMessages struct{ db *memDB }

func (r *memMessages) Create(ctx context.Context, m *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = r.db.id()
	m.CreatedAt = time.Now()
	r.db.messages[m.ID] = m
	return nil
}

func (r *memMessages) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m, ok := r.db.messages[id]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memMessages) ListForSpace(ctx context.Context, spaceID int64, limit int) ([]*domain.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.db.messages {
		if m.SpaceID == spaceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memMessages) Update(ctx context.Context, m *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.messages[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.db.messages[m.ID] = m
	return nil
}

func (r *memMessages) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.messages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.messages, id)
	return nil
}

func (r *memMessages) AddFile(ctx context.Context, f *domain.MessageFile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f.ID = r.db.id()
	r.db.files[f.MessageID] = append(r.db.files[f.MessageID], f)
	return nil
}

func (r *memMessages) ListFiles(ctx context.Context, messageID int64) ([]*domain.MessageFile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.files[messageID], nil
}

type memReactions struct{ db *memDB }

func (r *memReactions) Create(ctx context.Context, rc *domain.Reaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rc.ID = r.db.id()
	rc.CreatedAt = time.Now()
	r.db.reactions[rc.ID] = rc
	return nil
}

func (r *memReactions) Get(ctx context.Context, messageID, userID int64, emoji string) (*domain.Reaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rc := range r.db.reactions {
		if rc.MessageID == messageID && rc.UserID == userID && rc.Emoji == emoji {
			return rc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memReactions) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.reactions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.reactions, id)
	return nil
}

func (r *memReactions) ListForMessage(ctx context.Context, messageID int64) ([]*domain.Reaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Reaction
	for _, rc := range r.db.reactions {
		if rc.MessageID == messageID {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memDMs struct{ db *memDB }

func (r *memDMs) Create(ctx context.Context, e *domain.DMEnvelope) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = r.db.id()
	e.CreatedAt = time.Now()
	r.db.dms[e.ID] = e
	return nil
}

func (r *memDMs) GetByID(ctx context.Context, id int64) (*domain.DMEnvelope, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if e, ok := r.db.dms[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memDMs) ListBetween(ctx context.Context, userA, userB int64, limit int) ([]*domain.DMEnvelope, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.DMEnvelope
	for _, e := range r.db.dms {
		if (e.SenderID == userA && e.RecipientID == userB) ||
			(e.SenderID == userB && e.RecipientID == userA) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memDMs) AddReaction(ctx context.Context, rc *domain.DMReaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rc.ID = r.db.id()
	rc.CreatedAt = time.Now()
	r.db.dmReactions[rc.ID] = rc
	return nil
}

func (r *memDMs) GetReaction(ctx context.Context, envelopeID, userID int64, emoji string) (*domain.DMReaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rc := range r.db.dmReactions {
		if rc.EnvelopeID == envelopeID && rc.UserID == userID && rc.Emoji == emoji {
			return rc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDMs) DeleteReaction(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.dmReactions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.dmReactions, id)
	return nil
}

func (r *memDMs) ListReactions(ctx context.Context, envelopeID int64) ([]*domain.DMReaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.DMReaction
	for _, rc := range r.db.dmReactions {
		if rc.EnvelopeID == envelopeID {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSessions struct{ db *memDB }

func (r *memSessions) Create(ctx context.Context, s *domain.DeviceSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = r.db.id()
	s.CreatedAt = time.Now()
	s.LastSeen = s.CreatedAt
	r.db.sessions[s.SessionID] = s
	return nil
}

func (r *memSessions) GetBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSessions) ListForUser(ctx context.Context, userID int64) ([]*domain.DeviceSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.DeviceSession
	for _, s := range r.db.sessions {
		if s.UserID == userID && !s.Revoked {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSessions) Touch(ctx context.Context, sessionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastSeen = time.Now()
	return nil
}

func (r *memSessions) Revoke(ctx context.Context, sessionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[sessionID]
	if !ok || s.Revoked {
		return domain.ErrNotFound
	}
	s.Revoked = true
	return nil
}

func (r *memSessions) RevokeAllForUser(ctx context.Context, userID int64, exceptSessionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sessions {
		if s.UserID == userID && s.SessionID != exceptSessionID {
			s.Revoked = true
		}
	}
	return nil
}

func (r *memSessions) RevokedAmong(ctx context.Context, sessionIDs []string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []string
	for _, sid := range sessionIDs {
		s, ok := r.db.sessions[sid]
		if !ok || s.Revoked {
			out = append(out, sid)
		}
	}
	return out, nil
}

type memPush struct{ db *memDB }

func (r *memPush) Upsert(ctx context.Context, s *domain.PushSubscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.UpdatedAt = time.Now()
	if existing, ok := r.db.pushSubs[s.UserID]; ok {
		s.ID = existing.ID
	} else {
		s.ID = r.db.id()
	}
	r.db.pushSubs[s.UserID] = s
	return nil
}

func (r *memPush) GetByUser(ctx context.Context, userID int64) (*domain.PushSubscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.pushSubs[userID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memPush) DeleteByUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.pushSubs[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.pushSubs, userID)
	return nil
}

// sentEvent captures one fan-out call.
type sentEvent struct {
	scope   string
	userID  int64
	userIDs []int64
	spaceID int64
	except  int64
	event   ws.Event
}

type fanoutRecorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fanoutRecorder) Everyone(event ws.Event) {
	f.record(sentEvent{scope: "everyone", event: event})
}

func (f *fanoutRecorder) User(userID int64, event ws.Event) {
	f.record(sentEvent{scope: "user", userID: userID, event: event})
}

func (f *fanoutRecorder) Users(userIDs []int64, event ws.Event) {
	f.record(sentEvent{scope: "users", userIDs: userIDs, event: event})
}

func (f *fanoutRecorder) Space(ctx context.Context, space *domain.Space, event ws.Event) error {
	f.record(sentEvent{scope: "space", spaceID: space.ID, event: event})
	return nil
}

func (f *fanoutRecorder) SpaceExcept(ctx context.Context, space *domain.Space, exceptUserID int64, event ws.Event) error {
	f.record(sentEvent{scope: "spaceExcept", spaceID: space.ID, except: exceptUserID, event: event})
	return nil
}

func (f *fanoutRecorder) record(e sentEvent) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fanoutRecorder) find(eventType string) *sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].event.Type == eventType {
			return &f.events[i]
		}
	}
	return nil
}

func (f *fanoutRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.event.Type)
	}
	return out
}

type sentNotification struct {
	userIDs      []int64
	notification push.Notification
}

type notifyRecorder struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *notifyRecorder) NotifyUser(ctx context.Context, userID int64, note push.Notification) {
	n.mu.Lock()
	n.sent = append(n.sent, sentNotification{userIDs: []int64{userID}, notification: note})
	n.mu.Unlock()
}

func (n *notifyRecorder) NotifyUsers(ctx context.Context, userIDs []int64, note push.Notification) {
	n.mu.Lock()
	n.sent = append(n.sent, sentNotification{userIDs: userIDs, notification: note})
	n.mu.Unlock()
}

func (n *notifyRecorder) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentNotification, len(n.sent))
	copy(out, n.sent)
	return out
}

type registryRecorder struct {
	mu              sync.Mutex
	revokedSessions []string
	revokedUsers    []int64
}

func (r *registryRecorder) RevokeSession(sessionID string) int {
	r.mu.Lock()
	r.revokedSessions = append(r.revokedSessions, sessionID)
	r.mu.Unlock()
	return 1
}

func (r *registryRecorder) RevokeUser(userID int64) int {
	r.mu.Lock()
	r.revokedUsers = append(r.revokedUsers, userID)
	r.mu.Unlock()
	return 1
}
