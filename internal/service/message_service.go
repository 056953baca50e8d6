package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fromchat/internal/contentfilter"
	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/push"
	"fromchat/internal/ws"
)

const (
	maxMessageLen   = 4096
	defaultPageSize = 100
	notifyBodyLimit = 120
)

// Notifier is the slice of the push service the message paths use.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, n push.Notification)
	NotifyUsers(ctx context.Context, userIDs []int64, n push.Notification)
}

// AuthorView is the message author as rendered to clients.
type AuthorView struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"display_name"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Deleted        bool    `json:"deleted,omitempty"`
}

// ReactionView aggregates one emoji on one message. For channels the user
// list stays empty; only the count is public.
type ReactionView struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ReplyPreview is the one-hop rendering of the message being replied to.
type ReplyPreview struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// MessageView is a message as rendered to clients and carried in fan-out
// events.
type MessageView struct {
	ID        int64                 `json:"id"`
	SpaceID   int64                 `json:"space_id"`
	Content   string                `json:"content"`
	CreatedAt time.Time             `json:"created_at"`
	IsEdited  bool                  `json:"is_edited"`
	Author    AuthorView            `json:"author"`
	ReplyTo   *ReplyPreview         `json:"reply_to,omitempty"`
	Files     []*domain.MessageFile `json:"files,omitempty"`
	Reactions []ReactionView        `json:"reactions"`
}

// MessageService persists messages and fans them out.
type MessageService struct {
	spaces    domain.SpaceRepository
	messages  domain.MessageRepository
	reactions domain.ReactionRepository
	users     domain.UserRepository
	members   domain.MembershipRepository
	subs      domain.SubscriptionRepository
	checker   *permissions.Checker
	filter    contentfilter.Filter
	router    Broadcaster
	notifier  Notifier
}

func NewMessageService(
	spaces domain.SpaceRepository,
	messages domain.MessageRepository,
	reactions domain.ReactionRepository,
	users domain.UserRepository,
	members domain.MembershipRepository,
	subs domain.SubscriptionRepository,
	checker *permissions.Checker,
	filter contentfilter.Filter,
	router Broadcaster,
	notifier Notifier,
) *MessageService {
	return &MessageService{
		spaces:    spaces,
		messages:  messages,
		reactions: reactions,
		users:     users,
		members:   members,
		subs:      subs,
		checker:   checker,
		filter:    filter,
		router:    router,
		notifier:  notifier,
	}
}

type FileInput struct {
	Name string
	Path string
}

type SendMessageInput struct {
	Content   string
	ReplyToID *int64
	Files     []FileInput
}

func (s *MessageService) Send(ctx context.Context, author *domain.User, spaceID int64, in SendMessageInput) (*MessageView, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	decision, err := s.checker.CanSend(ctx, space, author.ID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, decision.Reason)
	}

	content := strings.TrimSpace(s.filter.Filter(in.Content))
	if content == "" && len(in.Files) == 0 {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, maxMessageLen)
	}

	if in.ReplyToID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ReplyToID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: reply target not found", domain.ErrInvalidInput)
		}
		if err != nil {
			return nil, err
		}
		if parent.SpaceID != space.ID {
			return nil, fmt.Errorf("%w: reply target belongs to another space", domain.ErrInvalidInput)
		}
	}

	msg := &domain.Message{
		SpaceID:   space.ID,
		AuthorID:  author.ID,
		Content:   content,
		ReplyToID: in.ReplyToID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	for _, f := range in.Files {
		err := s.messages.AddFile(ctx, &domain.MessageFile{
			MessageID: msg.ID,
			Name:      f.Name,
			Path:      f.Path,
		})
		if err != nil {
			return nil, err
		}
	}

	view, err := s.render(ctx, space, msg)
	if err != nil {
		return nil, err
	}

	_ = s.router.Space(ctx, space, ws.Event{Type: messageEvent(space.Kind, "New"), Data: view})
	s.notifyNewMessage(ctx, space, author, content)
	return view, nil
}

func (s *MessageService) notifyNewMessage(ctx context.Context, space *domain.Space, author *domain.User, content string) {
	recipients, err := s.spaceRecipients(ctx, space, author.ID)
	if err != nil {
		return
	}
	body := author.DisplayName + ": " + content
	if r := []rune(body); len(r) > notifyBodyLimit {
		body = string(r[:notifyBodyLimit]) + "…"
	}
	s.notifier.NotifyUsers(ctx, recipients, push.Notification{
		Title: space.Name,
		Body:  body,
		Tag:   fmt.Sprintf("space-%d", space.ID),
		Data: map[string]any{
			"space_id": space.ID,
			"kind":     string(space.Kind),
		},
	})
}

func (s *MessageService) spaceRecipients(ctx context.Context, space *domain.Space, exceptUserID int64) ([]int64, error) {
	var (
		ids []int64
		err error
	)
	if space.Kind == domain.SpaceChannel {
		ids, err = s.subs.SubscriberIDs(ctx, space.ID)
	} else {
		ids, err = s.members.MemberIDs(ctx, space.ID)
	}
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != exceptUserID {
			out = append(out, id)
		}
	}
	return out, nil
}

// List returns up to limit recent messages of a space, newest last. The
// viewer must belong to the space.
func (s *MessageService) List(ctx context.Context, viewer *domain.User, spaceID int64, limit int) ([]*MessageView, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, space, viewer.ID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultPageSize
	}
	msgs, err := s.messages.ListForSpace(ctx, space.ID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		view, err := s.render(ctx, space, m)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *MessageService) requireAccess(ctx context.Context, space *domain.Space, userID int64) error {
	var (
		ok  bool
		err error
	)
	if space.Kind == domain.SpaceChannel {
		ok, err = s.checker.IsSubscribed(ctx, space, userID)
	} else {
		ok, err = s.checker.IsMember(ctx, space, userID)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no access to this %s", domain.ErrForbidden, space.Kind)
	}
	return nil
}

// Edit replaces a message's content. Author only.
func (s *MessageService) Edit(ctx context.Context, actor *domain.User, messageID int64, content string) (*MessageView, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actor.ID {
		return nil, fmt.Errorf("%w: only the author can edit a message", domain.ErrForbidden)
	}
	space, err := s.spaces.GetByID(ctx, msg.SpaceID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(s.filter.Filter(content))
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, maxMessageLen)
	}

	msg.Content = content
	msg.IsEdited = true
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}

	view, err := s.render(ctx, space, msg)
	if err != nil {
		return nil, err
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: messageEvent(space.Kind, "MessageEdited"), Data: view})
	return view, nil
}

// Delete removes a message after a capability check: author, owner, or an
// admin holding the delete right.
func (s *MessageService) Delete(ctx context.Context, actor *domain.User, spaceID, messageID int64) error {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	decision, err := s.checker.CanDelete(ctx, space, messageID, actor.ID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, decision.Reason)
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}
	idKey := "group_id"
	if space.Kind == domain.SpaceChannel {
		idKey = "channel_id"
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: messageEvent(space.Kind, "MessageDeleted"), Data: map[string]any{
		"message_id": messageID,
		idKey:        space.ID,
	}})
	return nil
}

// ToggleReaction adds the (message, user, emoji) reaction, or removes it if
// it already exists. The fan-out carries the refreshed aggregate.
func (s *MessageService) ToggleReaction(ctx context.Context, actor *domain.User, spaceID, messageID int64, emoji string) ([]ReactionView, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", domain.ErrInvalidInput)
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SpaceID != space.ID {
		return nil, fmt.Errorf("%w: message does not belong to this space", domain.ErrInvalidInput)
	}

	ok, err := s.checker.CanReact(ctx, space, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: not allowed to react here", domain.ErrForbidden)
	}

	existing, err := s.reactions.Get(ctx, messageID, actor.ID, emoji)
	switch {
	case err == nil:
		if err := s.reactions.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrNotFound):
		err := s.reactions.Create(ctx, &domain.Reaction{
			MessageID: messageID,
			UserID:    actor.ID,
			Emoji:     emoji,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	views, err := s.renderReactions(ctx, space, messageID)
	if err != nil {
		return nil, err
	}
	idKey := "group_id"
	if space.Kind == domain.SpaceChannel {
		idKey = "channel_id"
	}
	_ = s.router.Space(ctx, space, ws.Event{Type: messageEvent(space.Kind, "ReactionUpdate"), Data: map[string]any{
		"message_id": messageID,
		idKey:        space.ID,
		"reactions":  views,
	}})
	return views, nil
}

func messageEvent(kind domain.SpaceKind, suffix string) string {
	if kind == domain.SpaceChannel {
		return "channel" + suffix
	}
	return "group" + suffix
}

func (s *MessageService) render(ctx context.Context, space *domain.Space, msg *domain.Message) (*MessageView, error) {
	author, err := s.users.GetByID(ctx, msg.AuthorID)
	if err != nil {
		return nil, err
	}
	view := &MessageView{
		ID:        msg.ID,
		SpaceID:   msg.SpaceID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		IsEdited:  msg.IsEdited,
		Author: AuthorView{
			ID:             author.ID,
			Username:       author.Username,
			DisplayName:    author.DisplayName,
			ProfilePicture: author.ProfilePicture,
			Deleted:        author.Deleted,
		},
	}

	if msg.ReplyToID != nil {
		// One hop only: the preview itself never resolves its own reply.
		parent, err := s.messages.GetByID(ctx, *msg.ReplyToID)
		if err == nil {
			parentAuthor, err := s.users.GetByID(ctx, parent.AuthorID)
			if err == nil {
				view.ReplyTo = &ReplyPreview{
					ID:      parent.ID,
					Author:  parentAuthor.DisplayName,
					Content: parent.Content,
				}
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	files, err := s.messages.ListFiles(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	view.Files = files

	reactions, err := s.renderReactions(ctx, space, msg.ID)
	if err != nil {
		return nil, err
	}
	view.Reactions = reactions
	return view, nil
}

// renderReactions aggregates reactions per emoji. Group reactions name the
// reacting users; channel reactions are anonymous counts.
func (s *MessageService) renderReactions(ctx context.Context, space *domain.Space, messageID int64) ([]ReactionView, error) {
	rows, err := s.reactions.ListForMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byEmoji := make(map[string]*ReactionView)
	for _, r := range rows {
		view, ok := byEmoji[r.Emoji]
		if !ok {
			view = &ReactionView{Emoji: r.Emoji, Users: []string{}}
			byEmoji[r.Emoji] = view
			order = append(order, r.Emoji)
		}
		view.Count++
		if space.Kind == domain.SpaceGroup {
			if u, err := s.users.GetByID(ctx, r.UserID); err == nil {
				view.Users = append(view.Users, u.Username)
			}
		}
	}
	out := make([]ReactionView, 0, len(order))
	for _, emoji := range order {
		out = append(out, *byEmoji[emoji])
	}
	return out, nil
}
