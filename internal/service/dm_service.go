package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fromchat/internal/domain"
	"fromchat/internal/push"
	"fromchat/internal/ws"
)

// DMView is an envelope as rendered to the two participants. The payload
// fields stay opaque; the server never decrypts them.
type DMView struct {
	ID          int64          `json:"id"`
	SenderID    int64          `json:"sender_id"`
	RecipientID int64          `json:"recipient_id"`
	IV          string         `json:"iv"`
	Ciphertext  string         `json:"ciphertext"`
	Salt        string         `json:"salt"`
	IV2         string         `json:"iv2"`
	WrappedKey  string         `json:"wrapped_key"`
	ReplyToID   *int64         `json:"reply_to_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Reactions   []ReactionView `json:"reactions"`
}

// DMService stores and relays end-to-end encrypted direct messages.
type DMService struct {
	dms      domain.DMRepository
	users    domain.UserRepository
	router   Broadcaster
	notifier Notifier
}

func NewDMService(dms domain.DMRepository, users domain.UserRepository, router Broadcaster, notifier Notifier) *DMService {
	return &DMService{dms: dms, users: users, router: router, notifier: notifier}
}

type SendDMInput struct {
	RecipientID int64
	IV          string
	Ciphertext  string
	Salt        string
	IV2         string
	WrappedKey  string
	ReplyToID   *int64
}

func (s *DMService) Send(ctx context.Context, sender *domain.User, in SendDMInput) (*DMView, error) {
	if in.IV == "" || in.Ciphertext == "" || in.Salt == "" || in.IV2 == "" || in.WrappedKey == "" {
		return nil, fmt.Errorf("%w: incomplete envelope", domain.ErrInvalidInput)
	}
	if in.RecipientID == sender.ID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}
	recipient, err := s.users.GetByID(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient.Deleted {
		return nil, fmt.Errorf("%w: recipient no longer exists", domain.ErrNotFound)
	}

	if in.ReplyToID != nil {
		parent, err := s.dms.GetByID(ctx, *in.ReplyToID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: reply target not found", domain.ErrInvalidInput)
		}
		if err != nil {
			return nil, err
		}
		if !participants(parent, sender.ID, recipient.ID) {
			return nil, fmt.Errorf("%w: reply target belongs to another conversation", domain.ErrInvalidInput)
		}
	}

	env := &domain.DMEnvelope{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		IV:          in.IV,
		Ciphertext:  in.Ciphertext,
		Salt:        in.Salt,
		IV2:         in.IV2,
		WrappedKey:  in.WrappedKey,
		ReplyToID:   in.ReplyToID,
	}
	if err := s.dms.Create(ctx, env); err != nil {
		return nil, err
	}

	view := renderDM(env)
	s.router.Users([]int64{sender.ID, recipient.ID}, ws.Event{Type: "dmNew", Data: view})

	// The body stays generic: the server cannot read the ciphertext.
	s.notifier.NotifyUser(ctx, recipient.ID, push.Notification{
		Title: sender.DisplayName,
		Body:  "New message",
		Tag:   fmt.Sprintf("dm-%d", sender.ID),
		Data: map[string]any{
			"sender_id": sender.ID,
		},
	})
	return view, nil
}

// ListWith returns up to limit envelopes between the user and a peer,
// newest last, with reactions rendered.
func (s *DMService) ListWith(ctx context.Context, user *domain.User, peerID int64, limit int) ([]*DMView, error) {
	if _, err := s.users.GetByID(ctx, peerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultPageSize
	}
	envs, err := s.dms.ListBetween(ctx, user.ID, peerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*DMView, 0, len(envs))
	for _, env := range envs {
		view := renderDM(env)
		view.Reactions, err = s.renderDMReactions(ctx, env.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// ToggleReaction toggles the (envelope, user, emoji) reaction. Participants
// only; both sides get the refreshed aggregate.
func (s *DMService) ToggleReaction(ctx context.Context, actor *domain.User, envelopeID int64, emoji string) ([]ReactionView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", domain.ErrInvalidInput)
	}
	env, err := s.dms.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if env.SenderID != actor.ID && env.RecipientID != actor.ID {
		return nil, fmt.Errorf("%w: not part of this conversation", domain.ErrForbidden)
	}

	existing, err := s.dms.GetReaction(ctx, envelopeID, actor.ID, emoji)
	switch {
	case err == nil:
		if err := s.dms.DeleteReaction(ctx, existing.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrNotFound):
		err := s.dms.AddReaction(ctx, &domain.DMReaction{
			EnvelopeID: envelopeID,
			UserID:     actor.ID,
			Emoji:      emoji,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	views, err := s.renderDMReactions(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	s.router.Users([]int64{env.SenderID, env.RecipientID}, ws.Event{Type: "dmReactionUpdate", Data: map[string]any{
		"envelope_id": envelopeID,
		"reactions":   views,
	}})
	return views, nil
}

func (s *DMService) renderDMReactions(ctx context.Context, envelopeID int64) ([]ReactionView, error) {
	rows, err := s.dms.ListReactions(ctx, envelopeID)
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
		if u, err := s.users.GetByID(ctx, r.UserID); err == nil {
			view.Users = append(view.Users, u.Username)
		}
	}
	out := make([]ReactionView, 0, len(order))
	for _, emoji := range order {
		out = append(out, *byEmoji[emoji])
	}
	return out, nil
}

func renderDM(env *domain.DMEnvelope) *DMView {
	return &DMView{
		ID:          env.ID,
		SenderID:    env.SenderID,
		RecipientID: env.RecipientID,
		IV:          env.IV,
		Ciphertext:  env.Ciphertext,
		Salt:        env.Salt,
		IV2:         env.IV2,
		WrappedKey:  env.WrappedKey,
		ReplyToID:   env.ReplyToID,
		CreatedAt:   env.CreatedAt,
		Reactions:   []ReactionView{},
	}
}

func participants(env *domain.DMEnvelope, a, b int64) bool {
	return (env.SenderID == a && env.RecipientID == b) || (env.SenderID == b && env.RecipientID == a)
}
