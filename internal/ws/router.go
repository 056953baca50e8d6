package ws

import (
	"context"

	"fromchat/internal/domain"
)

// Event is the payload shape pushed to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Router fans events out to live connections. Space-addressed events resolve
// the target users from current membership/subscription rows at send time,
// never from cached state, so fan-out always reflects the latest membership.
type Router struct {
	hub     *Hub
	members domain.MembershipRepository
	subs    domain.SubscriptionRepository
}

func NewRouter(hub *Hub, members domain.MembershipRepository, subs domain.SubscriptionRepository) *Router {
	return &Router{hub: hub, members: members, subs: subs}
}

// Everyone delivers the event to every live connection.
func (r *Router) Everyone(event Event) {
	r.deliver(r.hub.Conns(), event)
}

// User delivers the event to all of one user's connections.
func (r *Router) User(userID int64, event Event) {
	r.deliver(r.hub.ConnsFor(userID), event)
}

// Users delivers the event to each listed user's connections.
func (r *Router) Users(userIDs []int64, event Event) {
	for _, id := range userIDs {
		r.deliver(r.hub.ConnsFor(id), event)
	}
}

// Space delivers the event to every current member (group) or subscriber
// (channel) of the space.
func (r *Router) Space(ctx context.Context, space *domain.Space, event Event) error {
	ids, err := r.spaceUserIDs(ctx, space)
	if err != nil {
		return err
	}
	r.Users(ids, event)
	return nil
}

// SpaceExcept is Space minus one user, typically the actor who triggered the
// mutation when they are updated on the request path instead.
func (r *Router) SpaceExcept(ctx context.Context, space *domain.Space, exceptUserID int64, event Event) error {
	ids, err := r.spaceUserIDs(ctx, space)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != exceptUserID {
			filtered = append(filtered, id)
		}
	}
	r.Users(filtered, event)
	return nil
}

func (r *Router) spaceUserIDs(ctx context.Context, space *domain.Space) ([]int64, error) {
	if space.Kind == domain.SpaceChannel {
		return r.subs.SubscriberIDs(ctx, space.ID)
	}
	return r.members.MemberIDs(ctx, space.ID)
}

// deliver queues the event on each connection. A connection that cannot
// accept (queue full or already stopping) is dropped; delivery to the others
// continues regardless.
func (r *Router) deliver(conns []*Conn, event Event) {
	for _, c := range conns {
		if !c.Send(event) {
			r.hub.Unregister(c)
		}
	}
}
