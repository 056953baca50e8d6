package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"fromchat/internal/domain"
)

// Janitor is the background loop that keeps the registry and persisted
// presence honest: it pings connections and drops dead ones, flips the
// stored online flag for users who have been connectionless past a grace
// period, and closes connections whose device session was revoked out of
// band (logout elsewhere, password change, suspicious-session invalidation).
type Janitor struct {
	hub      *Hub
	users    domain.UserRepository
	sessions domain.SessionRepository

	interval time.Duration
	pingWait time.Duration
	grace    time.Duration

	once sync.Once

	// users currently online in storage but absent from the registry, with
	// the time they were first noticed missing.
	missingSince map[int64]time.Time
}

func NewJanitor(hub *Hub, users domain.UserRepository, sessions domain.SessionRepository, interval, grace time.Duration) *Janitor {
	return &Janitor{
		hub:          hub,
		users:        users,
		sessions:     sessions,
		interval:     interval,
		pingWait:     5 * time.Second,
		grace:        grace,
		missingSince: make(map[int64]time.Time),
	}
}

// Start launches the loop. Safe to call more than once; only the first call
// starts anything. The loop exits when ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.once.Do(func() {
		go j.run(ctx)
	})
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// sweep runs one janitor pass. Failures are isolated per connection and per
// user: one broken socket or one failed row update never aborts the pass.
func (j *Janitor) sweep(ctx context.Context) {
	j.pruneDead()
	j.sweepRevoked(ctx)
	j.reconcilePresence(ctx)
}

func (j *Janitor) pruneDead() {
	deadline := time.Now().Add(j.pingWait)
	for _, c := range j.hub.Conns() {
		if err := c.Ping(deadline); err != nil {
			log.Printf("janitor: dropping dead connection user=%d: %v", c.UserID, err)
			j.hub.Unregister(c)
		}
	}
}

func (j *Janitor) sweepRevoked(ctx context.Context) {
	live := j.hub.SessionIDs()
	if len(live) == 0 {
		return
	}
	revoked, err := j.sessions.RevokedAmong(ctx, live)
	if err != nil {
		log.Printf("janitor: list revoked sessions: %v", err)
		return
	}
	for _, sid := range revoked {
		if n := j.hub.RevokeSession(sid); n > 0 {
			log.Printf("janitor: closed %d connection(s) for revoked session %s", n, sid)
		}
	}
}

func (j *Janitor) reconcilePresence(ctx context.Context) {
	online, err := j.users.ListOnline(ctx)
	if err != nil {
		log.Printf("janitor: list online users: %v", err)
		return
	}
	now := time.Now()
	seen := make(map[int64]struct{}, len(online))
	for _, u := range online {
		seen[u.ID] = struct{}{}
		if j.hub.IsOnline(u.ID) {
			delete(j.missingSince, u.ID)
			continue
		}
		since, ok := j.missingSince[u.ID]
		if !ok {
			j.missingSince[u.ID] = now
			continue
		}
		if now.Sub(since) < j.grace {
			continue
		}
		if err := j.users.SetOnlineStatus(ctx, u.ID, false); err != nil {
			log.Printf("janitor: mark user %d offline: %v", u.ID, err)
			continue
		}
		delete(j.missingSince, u.ID)
	}
	// Forget users that went offline through the normal disconnect path.
	for id := range j.missingSince {
		if _, ok := seen[id]; !ok {
			delete(j.missingSince, id)
		}
	}
}
