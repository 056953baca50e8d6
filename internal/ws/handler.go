package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/security"
)

const readWait = 60 * time.Second

func normalizeOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return false }
	}
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		_, ok := allowed[strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))]
		return ok
	}
}

// extractToken pulls the bearer token from the Authorization header or, for
// browser clients that cannot set headers on WebSocket requests, from the
// Sec-WebSocket-Protocol list ("bearer, <token>").
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}
	if protocolHeader := r.Header.Get("Sec-WebSocket-Protocol"); protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return ""
}

// MakeHandler returns the /ws endpoint. It authenticates the bearer token,
// rejects revoked sessions and deleted accounts, registers the connection
// with the hub, and then serves inbound events:
//   - typing                                            -> relay to the space's other members
//   - call_offer/call_answer/ice_candidate/call_end/
//     call_rejected                                     -> relay to the target user
func MakeHandler(
	hub *Hub,
	router *Router,
	tokens *security.TokenService,
	users domain.UserRepository,
	spaces domain.SpaceRepository,
	sessions domain.SessionRepository,
	checker *permissions.Checker,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin:  checkOrigin,
		Subprotocols: []string{"bearer"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.Parse(tokenStr)
		if err != nil || claims.Username == "" || claims.SessionID == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		sess, err := sessions.GetBySessionID(ctx, claims.SessionID)
		if err != nil || sess.Revoked {
			http.Error(w, "session revoked", http.StatusUnauthorized)
			return
		}
		user, err := users.GetByUsername(ctx, claims.Username)
		if err != nil || user.Deleted {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		conn := NewConn(sock, user.ID, claims.SessionID)
		first := hub.Register(conn)
		if first {
			if err := users.SetOnlineStatus(ctx, user.ID, true); err != nil {
				log.Printf("ws: set online for %d: %v", user.ID, err)
			}
			router.Everyone(Event{Type: "user_online", Data: map[string]any{
				"user_id":  user.ID,
				"username": user.Username,
			}})
		}
		defer func() {
			removed, last := hub.Unregister(conn)
			if removed && last {
				if err := users.SetOnlineStatus(context.Background(), user.ID, false); err != nil {
					log.Printf("ws: set offline for %d: %v", user.ID, err)
				}
				router.Everyone(Event{Type: "user_offline", Data: map[string]any{
					"user_id":  user.ID,
					"username": user.Username,
				}})
			}
		}()

		_ = sock.SetReadDeadline(time.Now().Add(readWait))
		sock.SetPongHandler(func(string) error {
			return sock.SetReadDeadline(time.Now().Add(readWait))
		})

		for {
			var payload map[string]any
			if err := sock.ReadJSON(&payload); err != nil {
				return
			}
			_ = sock.SetReadDeadline(time.Now().Add(readWait))
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "typing":
				spaceIDf, _ := payload["space_id"].(float64)
				if spaceIDf == 0 {
					continue
				}
				space, err := spaces.GetByID(ctx, int64(spaceIDf))
				if err != nil {
					continue
				}
				ok, err := memberOrSubscriber(ctx, checker, space, user.ID)
				if err != nil || !ok {
					continue
				}
				if err := router.SpaceExcept(ctx, space, user.ID, Event{Type: "typing", Data: map[string]any{
					"space_id": space.ID,
					"user_id":  user.ID,
					"username": user.Username,
				}}); err != nil {
					log.Printf("ws: typing relay: %v", err)
				}

			case "call_offer", "call_answer", "ice_candidate", "call_end", "call_rejected":
				targetIDf, _ := payload["target_user_id"].(float64)
				if targetIDf == 0 {
					continue
				}
				data := map[string]any{
					"sender_id":       user.ID,
					"sender_username": user.Username,
					"target_user_id":  int64(targetIDf),
				}
				if sdp, ok := payload["sdp"]; ok {
					data["sdp"] = sdp
				}
				if candidate, ok := payload["candidate"]; ok {
					data["candidate"] = candidate
				}
				router.User(int64(targetIDf), Event{Type: msgType, Data: data})

			default:
				log.Printf("ws: unknown event type %q from user %d", msgType, user.ID)
			}
		}
	}
}

func memberOrSubscriber(ctx context.Context, checker *permissions.Checker, space *domain.Space, userID int64) (bool, error) {
	if space.Kind == domain.SpaceChannel {
		return checker.IsSubscribed(ctx, space, userID)
	}
	return checker.IsMember(ctx, space, userID)
}
