package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fromchat/internal/config"
	"fromchat/internal/contentfilter"
	"fromchat/internal/domain"
	"fromchat/internal/permissions"
	"fromchat/internal/push"
	"fromchat/internal/security"
	"fromchat/internal/service"
	"fromchat/internal/store/postgres"
	"fromchat/internal/store/sqlite"
	"fromchat/internal/ws"
)

// Repos is the full set of repositories behind the API, built for whichever
// database driver the config selects.
type Repos struct {
	Users        domain.UserRepository
	Spaces       domain.SpaceRepository
	Members      domain.MembershipRepository
	Subs         domain.SubscriptionRepository
	Admins       domain.AdminRepository
	Restrictions domain.RestrictionRepository
	Messages     domain.MessageRepository
	Reactions    domain.ReactionRepository
	DMs          domain.DMRepository
	Sessions     domain.SessionRepository
	Push         domain.PushRepository
}

// NewRepos constructs repositories for the given driver ("sqlite" or
// "postgres").
func NewRepos(driver string, db *sql.DB) Repos {
	if driver == "postgres" {
		return Repos{
			Users:        postgres.NewUserRepo(db),
			Spaces:       postgres.NewSpaceRepo(db),
			Members:      postgres.NewMembershipRepo(db),
			Subs:         postgres.NewSubscriptionRepo(db),
			Admins:       postgres.NewAdminRepo(db),
			Restrictions: postgres.NewRestrictionRepo(db),
			Messages:     postgres.NewMessageRepo(db),
			Reactions:    postgres.NewReactionRepo(db),
			DMs:          postgres.NewDMRepo(db),
			Sessions:     postgres.NewSessionRepo(db),
			Push:         postgres.NewPushRepo(db),
		}
	}
	return Repos{
		Users:        sqlite.NewUserRepo(db),
		Spaces:       sqlite.NewSpaceRepo(db),
		Members:      sqlite.NewMembershipRepo(db),
		Subs:         sqlite.NewSubscriptionRepo(db),
		Admins:       sqlite.NewAdminRepo(db),
		Restrictions: sqlite.NewRestrictionRepo(db),
		Messages:     sqlite.NewMessageRepo(db),
		Reactions:    sqlite.NewReactionRepo(db),
		DMs:          sqlite.NewDMRepo(db),
		Sessions:     sqlite.NewSessionRepo(db),
		Push:         sqlite.NewPushRepo(db),
	}
}

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware.
func NewRouter(cfg *config.Config, repos Repos, hub *ws.Hub, tokens *security.TokenService, hasher *security.PasswordHasher, sender push.Sender) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	checker := permissions.NewChecker(repos.Users, repos.Spaces, repos.Members, repos.Subs, repos.Admins, repos.Restrictions, repos.Messages)
	router := ws.NewRouter(hub, repos.Members, repos.Subs)

	var filter contentfilter.Filter = contentfilter.Noop{}
	if len(cfg.BannedWords) > 0 {
		filter = contentfilter.NewWordList(cfg.BannedWords)
	}

	pushSvc := service.NewPushService(repos.Push, sender)
	authSvc := service.NewAuthService(
		repos.Users, repos.Sessions, repos.Members, repos.Subs, repos.Admins,
		repos.Restrictions, repos.Push, repos.Spaces,
		checker, tokens, hasher, hub, cfg.OwnerUsername, cfg.RememberMeTTL())
	userSvc := service.NewUserService(repos.Users)
	spaceSvc := service.NewSpaceService(
		repos.Spaces, repos.Members, repos.Subs, repos.Admins, repos.Restrictions,
		repos.Users, checker, router)
	msgSvc := service.NewMessageService(
		repos.Spaces, repos.Messages, repos.Reactions, repos.Users,
		repos.Members, repos.Subs, checker, filter, router, pushSvc)
	dmSvc := service.NewDMService(repos.DMs, repos.Users, router, pushSvc)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "FromChat API", "version": "1.0.0"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens, repos.Users, repos.Sessions))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())
			r.Post("/auth/change-password", handleChangePassword(authSvc))
			r.Delete("/auth/account", handleDeleteAccount(authSvc))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userSvc))
				r.Get("/search", handleSearchUsers(userSvc))
				r.Patch("/me", handleUpdateProfile(userSvc))
				r.Get("/{username}", handleGetUser(userSvc))
			})

			r.Route("/groups", func(r chi.Router) {
				spaceRoutes(r, domain.SpaceGroup, spaceSvc, msgSvc)
				r.Post("/{spaceID}/members/{userID}/ban", handleBan(spaceSvc))
				r.Delete("/{spaceID}/members/{userID}/ban", handleUnban(spaceSvc))
				r.Put("/{spaceID}/members/{userID}/restriction", handleRestrict(spaceSvc))
				r.Delete("/{spaceID}/members/{userID}/restriction", handleUnrestrict(spaceSvc))
				r.Delete("/{spaceID}/members/{userID}", handleRemoveMember(spaceSvc))
				r.Get("/{spaceID}/members", handleListMembers(spaceSvc))
			})

			r.Route("/channels", func(r chi.Router) {
				spaceRoutes(r, domain.SpaceChannel, spaceSvc, msgSvc)
				r.Get("/{spaceID}/subscribers", handleListSubscribers(spaceSvc))
				r.Get("/{spaceID}/subscribers/count", handleSubscriberCount(spaceSvc))
			})

			r.Post("/invites/{token}/join", handleJoinByInvite(spaceSvc))

			r.Route("/dm", func(r chi.Router) {
				r.Post("/", handleSendDM(dmSvc))
				r.Get("/{userID}", handleListDMs(dmSvc))
				r.Post("/{envelopeID}/reactions", handleDMReaction(dmSvc))
			})

			r.Route("/push", func(r chi.Router) {
				r.Post("/subscribe", handlePushSubscribe(pushSvc))
				r.Post("/unsubscribe", handlePushUnsubscribe(pushSvc))
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", handleListSessions(authSvc))
				r.Delete("/{sessionID}", handleRevokeSession(authSvc))
			})
		})
	})

	r.Get("/ws", ws.MakeHandler(hub, router, tokens, repos.Users, repos.Spaces, repos.Sessions, checker, cfg.CORSOrigins))

	return r
}

// spaceRoutes mounts the routes shared by groups and channels.
func spaceRoutes(r chi.Router, kind domain.SpaceKind, spaceSvc *service.SpaceService, msgSvc *service.MessageService) {
	r.Post("/", handleCreateSpace(spaceSvc, kind))
	r.Get("/", handleListPublicSpaces(spaceSvc, kind))
	r.Get("/mine", handleListMySpaces(spaceSvc, kind))
	r.Get("/{spaceID}", handleGetSpace(spaceSvc))
	r.Patch("/{spaceID}", handleUpdateSpace(spaceSvc))
	r.Delete("/{spaceID}", handleDeleteSpace(spaceSvc))
	r.Post("/{spaceID}/join", handleJoinSpace(spaceSvc))
	r.Post("/{spaceID}/leave", handleLeaveSpace(spaceSvc))
	r.Post("/{spaceID}/invite-token", handleRegenerateInvite(spaceSvc))
	r.Put("/{spaceID}/admins/{userID}", handleAssignAdmin(spaceSvc))
	r.Delete("/{spaceID}/admins/{userID}", handleRemoveAdmin(spaceSvc))
	r.Get("/{spaceID}/messages", handleListMessages(msgSvc))
	r.Post("/{spaceID}/messages", handleSendMessage(msgSvc))
	r.Patch("/{spaceID}/messages/{messageID}", handleEditMessage(msgSvc))
	r.Delete("/{spaceID}/messages/{messageID}", handleDeleteMessage(msgSvc))
	r.Post("/{spaceID}/messages/{messageID}/reactions", handleToggleReaction(msgSvc))
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinel errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
