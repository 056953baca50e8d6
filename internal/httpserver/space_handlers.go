package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"fromchat/internal/domain"
	"fromchat/internal/service"
)

type createSpaceRequest struct {
	Name        string  `json:"name"`
	Handle      *string `json:"handle"`
	Access      string  `json:"access"`
	Description *string `json:"description"`
}

type createSpaceResponse struct {
	*domain.Space
	InviteToken *string `json:"invite_token,omitempty"`
}

func handleCreateSpace(spaceSvc *service.SpaceService, kind domain.SpaceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSpaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.Access == "" {
			req.Access = string(domain.AccessPublic)
		}
		space, err := spaceSvc.Create(r.Context(), CurrentUser(r), service.CreateSpaceInput{
			Kind:        kind,
			Name:        req.Name,
			Handle:      req.Handle,
			Access:      domain.AccessType(req.Access),
			Description: req.Description,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		// The creator gets the invite token back once; it is never listed.
		writeJSON(w, http.StatusCreated, createSpaceResponse{Space: space, InviteToken: space.InviteToken})
	}
}

func handleListPublicSpaces(spaceSvc *service.SpaceService, kind domain.SpaceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaces, err := spaceSvc.ListPublic(r.Context(), kind)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, spaces)
	}
}

func handleListMySpaces(spaceSvc *service.SpaceService, kind domain.SpaceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaces, err := spaceSvc.ListMine(r.Context(), CurrentUser(r).ID, kind)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, spaces)
	}
}

func handleGetSpace(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		space, err := spaceSvc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, space)
	}
}

type updateSpaceRequest struct {
	Name        *string `json:"name"`
	Handle      *string `json:"handle"`
	Description *string `json:"description"`
}

func handleUpdateSpace(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		var req updateSpaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		space, err := spaceSvc.Update(r.Context(), CurrentUser(r), id, service.UpdateSpaceInput{
			Name:        req.Name,
			Handle:      req.Handle,
			Description: req.Description,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, space)
	}
}

func handleDeleteSpace(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		if err := spaceSvc.Delete(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}
}

type joinRequest struct {
	InviteToken string `json:"invite_token"`
}

func handleJoinSpace(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		var req joinRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		space, err := spaceSvc.Join(r.Context(), CurrentUser(r), id, req.InviteToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, space)
	}
}

func handleJoinByInvite(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		space, err := spaceSvc.JoinByInvite(r.Context(), CurrentUser(r), pathString(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, space)
	}
}

func handleLeaveSpace(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		if err := spaceSvc.Leave(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "left"})
	}
}

func handleRegenerateInvite(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		token, err := spaceSvc.RegenerateInviteToken(r.Context(), CurrentUser(r), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"invite_token": token})
	}
}

func spaceAndUserIDs(w http.ResponseWriter, r *http.Request) (spaceID, userID int64, ok bool) {
	spaceID, ok = pathInt64(r, "spaceID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
		return 0, 0, false
	}
	userID, ok = pathInt64(r, "userID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, 0, false
	}
	return spaceID, userID, true
}

type banRequest struct {
	Until *time.Time `json:"until"`
}

func handleBan(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		var req banRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if err := spaceSvc.Ban(r.Context(), CurrentUser(r), spaceID, userID, req.Until); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "banned"})
	}
}

func handleUnban(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		if err := spaceSvc.Unban(r.Context(), CurrentUser(r), spaceID, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "unbanned"})
	}
}

type restrictRequest struct {
	CanSendMessages bool       `json:"can_send_messages"`
	CanSendImages   bool       `json:"can_send_images"`
	CanSendFiles    bool       `json:"can_send_files"`
	CanReact        bool       `json:"can_react"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

func handleRestrict(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		var req restrictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		err := spaceSvc.Restrict(r.Context(), CurrentUser(r), spaceID, userID, service.RestrictInput{
			CanSendMessages: req.CanSendMessages,
			CanSendImages:   req.CanSendImages,
			CanSendFiles:    req.CanSendFiles,
			CanReact:        req.CanReact,
			ExpiresAt:       req.ExpiresAt,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "restricted"})
	}
}

func handleUnrestrict(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		if err := spaceSvc.Unrestrict(r.Context(), CurrentUser(r), spaceID, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "restriction cleared"})
	}
}

func handleRemoveMember(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		if err := spaceSvc.RemoveMember(r.Context(), CurrentUser(r), spaceID, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
	}
}

type adminGrantRequest struct {
	Label             *string `json:"label"`
	CanSendMessages   bool    `json:"can_send_messages"`
	CanSendImages     bool    `json:"can_send_images"`
	CanSendFiles      bool    `json:"can_send_files"`
	CanDeleteMessages bool    `json:"can_delete_messages"`
	CanAssignAdmins   bool    `json:"can_assign_admins"`
	CanModifyProfile  bool    `json:"can_modify_profile"`
}

func handleAssignAdmin(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		var req adminGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		err := spaceSvc.AssignAdmin(r.Context(), CurrentUser(r), spaceID, userID, service.AdminGrantInput{
			Label:             req.Label,
			CanSendMessages:   req.CanSendMessages,
			CanSendImages:     req.CanSendImages,
			CanSendFiles:      req.CanSendFiles,
			CanDeleteMessages: req.CanDeleteMessages,
			CanAssignAdmins:   req.CanAssignAdmins,
			CanModifyProfile:  req.CanModifyProfile,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "admin assigned"})
	}
}

func handleRemoveAdmin(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, userID, ok := spaceAndUserIDs(w, r)
		if !ok {
			return
		}
		if err := spaceSvc.RemoveAdmin(r.Context(), CurrentUser(r), spaceID, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "admin removed"})
	}
}

type memberView struct {
	User        *domain.User        `json:"user"`
	Role        domain.Role         `json:"role"`
	IsBanned    bool                `json:"is_banned,omitempty"`
	BannedUntil *time.Time          `json:"banned_until,omitempty"`
	Admin       *domain.AdminGrant  `json:"admin,omitempty"`
	Restriction *domain.Restriction `json:"restriction,omitempty"`
	JoinedAt    time.Time           `json:"joined_at"`
}

func memberViews(details []*service.MemberDetail) []memberView {
	out := make([]memberView, 0, len(details))
	for _, d := range details {
		out = append(out, memberView{
			User:        d.User,
			Role:        d.Role,
			IsBanned:    d.IsBanned,
			BannedUntil: d.BannedUntil,
			Admin:       d.Admin,
			Restriction: d.Restriction,
			JoinedAt:    d.JoinedAt,
		})
	}
	return out
}

func handleListMembers(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		details, err := spaceSvc.ListMembers(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, memberViews(details))
	}
}

func handleListSubscribers(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		details, err := spaceSvc.ListSubscribers(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, memberViews(details))
	}
}

func handleSubscriberCount(spaceSvc *service.SpaceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		count, err := spaceSvc.SubscriberCount(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": count})
	}
}
