package httpserver

import (
	"encoding/json"
	"net/http"

	"fromchat/internal/service"
)

func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleSearchUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleGetUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := userSvc.GetByUsername(r.Context(), pathString(r, "username"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

type updateProfileRequest struct {
	DisplayName    *string `json:"display_name"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		user := CurrentUser(r)
		err := userSvc.UpdateProfile(r.Context(), user, service.UpdateProfileInput{
			DisplayName:    req.DisplayName,
			Bio:            req.Bio,
			ProfilePicture: req.ProfilePicture,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
