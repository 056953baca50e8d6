package httpserver

import (
	"encoding/json"
	"net/http"

	"fromchat/internal/service"
)

type registerRequest struct {
	Username        string  `json:"username"`
	DisplayName     string  `json:"display_name"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	DeviceName      *string `json:"device_name"`
}

type loginRequest struct {
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	RememberMe bool    `json:"remember_me"`
	DeviceName *string `json:"device_name"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	SessionID   string `json:"session_id"`
	User        any    `json:"user"`
}

func userAgent(r *http.Request) *string {
	if ua := r.UserAgent(); ua != "" {
		return &ua
	}
	return nil
}

func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		resp, err := authSvc.Register(r.Context(), service.RegisterInput{
			Username:        req.Username,
			DisplayName:     req.DisplayName,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
			DeviceName:      req.DeviceName,
			UserAgent:       userAgent(r),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			SessionID:   resp.SessionID,
			User:        resp.User,
		})
	}
}

func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Username:   req.Username,
			Password:   req.Password,
			RememberMe: req.RememberMe,
			DeviceName: req.DeviceName,
			UserAgent:  userAgent(r),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			SessionID:   resp.SessionID,
			User:        resp.User,
		})
	}
}

func handleLogout(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if err := authSvc.Logout(r.Context(), user.ID, CurrentSessionID(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r))
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	LogoutOthers    bool   `json:"logout_others"`
}

func handleChangePassword(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		err := authSvc.ChangePassword(r.Context(), CurrentUser(r),
			req.CurrentPassword, req.NewPassword, req.LogoutOthers, CurrentSessionID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
	}
}

func handleDeleteAccount(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authSvc.DeleteAccount(r.Context(), CurrentUser(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
	}
}

func handleListSessions(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := authSvc.ListSessions(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		current := CurrentSessionID(r)
		type sessionView struct {
			SessionID  string  `json:"session_id"`
			DeviceName *string `json:"device_name"`
			UserAgent  *string `json:"user_agent"`
			CreatedAt  string  `json:"created_at"`
			LastSeen   string  `json:"last_seen"`
			Current    bool    `json:"current"`
		}
		out := make([]sessionView, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionView{
				SessionID:  s.SessionID,
				DeviceName: s.DeviceName,
				UserAgent:  s.UserAgent,
				CreatedAt:  s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
				LastSeen:   s.LastSeen.UTC().Format("2006-01-02T15:04:05Z07:00"),
				Current:    s.SessionID == current,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleRevokeSession(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := pathString(r, "sessionID")
		if err := authSvc.RevokeSession(r.Context(), CurrentUser(r).ID, sessionID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
	}
}
