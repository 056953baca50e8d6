package httpserver

import (
	"encoding/json"
	"net/http"

	"fromchat/internal/service"
)

type pushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func handlePushSubscribe(pushSvc *service.PushService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pushSubscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		err := pushSvc.Subscribe(r.Context(), CurrentUser(r).ID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "subscribed"})
	}
}

func handlePushUnsubscribe(pushSvc *service.PushService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pushSvc.Unsubscribe(r.Context(), CurrentUser(r).ID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
	}
}
