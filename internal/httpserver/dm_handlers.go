package httpserver

import (
	"encoding/json"
	"net/http"

	"fromchat/internal/service"
)

type sendDMRequest struct {
	RecipientID int64  `json:"recipient_id"`
	IV          string `json:"iv"`
	Ciphertext  string `json:"ciphertext"`
	Salt        string `json:"salt"`
	IV2         string `json:"iv2"`
	WrappedKey  string `json:"wrapped_key"`
	ReplyToID   *int64 `json:"reply_to_id"`
}

func handleSendDM(dmSvc *service.DMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendDMRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		view, err := dmSvc.Send(r.Context(), CurrentUser(r), service.SendDMInput{
			RecipientID: req.RecipientID,
			IV:          req.IV,
			Ciphertext:  req.Ciphertext,
			Salt:        req.Salt,
			IV2:         req.IV2,
			WrappedKey:  req.WrappedKey,
			ReplyToID:   req.ReplyToID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func handleListDMs(dmSvc *service.DMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID, ok := pathInt64(r, "userID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		views, err := dmSvc.ListWith(r.Context(), CurrentUser(r), peerID, queryInt(r, "limit", 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handleDMReaction(dmSvc *service.DMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelopeID, ok := pathInt64(r, "envelopeID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid envelope id"})
			return
		}
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		views, err := dmSvc.ToggleReaction(r.Context(), CurrentUser(r), envelopeID, req.Emoji)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reactions": views})
	}
}
