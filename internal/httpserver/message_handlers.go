package httpserver

import (
	"encoding/json"
	"net/http"

	"fromchat/internal/service"
)

type sendMessageRequest struct {
	Content   string `json:"content"`
	ReplyToID *int64 `json:"reply_to_id"`
	Files     []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"files"`
}

func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		in := service.SendMessageInput{
			Content:   req.Content,
			ReplyToID: req.ReplyToID,
		}
		for _, f := range req.Files {
			in.Files = append(in.Files, service.FileInput{Name: f.Name, Path: f.Path})
		}
		view, err := msgSvc.Send(r.Context(), CurrentUser(r), spaceID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		views, err := msgSvc.List(r.Context(), CurrentUser(r), spaceID, queryInt(r, "limit", 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func handleEditMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, ok := pathInt64(r, "messageID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		var req editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		view, err := msgSvc.Edit(r.Context(), CurrentUser(r), messageID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleDeleteMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		messageID, ok := pathInt64(r, "messageID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		if err := msgSvc.Delete(r.Context(), CurrentUser(r), spaceID, messageID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

func handleToggleReaction(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID, ok := pathInt64(r, "spaceID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid space id"})
			return
		}
		messageID, ok := pathInt64(r, "messageID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		views, err := msgSvc.ToggleReaction(r.Context(), CurrentUser(r), spaceID, messageID, req.Emoji)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reactions": views})
	}
}
