package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mirutec/sage/internal/assistant"
	"github.com/mirutec/sage/internal/compose"
	"github.com/mirutec/sage/internal/log"
)

// maxChatBody caps chat request bodies.
const maxChatBody = 64 << 10 // 64 KiB

// ChatService runs one conversational turn.
type ChatService interface {
	Chat(ctx context.Context, message, sessionID string) assistant.TurnResult
}

// chatHandler serves POST /api/v1/chat.
type chatHandler struct {
	chat   ChatService
	logger log.Logger
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type chatResponse struct {
	Reply     string             `json:"reply"`
	SessionID string             `json:"sessionId"`
	Results   []compose.Citation `json:"results"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	res := h.chat.Chat(r.Context(), req.Message, req.SessionID)

	// Citations are never nil in the response so clients can range freely.
	results := res.Reply.Citations
	if results == nil {
		results = []compose.Citation{}
	}

	WriteJSON(w, http.StatusOK, chatResponse{
		Reply:     res.Reply.Text,
		SessionID: res.SessionID,
		Results:   results,
	}, h.logger)
}
