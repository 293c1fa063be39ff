package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mirutec/sage/internal/feedback"
	"github.com/mirutec/sage/internal/log"
)

const maxFeedbackBody = 64 << 10

// FeedbackService records ratings and reports aggregates.
type FeedbackService interface {
	Submit(ctx context.Context, sessionID, userMessage, botResponse string, rating int, comment string, entryIDs []string) (feedback.Record, error)
	SubmitSession(ctx context.Context, sessionID string, rating int, comment string, messageCount int) (feedback.Record, error)
	Stats() feedback.Stats
}

// feedbackNote is the free-text comment on a turn rating. Older clients send
// the field as a thumbs up/down boolean instead of text, so both shapes
// decode: booleans map onto "positive"/"negative".
type feedbackNote string

func (n *feedbackNote) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = feedbackNote(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return errors.New("feedback must be a string or a boolean")
	}
	if b {
		*n = "positive"
	} else {
		*n = "negative"
	}
	return nil
}

// ProvenanceResolver maps a rated response back to the knowledge entries that
// produced it.
type ProvenanceResolver interface {
	Provenance(sessionID, botResponse string) []string
}

// feedbackHandler serves the feedback endpoints.
type feedbackHandler struct {
	store      FeedbackService
	provenance ProvenanceResolver
	logger     log.Logger
}

type feedbackRequest struct {
	SessionID   string       `json:"sessionId"`
	UserMessage string       `json:"userMessage"`
	BotResponse string       `json:"botResponse"`
	Rating      int          `json:"rating"`
	Feedback    feedbackNote `json:"feedback"`
}

type sessionFeedbackRequest struct {
	SessionID    string `json:"sessionId"`
	Rating       int    `json:"rating"`
	Feedback     string `json:"feedback"`
	MessageCount int    `json:"messageCount"`
}

type feedbackResponse struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedbackId"`
}

// submit handles POST /api/v1/feedback: one rating for one assistant
// response. The rated response is resolved to its source entries so the
// rating can move their weights.
func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFeedbackBody)

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SessionID == "" {
		WriteError(w, http.StatusBadRequest, "missing_session", "sessionId is required", h.logger)
		return
	}

	var entryIDs []string
	if h.provenance != nil {
		entryIDs = h.provenance.Provenance(req.SessionID, req.BotResponse)
	}

	rec, err := h.store.Submit(r.Context(), req.SessionID, req.UserMessage, req.BotResponse, req.Rating, string(req.Feedback), entryIDs)
	if err != nil {
		if errors.Is(err, feedback.ErrInvalidRating) {
			WriteError(w, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5", h.logger)
			return
		}
		h.logger.Error("failed to record feedback", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to record feedback", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, feedbackResponse{Success: true, FeedbackID: rec.ID}, h.logger)
}

// submitSession handles POST /api/v1/feedback/session: one rating for a
// whole conversation.
func (h *feedbackHandler) submitSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFeedbackBody)

	var req sessionFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SessionID == "" {
		WriteError(w, http.StatusBadRequest, "missing_session", "sessionId is required", h.logger)
		return
	}

	rec, err := h.store.SubmitSession(r.Context(), req.SessionID, req.Rating, req.Feedback, req.MessageCount)
	if err != nil {
		if errors.Is(err, feedback.ErrInvalidRating) {
			WriteError(w, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5", h.logger)
			return
		}
		h.logger.Error("failed to record session feedback", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to record feedback", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, feedbackResponse{Success: true, FeedbackID: rec.ID}, h.logger)
}

// stats handles GET /api/v1/feedback/stats.
func (h *feedbackHandler) stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.store.Stats(), h.logger)
}
