package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/transport/http/middleware"
	"github.com/vedran77/covoit/pkg/logger"
)

const maxThreadLimit = 500

type DMHandler struct {
	dmService *service.DMService
	log       *logger.Logger
}

func NewDMHandler(dmService *service.DMService, log *logger.Logger) *DMHandler {
	return &DMHandler{dmService: dmService, log: log}
}

// Send handles POST /messages.
func (h *DMHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendMessageInput
	if !decode(w, r, &input, http.StatusUnprocessableEntity) {
		return
	}

	msg, err := h.dmService.Send(r.Context(), userID, input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Thread handles GET /messages/{counterpart_id}?after=&limit=.
func (h *DMHandler) Thread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	counterpartID, ok := pathID(w, r, "counterpart_id")
	if !ok {
		return
	}

	var after *uuid.UUID
	if s := r.URL.Query().Get("after"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid after cursor")
			return
		}
		after = &id
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxThreadLimit {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	resp, err := h.dmService.Thread(r.Context(), userID, counterpartID, after, limit)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Conversations handles GET /conversations.
func (h *DMHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.dmService.Conversations(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// UnreadCount handles GET /unread-count?counterpart_id=.
func (h *DMHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var counterpartID *uuid.UUID
	if s := r.URL.Query().Get("counterpart_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid counterpart_id")
			return
		}
		counterpartID = &id
	}

	count, err := h.dmService.UnreadCount(r.Context(), userID, counterpartID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

type contactInput struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// Contact handles POST /contacts.
func (h *DMHandler) Contact(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input contactInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	conv, err := h.dmService.Contact(r.Context(), userID, input.UserID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversation": conv})
}

// Eligibility handles GET /contacts/{user_id}/eligibility.
func (h *DMHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	candidateID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}

	eligible, err := h.dmService.Eligibility(r.Context(), userID, candidateID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"eligible": eligible})
}
