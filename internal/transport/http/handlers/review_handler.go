package handlers

import (
	"net/http"

	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/transport/http/middleware"
	"github.com/vedran77/covoit/pkg/logger"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	log           *logger.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	resID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var input service.ReviewInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	review, err := h.reviewService.Review(r.Context(), userID, resID, input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) DriverRating(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rating, err := h.reviewService.DriverRating(r.Context(), driverID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, rating)
}
