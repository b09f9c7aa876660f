package handlers

import (
	"net/http"
	"time"

	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/transport/http/middleware"
	"github.com/vedran77/covoit/pkg/logger"
)

type TripHandler struct {
	tripService *service.TripService
	log         *logger.Logger
}

func NewTripHandler(tripService *service.TripService, log *logger.Logger) *TripHandler {
	return &TripHandler{tripService: tripService, log: log}
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateTripInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	trip, err := h.tripService.CreateTrip(r.Context(), userID, input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, trip)
}

// Search handles GET /trips?departure=&arrival=&date=YYYY-MM-DD.
func (h *TripHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := service.SearchTripsInput{
		Departure: q.Get("departure"),
		Arrival:   q.Get("arrival"),
	}
	if s := q.Get("date"); s != "" {
		date, err := time.Parse(time.DateOnly, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		input.Date = &date
	}

	trips, err := h.tripService.SearchTrips(r.Context(), input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (h *TripHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tripID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var input service.ReserveInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	res, err := h.tripService.Reserve(r.Context(), userID, tripID, input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *TripHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	resID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tripService.CancelReservation(r.Context(), userID, resID); err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.tripService.ListReservations(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": list})
}
