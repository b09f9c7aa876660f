package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vedran77/covoit/internal/transport/http/middleware"
	"github.com/vedran77/covoit/pkg/logger"
)

type Router struct {
	Auth    *AuthHandler
	DM      *DMHandler
	Trips   *TripHandler
	Reviews *ReviewHandler
	// WS is mounted at /api/v1/ws when set; it authenticates with ?token=.
	WS http.Handler

	Tokens middleware.TokenParser
	Log    *logger.Logger
}

func (rt Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover(rt.Log), middleware.RequestLogger(rt.Log))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", rt.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", rt.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/trips", rt.Trips.Search).Methods(http.MethodGet)
	api.HandleFunc("/drivers/{id}/rating", rt.Reviews.DriverRating).Methods(http.MethodGet)
	if rt.WS != nil {
		api.Handle("/ws", rt.WS).Methods(http.MethodGet)
	}

	// Protected
	p := api.NewRoute().Subrouter()
	p.Use(middleware.Auth(rt.Tokens))

	p.HandleFunc("/messages", rt.DM.Send).Methods(http.MethodPost)
	p.HandleFunc("/messages/{counterpart_id}", rt.DM.Thread).Methods(http.MethodGet)
	p.HandleFunc("/conversations", rt.DM.Conversations).Methods(http.MethodGet)
	p.HandleFunc("/unread-count", rt.DM.UnreadCount).Methods(http.MethodGet)
	p.HandleFunc("/contacts", rt.DM.Contact).Methods(http.MethodPost)
	p.HandleFunc("/contacts/{user_id}/eligibility", rt.DM.Eligibility).Methods(http.MethodGet)

	p.HandleFunc("/trips", rt.Trips.Create).Methods(http.MethodPost)
	p.HandleFunc("/trips/{id}/reservations", rt.Trips.Reserve).Methods(http.MethodPost)
	p.HandleFunc("/reservations", rt.Trips.ListReservations).Methods(http.MethodGet)
	p.HandleFunc("/reservations/{id}", rt.Trips.CancelReservation).Methods(http.MethodDelete)
	p.HandleFunc("/reservations/{id}/review", rt.Reviews.Create).Methods(http.MethodPost)

	return middleware.CORS(r)
}
