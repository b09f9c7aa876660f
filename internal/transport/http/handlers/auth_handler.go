package handlers

import (
	"net/http"

	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/pkg/logger"
)

type AuthHandler struct {
	authService *service.AuthService
	log         *logger.Logger
}

func NewAuthHandler(authService *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	resp, err := h.authService.Register(r.Context(), input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decode(w, r, &input, http.StatusBadRequest) {
		return
	}

	resp, err := h.authService.Login(r.Context(), input)
	if err != nil {
		writeAppError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
