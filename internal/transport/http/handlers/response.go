package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
	"github.com/vedran77/covoit/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, status int, errs validator.ValidationErrors) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeInvalidArgument:    http.StatusBadRequest,
	apperr.CodeNotFound:           http.StatusNotFound,
	apperr.CodeAlreadyExists:      http.StatusConflict,
	apperr.CodePermissionDenied:   http.StatusForbidden,
	apperr.CodeUnauthenticated:    http.StatusUnauthorized,
	apperr.CodeFailedPrecondition: http.StatusConflict,
	apperr.CodeUnavailable:        http.StatusServiceUnavailable,
}

// writeAppError maps a service error onto the response. validationStatus lets
// the message endpoints answer 422 where the rest of the API answers 400.
func writeAppError(w http.ResponseWriter, log *logger.Logger, err error, validationStatus int) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error("unhandled error", "err", err)
		writeError(w, http.StatusInternalServerError, string(apperr.CodeInternal), "Something went wrong")
		return
	}

	if appErr.Code == apperr.CodeInvalidArgument {
		field := appErr.Field
		if field == "" {
			field = "request"
		}
		writeValidationErrors(w, validationStatus, validator.ValidationErrors{field: appErr.Message})
		return
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		log.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, string(apperr.CodeInternal), "Something went wrong")
		return
	}
	if status == http.StatusServiceUnavailable {
		log.Error("store unavailable", "err", err)
	}
	writeError(w, status, string(appErr.Code), appErr.Message)
}

// decode reads a JSON body and runs tag validation. It writes the response
// and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any, validationStatus int) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	if errs := validator.Struct(dst); errs.HasErrors() {
		writeValidationErrors(w, validationStatus, errs)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
